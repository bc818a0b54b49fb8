package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	outboxSQLite "github.com/jamaynor/maynor-kernel/internal/shared/infra/platform/db/sqlite"
	"github.com/jamaynor/maynor-kernel/internal/shared/infra/platform/db/sqlcriteria"
	taskDomain "github.com/jamaynor/maynor-kernel/internal/task/domain"
	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	"github.com/jamaynor/maynor-kernel/shared/persistence"
	sharedQuery "github.com/jamaynor/maynor-kernel/shared/platform/query"
)

const taskColumns = "id, title, description, assignee_id, status, version, created_at, created_by, updated_at"

// TaskRepoSQLite implementa TaskRepository sobre SQLite. Tarea y outbox se escriben en la
// misma transacción.
type TaskRepoSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewTaskRepoSQLite(db *sql.DB) *TaskRepoSQLite {
	return &TaskRepoSQLite{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// InitSQLite crea las tablas tasks y outbox si no existen.
func InitSQLite(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS tasks (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            assignee_id TEXT NOT NULL,
            status TEXT NOT NULL,
            version INTEGER NOT NULL,
            created_at DATETIME NOT NULL,
            created_by TEXT NOT NULL DEFAULT '',
            updated_at DATETIME
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	return outboxSQLite.InitOutboxSchema(ctx, db)
}

// ------------------ Escritura + Outbox ------------------

// Save inserta la tarea si aún no está persistida o la actualiza si la versión almacenada
// coincide con la del agregado.
func (r *TaskRepoSQLite) Save(ctx context.Context, t *taskDomain.Task) error {
	return persistence.Commit(ctx, t, func(ctx context.Context, expected int, events []any) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() // Se ignora si el Commit() es exitoso

		s := t.Snapshot()
		if expected == 0 {
			err = insertTask(ctx, tx, s)
		} else {
			err = updateTask(ctx, tx, s, expected)
		}
		if err != nil {
			return err
		}

		if err := outboxSQLite.InsertOutboxTx(ctx, tx, persistence.OutboxRecords(taskDomain.AggregateType, s.ID, events, r.now())); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Delete borra la fila comprobando la versión y deja TaskDeleted en el outbox.
func (r *TaskRepoSQLite) Delete(ctx context.Context, t *taskDomain.Task) error {
	if !t.IsPersisted() {
		return taskDomain.ErrTaskNotFound
	}
	return persistence.Commit(ctx, t, func(ctx context.Context, expected int, events []any) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND version = ?`, t.ID().String(), expected)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if err := checkAffected(ctx, tx, res, t.ID()); err != nil {
			return err
		}

		if err := outboxSQLite.InsertOutboxTx(ctx, tx, persistence.OutboxRecords(taskDomain.AggregateType, t.ID(), events, r.now())); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func insertTask(ctx context.Context, tx *sql.Tx, s taskDomain.TaskSnapshot) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		s.ID.String(), s.Title, s.Description, s.AssigneeID.String(), string(s.Status), s.CreatedAt.UTC(), s.CreatedBy, nullTime(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return taskDomain.ErrTaskAlreadyExists
	}
	return nil
}

func updateTask(ctx context.Context, tx *sql.Tx, s taskDomain.TaskSnapshot, expected int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE tasks SET title=?, description=?, assignee_id=?, status=?, updated_at=?, version=?
		 WHERE id=? AND version=?`,
		s.Title, s.Description, s.AssigneeID.String(), string(s.Status), nullTime(s.UpdatedAt), expected+1,
		s.ID.String(), expected,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkAffected(ctx, tx, res, s.ID)
}

// checkAffected distingue una fila inexistente de una versión desfasada.
func checkAffected(ctx context.Context, tx *sql.Tx, res sql.Result, id uuid.UUID) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, id.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return taskDomain.ErrTaskNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("task %s: %w", id, sharedDomain.ErrConcurrencyConflict)
}

// ------------------ Lectura ------------------

func (r *TaskRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String())

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, taskDomain.ErrTaskNotFound
	}
	return t, err
}

func (r *TaskRepoSQLite) ListByCriteria(ctx context.Context, criteria sharedDomain.Criteria, pagination sharedQuery.Pagination, sort sharedQuery.Sort) ([]*taskDomain.Task, error) {
	b := sqlcriteria.NewBuilder(sqlcriteria.SQLite, taskDomain.TaskFields)
	query, err := b.Select(`SELECT `+taskColumns+` FROM tasks`, criteria, pagination,
		sort.OrDefault(sharedQuery.Sort{Field: taskDomain.DefaultSortField, Desc: true}))
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*taskDomain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*taskDomain.Task, error) {
	var s taskDomain.TaskSnapshot
	var status string
	var updatedAt sql.NullTime
	if err := row.Scan(&s.ID, &s.Title, &s.Description, &s.AssigneeID, &status, &s.Version, &s.CreatedAt, &s.CreatedBy, &updatedAt); err != nil {
		return nil, err
	}
	s.Status = taskDomain.TaskStatus(status)
	if updatedAt.Valid {
		s.UpdatedAt = &updatedAt.Time
	}
	return taskDomain.Rehydrate(s)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

var _ taskDomain.TaskRepository = (*TaskRepoSQLite)(nil)
