package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // Driver de PostgreSQL

	outboxPostgres "github.com/jamaynor/maynor-kernel/internal/shared/infra/platform/db/postgres"
	"github.com/jamaynor/maynor-kernel/internal/shared/infra/platform/db/sqlcriteria"
	taskDomain "github.com/jamaynor/maynor-kernel/internal/task/domain"
	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	"github.com/jamaynor/maynor-kernel/shared/persistence"
	sharedQuery "github.com/jamaynor/maynor-kernel/shared/platform/query"
)

const taskColumns = "id, title, description, assignee_id, status, version, created_at, created_by, updated_at"

// TaskRepoPostgres implementa la interfaz TaskRepository para PostgreSQL.
type TaskRepoPostgres struct {
	db  *sql.DB
	now func() time.Time
}

// NewTaskRepoPostgres es el constructor del repositorio.
func NewTaskRepoPostgres(db *sql.DB) *TaskRepoPostgres {
	return &TaskRepoPostgres{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// InitPostgres crea las tablas tasks y outbox si no existen.
func InitPostgres(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
    CREATE TABLE IF NOT EXISTS tasks (
        id UUID PRIMARY KEY,
        title TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        assignee_id UUID NOT NULL,
        status TEXT NOT NULL,
        version INTEGER NOT NULL,
        created_at TIMESTAMP WITH TIME ZONE NOT NULL,
        created_by TEXT NOT NULL DEFAULT '',
        updated_at TIMESTAMP WITH TIME ZONE
    )`)
	if err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks (assignee_id, status)`); err != nil {
		return err
	}
	return outboxPostgres.InitOutboxSchema(ctx, db)
}

// ------------------ Escritura + Outbox ------------------

// Save inserta o actualiza la tarea con control optimista de versión.
func (r *TaskRepoPostgres) Save(ctx context.Context, t *taskDomain.Task) error {
	return persistence.Commit(ctx, t, func(ctx context.Context, expected int, events []any) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin tx: %w", err)
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

		if err := outboxPostgres.InsertOutboxTx(ctx, tx, persistence.OutboxRecords(taskDomain.AggregateType, s.ID, events, r.now())); err != nil {
			return fmt.Errorf("failed to insert outbox: %w", err)
		}
		return tx.Commit()
	})
}

// Delete elimina la tarea si la versión coincide.
func (r *TaskRepoPostgres) Delete(ctx context.Context, t *taskDomain.Task) error {
	if !t.IsPersisted() {
		return taskDomain.ErrTaskNotFound
	}
	return persistence.Commit(ctx, t, func(ctx context.Context, expected int, events []any) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin tx: %w", err)
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND version = $2`, t.ID(), expected)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if err := checkAffected(ctx, tx, res, t.ID()); err != nil {
			return err
		}

		if err := outboxPostgres.InsertOutboxTx(ctx, tx, persistence.OutboxRecords(taskDomain.AggregateType, t.ID(), events, r.now())); err != nil {
			return fmt.Errorf("failed to insert outbox: %w", err)
		}
		return tx.Commit()
	})
}

func insertTask(ctx context.Context, tx *sql.Tx, s taskDomain.TaskSnapshot) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		s.ID, s.Title, s.Description, s.AssigneeID, string(s.Status), s.CreatedAt, s.CreatedBy, s.UpdatedAt,
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
		`UPDATE tasks SET title=$1, description=$2, assignee_id=$3, status=$4, updated_at=$5, version=version+1
		 WHERE id=$6 AND version=$7`,
		s.Title, s.Description, s.AssigneeID, string(s.Status), s.UpdatedAt, s.ID, expected,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkAffected(ctx, tx, res, s.ID)
}

func checkAffected(ctx context.Context, tx *sql.Tx, res sql.Result, id uuid.UUID) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return taskDomain.ErrTaskNotFound
	}
	return fmt.Errorf("task %s: %w", id, sharedDomain.ErrConcurrencyConflict)
}

// ------------------ Lectura ------------------

func (r *TaskRepoPostgres) GetByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, taskDomain.ErrTaskNotFound
	}
	return t, err
}

func (r *TaskRepoPostgres) ListByCriteria(ctx context.Context, criteria sharedDomain.Criteria, pagination sharedQuery.Pagination, sort sharedQuery.Sort) ([]*taskDomain.Task, error) {
	b := sqlcriteria.NewBuilder(sqlcriteria.Postgres, taskDomain.TaskFields)
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

var _ taskDomain.TaskRepository = (*TaskRepoPostgres)(nil)
