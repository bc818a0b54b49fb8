package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jamaynor/maynor-kernel/shared/domain"
)

// OutboxRepoSQLite implementa domain.OutboxRepository sobre la tabla outbox.
type OutboxRepoSQLite struct {
	db *sql.DB
}

func NewOutboxRepoSQLite(db *sql.DB) *OutboxRepoSQLite {
	return &OutboxRepoSQLite{db: db}
}

// InitOutboxSchema crea la tabla outbox si no existe.
func InitOutboxSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS outbox (
            id TEXT PRIMARY KEY,
            aggregate_type TEXT NOT NULL,
            aggregate_id TEXT NOT NULL,
            event_type TEXT NOT NULL,
            payload TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            seq INTEGER NOT NULL,
            processed BOOLEAN NOT NULL DEFAULT 0
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create outbox table: %w", err)
	}
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox (processed, created_at, seq)`)
	return err
}

// InsertOutboxTx escribe las filas dentro de la transacción del agregado. seq conserva el
// orden de registro cuando varias filas comparten created_at.
func InsertOutboxTx(ctx context.Context, tx *sql.Tx, events []domain.OutboxEvent) error {
	for i, evt := range events {
		payloadBytes, err := json.Marshal(evt.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal outbox payload: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO outbox (id,aggregate_type,aggregate_id,event_type,payload,created_at,seq,processed)
			 VALUES (?,?,?,?,?,?,?,0)`,
			evt.ID.String(), evt.AggregateType, evt.AggregateID, evt.EventType, string(payloadBytes), evt.CreatedAt.UTC(), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}
	}
	return nil
}

// FetchPendingOutbox obtiene los eventos no procesados en orden de registro. El payload se
// devuelve como json.RawMessage para que el relayer lo decodifique al tipo registrado.
func (r *OutboxRepoSQLite) FetchPendingOutbox(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
         FROM outbox
         WHERE processed = 0
         ORDER BY created_at, seq
         LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var idStr, aggregateType, aggregateID, eventType, payloadStr string
		var createdAt time.Time

		if err := rows.Scan(&idStr, &aggregateType, &aggregateID, &eventType, &payloadStr, &createdAt); err != nil {
			return nil, err
		}

		parsedID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID in outbox row: %w", err)
		}
		if !json.Valid([]byte(payloadStr)) {
			return nil, fmt.Errorf("invalid JSON payload in outbox row %s", parsedID)
		}

		events = append(events, domain.OutboxEvent{
			ID:            parsedID,
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			EventType:     eventType,
			Payload:       json.RawMessage(payloadStr),
			CreatedAt:     createdAt,
		})
	}

	return events, rows.Err()
}

// MarkOutboxProcessed marca un evento como procesado para SQLite.
func (r *OutboxRepoSQLite) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE outbox SET processed = 1 WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s as processed: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected for outbox event %s: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("outbox event %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ domain.OutboxRepository = (*OutboxRepoSQLite)(nil)
