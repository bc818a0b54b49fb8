package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // Driver de PostgreSQL

	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
)

// OutboxRepoPostgres implementa la interfaz sharedDomain.OutboxRepository.
type OutboxRepoPostgres struct {
	db *sql.DB
}

func NewOutboxRepoPostgres(db *sql.DB) *OutboxRepoPostgres {
	return &OutboxRepoPostgres{db: db}
}

// InitOutboxSchema crea la tabla outbox si no existe. seq es un bigserial, así que el
// orden de inserción se conserva aunque coincidan los created_at.
func InitOutboxSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
    CREATE TABLE IF NOT EXISTS outbox (
        id UUID PRIMARY KEY,
        seq BIGSERIAL,
        aggregate_type TEXT NOT NULL,
        aggregate_id TEXT NOT NULL,
        event_type TEXT NOT NULL,
        payload JSONB NOT NULL,
        created_at TIMESTAMP WITH TIME ZONE NOT NULL,
        processed BOOLEAN NOT NULL DEFAULT FALSE
    )`)
	if err != nil {
		return fmt.Errorf("failed to create outbox table: %w", err)
	}
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox (seq) WHERE processed = FALSE`)
	return err
}

// InsertOutboxTx escribe las filas dentro de la transacción del agregado.
func InsertOutboxTx(ctx context.Context, tx *sql.Tx, events []sharedDomain.OutboxEvent) error {
	for _, evt := range events {
		payloadBytes, err := json.Marshal(evt.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal outbox payload: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at, processed)
			 VALUES ($1, $2, $3, $4, $5, $6, false)`,
			evt.ID, evt.AggregateType, evt.AggregateID, evt.EventType, payloadBytes, evt.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}
	}
	return nil
}

// FetchPendingOutbox obtiene los eventos no procesados de la tabla outbox para Postgres.
func (r *OutboxRepoPostgres) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		 FROM outbox WHERE processed=false ORDER BY seq LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []sharedDomain.OutboxEvent
	for rows.Next() {
		var evt sharedDomain.OutboxEvent
		var payloadBytes []byte // El payload se lee como JSONB

		if err := rows.Scan(&evt.ID, &evt.AggregateType, &evt.AggregateID, &evt.EventType, &payloadBytes, &evt.CreatedAt); err != nil {
			return nil, err
		}
		evt.Payload = json.RawMessage(payloadBytes)
		events = append(events, evt)
	}

	return events, rows.Err()
}

func (r *OutboxRepoPostgres) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE outbox SET processed=true WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("outbox event %s: %w", id, sharedDomain.ErrNotFound)
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ sharedDomain.OutboxRepository = (*OutboxRepoPostgres)(nil)
