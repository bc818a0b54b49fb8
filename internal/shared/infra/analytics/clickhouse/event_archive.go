package clickhouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
)

// EventArchive guarda en ClickHouse cada evento que el relayer ya publicó, para consultas
// analíticas sobre el historial de los agregados.
type EventArchive struct {
	db  *sql.DB
	now func() time.Time
}

// DailyCount es una fila de la tendencia diaria por tipo de evento.
type DailyCount struct {
	Day       time.Time `json:"day"`
	EventType string    `json:"eventType"`
	Count     uint64    `json:"count"`
}

// NewEventArchive abre la conexión y comprueba que responde.
func NewEventArchive(ctx context.Context, addr, dbName string) (*EventArchive, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}
	return NewEventArchiveFromDB(conn), nil
}

func NewEventArchiveFromDB(db *sql.DB) *EventArchive {
	return &EventArchive{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (a *EventArchive) Close() error {
	return a.db.Close()
}

// InitSchema crea la tabla si no existe. Particionada por mes y ordenada por los campos
// de consulta habituales.
func (a *EventArchive) InitSchema(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS events_log (
			id             UUID,
			aggregate_type LowCardinality(String),
			aggregate_id   String,
			event_type     LowCardinality(String),
			payload        String,
			created_at     DateTime64(3),
			archived_at    DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(created_at)
		ORDER BY (aggregate_type, event_type, created_at)
	`)
	return err
}

// Archive inserta el lote en una sola transacción; ClickHouse funciona mejor con lotes.
func (a *EventArchive) Archive(ctx context.Context, events []sharedDomain.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO events_log (id, aggregate_type, aggregate_id, event_type, payload, created_at, archived_at)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	archivedAt := a.now()
	for _, evt := range events {
		payload, err := payloadString(evt.Payload)
		if err != nil {
			return fmt.Errorf("event %s: %w", evt.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			evt.ID, evt.AggregateType, evt.AggregateID, evt.EventType, payload, evt.CreatedAt, archivedAt,
		); err != nil {
			return fmt.Errorf("failed to exec statement for event %s: %w", evt.ID, err)
		}
	}

	return tx.Commit()
}

// DailyTrend cuenta eventos por día y tipo para un agregado.
func (a *EventArchive) DailyTrend(ctx context.Context, aggregateType string, start, end time.Time) ([]DailyCount, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT toStartOfDay(created_at) AS day, event_type, count() AS total
		FROM events_log
		WHERE aggregate_type = ? AND created_at BETWEEN ? AND ?
		GROUP BY day, event_type
		ORDER BY day, event_type
	`, aggregateType, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trend []DailyCount
	for rows.Next() {
		var c DailyCount
		if err := rows.Scan(&c.Day, &c.EventType, &c.Count); err != nil {
			return nil, err
		}
		trend = append(trend, c)
	}
	return trend, rows.Err()
}

// AverageTimeBetween calcula, para los agregados que emitieron ambos eventos en el rango,
// el tiempo medio entre el primero de fromEvent y el último de toEvent.
func (a *EventArchive) AverageTimeBetween(ctx context.Context, aggregateType, fromEvent, toEvent string, start, end time.Time) (time.Duration, error) {
	var avgSeconds sql.NullFloat64
	err := a.db.QueryRowContext(ctx, `
		SELECT avg(dateDiff('second', started, finished))
		FROM (
			SELECT
				aggregate_id,
				minIf(created_at, event_type = ?) AS started,
				maxIf(created_at, event_type = ?) AS finished
			FROM events_log
			WHERE aggregate_type = ? AND created_at BETWEEN ? AND ?
			GROUP BY aggregate_id
			HAVING countIf(event_type = ?) > 0 AND countIf(event_type = ?) > 0
		)
	`, fromEvent, toEvent, aggregateType, start, end, fromEvent, toEvent).Scan(&avgSeconds)
	if err != nil {
		return 0, err
	}
	if !avgSeconds.Valid {
		return 0, nil // No hay datos para calcular
	}
	return time.Duration(avgSeconds.Float64 * float64(time.Second)), nil
}

func payloadString(p any) (string, error) {
	switch v := p.(type) {
	case json.RawMessage:
		return string(v), nil
	case []byte:
		return string(v), nil
	case string:
		return v, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
