package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamaynor/maynor-kernel/shared/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // una sola conexión: la base en memoria vive en ella
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitOutboxSchema(context.Background(), db))
	return db
}

type noteAdded struct {
	Text string `json:"text"`
}

func (noteAdded) EventName() string { return "note.added" }

func TestOutboxRepoSQLite_FetchAndMark(t *testing.T) {
	// Arrange
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewOutboxRepoSQLite(db)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	first := domain.NewOutboxEvent("note", "n-1", noteAdded{Text: "uno"}, at)
	second := domain.NewOutboxEvent("note", "n-1", noteAdded{Text: "dos"}, at)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, InsertOutboxTx(ctx, tx, []domain.OutboxEvent{first, second}))
	require.NoError(t, tx.Commit())

	// Act
	pending, err := repo.FetchPendingOutbox(ctx, 10)

	// Assert
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID, "mismo created_at: manda el orden de registro")
	assert.Equal(t, second.ID, pending[1].ID)
	assert.Equal(t, "note.added", pending[0].EventType)
	assert.Equal(t, "n-1", pending[0].AggregateID)
	assert.True(t, at.Equal(pending[0].CreatedAt))
	assert.JSONEq(t, `{"text":"uno"}`, string(pending[0].Payload.(json.RawMessage)))

	require.NoError(t, repo.MarkOutboxProcessed(ctx, first.ID))

	pending, err = repo.FetchPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}

func TestOutboxRepoSQLite_RespectsLimit(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewOutboxRepoSQLite(db)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	var batch []domain.OutboxEvent
	for i := 0; i < 5; i++ {
		batch = append(batch, domain.NewOutboxEvent("note", "n", noteAdded{}, time.Now().UTC()))
	}
	require.NoError(t, InsertOutboxTx(ctx, tx, batch))
	require.NoError(t, tx.Commit())

	pending, err := repo.FetchPendingOutbox(ctx, 3)

	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestOutboxRepoSQLite_MarkUnknown(t *testing.T) {
	repo := NewOutboxRepoSQLite(openTestDB(t))

	err := repo.MarkOutboxProcessed(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
