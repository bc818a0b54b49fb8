package mongodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
)

const OutboxCollection = "outbox"

// OutboxRepoMongoDB implementa la interfaz sharedDomain.OutboxRepository.
type OutboxRepoMongoDB struct {
	outboxColl *mongo.Collection
}

func NewOutboxRepoMongoDB(client *mongo.Client, dbName string) *OutboxRepoMongoDB {
	return &OutboxRepoMongoDB{outboxColl: client.Database(dbName).Collection(OutboxCollection)}
}

// OutboxDocument es la forma BSON de una fila de outbox. El payload se guarda como texto
// JSON: así el relayer lo decodifica igual que con SQL y los tags json de los eventos
// siguen mandando.
type OutboxDocument struct {
	ID            string    `bson:"_id"`
	AggregateType string    `bson:"aggregateType"`
	AggregateID   string    `bson:"aggregateId"`
	EventType     string    `bson:"eventType"`
	Payload       string    `bson:"payload"`
	CreatedAt     time.Time `bson:"createdAt"`
	Seq           int       `bson:"seq"`
	Processed     bool      `bson:"processed"`
}

// ToOutboxDocuments prepara las filas para insertarlas en la sesión del agregado.
func ToOutboxDocuments(events []sharedDomain.OutboxEvent) ([]any, error) {
	docs := make([]any, 0, len(events))
	for i, evt := range events {
		payloadBytes, err := json.Marshal(evt.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal outbox payload: %w", err)
		}
		docs = append(docs, OutboxDocument{
			ID:            evt.ID.String(),
			AggregateType: evt.AggregateType,
			AggregateID:   evt.AggregateID,
			EventType:     evt.EventType,
			Payload:       string(payloadBytes),
			CreatedAt:     evt.CreatedAt,
			Seq:           i,
		})
	}
	return docs, nil
}

// FetchPendingOutbox obtiene los eventos no procesados de la colección outbox.
func (r *OutboxRepoMongoDB) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	filter := bson.M{"processed": false}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "seq", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.outboxColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []sharedDomain.OutboxEvent
	for cursor.Next(ctx) {
		var doc OutboxDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		evt, err := fromOutboxDocument(doc)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}

	return events, cursor.Err()
}

// MarkOutboxProcessed marca un evento como procesado.
func (r *OutboxRepoMongoDB) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := r.outboxColl.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"processed": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("outbox event %s: %w", id, sharedDomain.ErrNotFound)
	}
	return nil
}

func fromOutboxDocument(doc OutboxDocument) (sharedDomain.OutboxEvent, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return sharedDomain.OutboxEvent{}, fmt.Errorf("invalid UUID in outbox document: %w", err)
	}
	return sharedDomain.OutboxEvent{
		ID:            id,
		AggregateType: doc.AggregateType,
		AggregateID:   doc.AggregateID,
		EventType:     doc.EventType,
		Payload:       json.RawMessage(doc.Payload),
		CreatedAt:     doc.CreatedAt,
		Processed:     doc.Processed,
	}, nil
}

// Verificación en tiempo de compilación.
var _ sharedDomain.OutboxRepository = (*OutboxRepoMongoDB)(nil)
