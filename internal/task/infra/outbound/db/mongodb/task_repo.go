package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	outboxMongo "github.com/jamaynor/maynor-kernel/internal/shared/infra/platform/db/mongodb"
	taskDomain "github.com/jamaynor/maynor-kernel/internal/task/domain"
	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	"github.com/jamaynor/maynor-kernel/shared/persistence"
	sharedQuery "github.com/jamaynor/maynor-kernel/shared/platform/query"
)

const TasksCollection = "tasks"

// mongoFields traduce los campos lógicos de TaskFields a claves BSON.
var mongoFields = sharedDomain.FieldSet{
	"id":          "_id",
	"title":       "title",
	"description": "description",
	"status":      "status",
	"assignee_id": "assigneeId",
	"created_at":  "createdAt",
	"updated_at":  "updatedAt",
}

// TaskRepoMongoDB implementa la interfaz TaskRepository para MongoDB. Las escrituras
// necesitan un replica set porque usan transacciones.
type TaskRepoMongoDB struct {
	client     *mongo.Client
	tasksColl  *mongo.Collection
	outboxColl *mongo.Collection
	now        func() time.Time
}

// NewTaskRepoMongoDB es el constructor del repositorio.
func NewTaskRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*TaskRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &TaskRepoMongoDB{
		client:     client,
		tasksColl:  db.Collection(TasksCollection),
		outboxColl: db.Collection(outboxMongo.OutboxCollection),
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoTask struct {
	ID          string     `bson:"_id"`
	Title       string     `bson:"title"`
	Description string     `bson:"description"`
	AssigneeID  string     `bson:"assigneeId"`
	Status      string     `bson:"status"`
	Version     int        `bson:"version"`
	CreatedAt   time.Time  `bson:"createdAt"`
	CreatedBy   string     `bson:"createdBy"`
	UpdatedAt   *time.Time `bson:"updatedAt,omitempty"`
}

// --- CRUD Transaccional ---

func (r *TaskRepoMongoDB) Save(ctx context.Context, t *taskDomain.Task) error {
	return persistence.Commit(ctx, t, func(ctx context.Context, expected int, events []any) error {
		mt := toMongoTask(t.Snapshot())
		mt.Version = expected + 1

		return r.withTransaction(ctx, events, t.ID(), func(sessCtx mongo.SessionContext) error {
			if expected == 0 {
				_, err := r.tasksColl.InsertOne(sessCtx, mt)
				if mongo.IsDuplicateKeyError(err) {
					return taskDomain.ErrTaskAlreadyExists
				}
				return err
			}

			res, err := r.tasksColl.UpdateOne(sessCtx,
				bson.M{"_id": mt.ID, "version": expected},
				bson.M{"$set": mt},
			)
			if err != nil {
				return err
			}
			return r.checkMatched(sessCtx, res.MatchedCount, mt.ID)
		})
	})
}

func (r *TaskRepoMongoDB) Delete(ctx context.Context, t *taskDomain.Task) error {
	if !t.IsPersisted() {
		return taskDomain.ErrTaskNotFound
	}
	return persistence.Commit(ctx, t, func(ctx context.Context, expected int, events []any) error {
		return r.withTransaction(ctx, events, t.ID(), func(sessCtx mongo.SessionContext) error {
			res, err := r.tasksColl.DeleteOne(sessCtx, bson.M{"_id": t.ID().String(), "version": expected})
			if err != nil {
				return err
			}
			return r.checkMatched(sessCtx, res.DeletedCount, t.ID().String())
		})
	})
}

// withTransaction ejecuta write y añade los eventos al outbox en la misma sesión.
func (r *TaskRepoMongoDB) withTransaction(ctx context.Context, events []any, id uuid.UUID, write func(mongo.SessionContext) error) error {
	docs, err := outboxMongo.ToOutboxDocuments(persistence.OutboxRecords(taskDomain.AggregateType, id, events, r.now()))
	if err != nil {
		return err
	}

	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		if err := write(sessCtx); err != nil {
			return nil, err
		}
		if len(docs) > 0 {
			if _, err := r.outboxColl.InsertMany(sessCtx, docs); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (r *TaskRepoMongoDB) checkMatched(ctx context.Context, matched int64, id string) error {
	if matched > 0 {
		return nil
	}
	n, err := r.tasksColl.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return taskDomain.ErrTaskNotFound
	}
	return fmt.Errorf("task %s: %w", id, sharedDomain.ErrConcurrencyConflict)
}

// --- Lectura ---

func (r *TaskRepoMongoDB) GetByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	var mt mongoTask
	err := r.tasksColl.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&mt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, taskDomain.ErrTaskNotFound
		}
		return nil, err
	}
	return fromMongoTask(mt)
}

func (r *TaskRepoMongoDB) ListByCriteria(ctx context.Context, criteria sharedDomain.Criteria, pagination sharedQuery.Pagination, sort sharedQuery.Sort) ([]*taskDomain.Task, error) {
	filter, err := criteriaToMongoFilter(criteria)
	if err != nil {
		return nil, err
	}
	opts, err := findOptions(pagination, sort.OrDefault(sharedQuery.Sort{Field: taskDomain.DefaultSortField, Desc: true}))
	if err != nil {
		return nil, err
	}

	cursor, err := r.tasksColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tasks := []*taskDomain.Task{}
	for cursor.Next(ctx) {
		var mt mongoTask
		if err := cursor.Decode(&mt); err != nil {
			return nil, err
		}
		t, err := fromMongoTask(mt)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, cursor.Err()
}

// --- Helpers de Mapeo y Conversión ---

func toMongoTask(s taskDomain.TaskSnapshot) *mongoTask {
	return &mongoTask{
		ID: s.ID.String(), Title: s.Title, Description: s.Description,
		AssigneeID: s.AssigneeID.String(), Status: string(s.Status), Version: s.Version,
		CreatedAt: s.CreatedAt, CreatedBy: s.CreatedBy, UpdatedAt: s.UpdatedAt,
	}
}

func fromMongoTask(mt mongoTask) (*taskDomain.Task, error) {
	id, err := uuid.Parse(mt.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid task id %q: %w", mt.ID, err)
	}
	assignee, err := uuid.Parse(mt.AssigneeID)
	if err != nil {
		return nil, fmt.Errorf("invalid assignee id %q: %w", mt.AssigneeID, err)
	}
	return taskDomain.Rehydrate(taskDomain.TaskSnapshot{
		ID: id, Title: mt.Title, Description: mt.Description, AssigneeID: assignee,
		Status: taskDomain.TaskStatus(mt.Status), Version: mt.Version,
		CreatedAt: mt.CreatedAt, CreatedBy: mt.CreatedBy, UpdatedAt: mt.UpdatedAt,
	})
}

func findOptions(pagination sharedQuery.Pagination, sort sharedQuery.Sort) (*options.FindOptions, error) {
	key, err := mongoFields.Resolve(sort.Field)
	if err != nil {
		return nil, err
	}
	dir := 1
	if sort.Desc {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: key, Value: dir}, {Key: "_id", Value: dir}})

	if p, ok := pagination.(sharedQuery.OffsetPagination); ok {
		p = p.Normalize()
		opts.SetSkip(int64(p.Offset)).SetLimit(int64(p.Limit))
	}
	return opts, nil
}

var mongoOps = map[sharedDomain.Operator]string{
	sharedDomain.OpEq:  "$eq",
	sharedDomain.OpNe:  "$ne",
	sharedDomain.OpGt:  "$gt",
	sharedDomain.OpGte: "$gte",
	sharedDomain.OpLt:  "$lt",
	sharedDomain.OpLte: "$lte",
}

// criteriaToMongoFilter recorre el árbol de criterios; los OR se traducen a $or.
func criteriaToMongoFilter(criteria sharedDomain.Criteria) (bson.M, error) {
	if criteria == nil {
		return bson.M{}, nil
	}

	if c, ok := criteria.(sharedDomain.CompositeCriteria); ok {
		var parts []bson.M
		for _, child := range c.Criterias {
			f, err := criteriaToMongoFilter(child)
			if err != nil {
				return nil, err
			}
			if len(f) > 0 {
				parts = append(parts, f)
			}
		}
		switch {
		case len(parts) == 0:
			return bson.M{}, nil
		case len(parts) == 1:
			return parts[0], nil
		case c.Operator == sharedDomain.OpOr:
			return bson.M{"$or": parts}, nil
		default:
			return bson.M{"$and": parts}, nil
		}
	}

	conds := criteria.ToConditions()
	if err := mongoFields.Check(conds); err != nil {
		return nil, err
	}

	var parts []bson.M
	for _, c := range conds {
		key, _ := mongoFields.Resolve(c.Field)
		value := c.Value
		if id, ok := value.(uuid.UUID); ok {
			value = id.String()
		}

		if c.Op == sharedDomain.OpLike || c.Op == sharedDomain.OpILike {
			pattern, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%s needs a string pattern: %w", c.Op, sharedDomain.ErrInvalidArgument)
			}
			expr := bson.M{"$regex": likeToRegex(pattern)}
			if c.Op == sharedDomain.OpILike {
				expr["$options"] = "i"
			}
			parts = append(parts, bson.M{key: expr})
			continue
		}
		parts = append(parts, bson.M{key: bson.M{mongoOps[c.Op]: value}})
	}

	switch len(parts) {
	case 0:
		return bson.M{}, nil
	case 1:
		return parts[0], nil
	}
	return bson.M{"$and": parts}, nil
}

// likeToRegex convierte un patrón LIKE (% y _) en una expresión regular anclada.
func likeToRegex(pattern string) string {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return sb.String()
}

var _ taskDomain.TaskRepository = (*TaskRepoMongoDB)(nil)
