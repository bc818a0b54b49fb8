package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedEventsInfra "github.com/jamaynor/maynor-kernel/internal/shared/infra/events"
	taskDomain "github.com/jamaynor/maynor-kernel/internal/task/domain"
	sharedEvents "github.com/jamaynor/maynor-kernel/shared/events"
	sharedCache "github.com/jamaynor/maynor-kernel/shared/platform/cache"
)

// handleTimeout acota el trabajo por mensaje.
const handleTimeout = 500 * time.Millisecond

// TaskConsumer escucha los eventos de tareas publicados por el relayer y expulsa de la
// caché las tareas modificadas. Con varias instancias y caché en memoria es lo que evita
// servir versiones viejas desde otra réplica.
type TaskConsumer struct {
	cache    sharedCache.Cache
	registry sharedEvents.Registry
	log      *zap.Logger
}

func NewTaskConsumer(cache sharedCache.Cache, log *zap.Logger) *TaskConsumer {
	return &TaskConsumer{
		cache:    cache,
		registry: taskDomain.NewEventRegistry(),
		log:      log,
	}
}

var _ sharedEventsInfra.MessageHandler = (*TaskConsumer)(nil)

// HandleMessage es el punto de entrada para un nuevo mensaje/evento.
func (c *TaskConsumer) HandleMessage(ctx context.Context, msg sharedEventsInfra.Message) {
	decoded, _, err := c.registry.Decode(msg.EventType, msg.Value)
	if err != nil {
		c.log.Warn("Ignoring task message", zap.String("type", msg.EventType), zap.String("key", msg.Key), zap.Error(err))
		return
	}

	var id uuid.UUID
	switch evt := decoded.(type) {
	case *taskDomain.TaskCreated:
		// una tarea recién creada no puede estar cacheada con datos viejos
		c.log.Debug("Task created", zap.String("task_id", evt.ID.String()))
		return
	case *taskDomain.TaskUpdated:
		id = evt.ID
	case *taskDomain.TaskCompleted:
		id = evt.ID
	case *taskDomain.TaskFailed:
		id = evt.ID
	case *taskDomain.TaskDeleted:
		id = evt.ID
	default:
		c.log.Warn("Unknown task event type", zap.String("type", msg.EventType), zap.String("key", msg.Key))
		return
	}

	if c.cache == nil {
		return
	}
	ctxTask, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	if err := c.cache.Delete(ctxTask, taskDomain.TaskCacheKeyByID(id)); err != nil {
		c.log.Warn("Failed to evict task from cache",
			zap.String("task_id", id.String()),
			zap.String("type", msg.EventType),
			zap.Error(err),
		)
		return
	}
	c.log.Debug("Task evicted from cache", zap.String("task_id", id.String()), zap.String("type", msg.EventType))
}
