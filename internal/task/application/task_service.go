package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedCacheInfra "github.com/jamaynor/maynor-kernel/internal/shared/infra/platform/cache"
	taskDomain "github.com/jamaynor/maynor-kernel/internal/task/domain"
	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	sharedCache "github.com/jamaynor/maynor-kernel/shared/platform/cache"
	sharedQuery "github.com/jamaynor/maynor-kernel/shared/platform/query"
	"github.com/jamaynor/maynor-kernel/shared/utils"
)

// DefaultCacheTTL es el TTL, en segundos, de las tareas cacheadas.
const DefaultCacheTTL = 120

// TaskService define los casos de uso relacionados con Task.
// Incorpora repositorio, caché y logger.
type TaskService struct {
	repo     taskDomain.TaskRepository
	cache    sharedCache.Cache
	log      *zap.Logger
	now      func() time.Time
	cacheTTL int
}

type Option func(*TaskService)

// WithClock sustituye el reloj; los tests lo usan para fijar las marcas de tiempo.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

func WithCacheTTL(secs int) Option {
	return func(s *TaskService) {
		if secs > 0 {
			s.cacheTTL = secs
		}
	}
}

// NewTaskService es el constructor para el servicio de tareas. cache puede ser nil.
func NewTaskService(repo taskDomain.TaskRepository, cache sharedCache.Cache, log *zap.Logger, opts ...Option) *TaskService {
	s := &TaskService{
		repo:     repo,
		cache:    cache,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		cacheTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTask crea una nueva tarea pendiente. El evento TaskCreated viaja al outbox en la
// misma transacción.
func (s *TaskService) CreateTask(ctx context.Context, title, description string, assigneeID uuid.UUID, createdBy string) (*taskDomain.Task, error) {
	task, err := taskDomain.NewTask(uuid.New(), title, description, assigneeID, createdBy, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, task); err != nil {
		s.log.Error("Failed to create task", zap.Error(err))
		return nil, err
	}
	s.log.Info("Task created", zap.String("task_id", task.ID().String()), zap.Int("version", task.Version()))

	// Actualizar caché en segundo plano
	sharedCacheInfra.AsyncCacheSet(s.cache, taskDomain.TaskCacheKeyByID(task.ID()), task.Snapshot(), s.cacheTTL, s.log)

	return task, nil
}

// RenameTask cambia título y descripción.
func (s *TaskService) RenameTask(ctx context.Context, id uuid.UUID, title, description string) (*taskDomain.Task, error) {
	return s.mutate(ctx, id, func(t *taskDomain.Task) error {
		return t.Rename(title, description, s.now())
	})
}

// CompleteTask marca como completada una tarea pendiente.
func (s *TaskService) CompleteTask(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	return s.mutate(ctx, id, func(t *taskDomain.Task) error {
		return t.Complete(s.now())
	})
}

// FailTask marca como fallida una tarea pendiente.
func (s *TaskService) FailTask(ctx context.Context, id uuid.UUID, reason string) (*taskDomain.Task, error) {
	return s.mutate(ctx, id, func(t *taskDomain.Task) error {
		return t.Fail(reason, s.now())
	})
}

// mutate carga la tarea del repositorio (nunca de la caché, que puede tener una versión
// antigua), aplica fn y la guarda.
func (s *TaskService) mutate(ctx context.Context, id uuid.UUID, fn func(*taskDomain.Task) error) (*taskDomain.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(task); err != nil {
		return nil, err
	}
	if !task.HasDomainEvents() {
		return task, nil
	}

	if err := s.repo.Save(ctx, task); err != nil {
		s.logWriteError("Failed to update task", id, err)
		return nil, err
	}

	sharedCacheInfra.AsyncCacheSet(s.cache, taskDomain.TaskCacheKeyByID(id), task.Snapshot(), s.cacheTTL, s.log)
	return task, nil
}

// DeleteTask elimina una tarea, crea un evento y limpia la caché.
func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := task.Delete(s.now()); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, task); err != nil {
		s.logWriteError("Failed to delete task", id, err)
		return err
	}

	// Eliminar de la caché en segundo plano
	sharedCacheInfra.AsyncCacheDelete(s.cache, taskDomain.TaskCacheKeyByID(id), s.log)
	return nil
}

func (s *TaskService) logWriteError(msg string, id uuid.UUID, err error) {
	if errors.Is(err, sharedDomain.ErrConcurrencyConflict) {
		s.log.Warn(msg, zap.String("task_id", id.String()), zap.Error(err))
		sharedCacheInfra.AsyncCacheDelete(s.cache, taskDomain.TaskCacheKeyByID(id), s.log)
		return
	}
	s.log.Error(msg, zap.String("task_id", id.String()), zap.Error(err))
}

// GetTaskByID obtiene una tarea, usando el patrón cache-aside con reintentos.
func (s *TaskService) GetTaskByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	// 1. Intentar obtener de la caché
	if s.cache != nil {
		var t taskDomain.Task
		hit, err := s.cache.Get(ctx, taskDomain.TaskCacheKeyByID(id), &t)
		if err != nil {
			s.log.Warn("Cache read failed", zap.String("task_id", id.String()), zap.Error(err))
		}
		if hit {
			return &t, nil
		}
	}

	// 2. Si es 'miss', ir al repositorio con reintentos
	var task *taskDomain.Task
	err := utils.Retry(ctx, 3, 100*time.Millisecond, func() error {
		var errRetry error
		task, errRetry = s.repo.GetByID(ctx, id)
		return errRetry
	})
	if err != nil {
		if errors.Is(err, taskDomain.ErrTaskNotFound) {
			s.log.Warn("Task not found", zap.String("task_id", id.String()))
		} else {
			s.log.Error("Failed to fetch task", zap.String("task_id", id.String()), zap.Error(err))
		}
		return nil, err
	}

	// 3. Actualizar caché en segundo plano para la próxima vez
	sharedCacheInfra.AsyncCacheSet(s.cache, taskDomain.TaskCacheKeyByID(id), task.Snapshot(), s.cacheTTL, s.log)

	return task, nil
}

// ListTasks es un pass-through al repositorio para listados genéricos.
func (s *TaskService) ListTasks(ctx context.Context, criteria sharedDomain.Criteria, pagination sharedQuery.Pagination, sorts sharedQuery.Sort) ([]*taskDomain.Task, error) {
	return s.repo.ListByCriteria(ctx, criteria, pagination, sorts)
}

func (s *TaskService) ListPendingTasksForUser(ctx context.Context, userID uuid.UUID, pagination sharedQuery.Pagination, sorts sharedQuery.Sort) ([]*taskDomain.Task, error) {
	return s.listForUser(ctx, userID, taskDomain.StatusPending, pagination, sorts)
}

func (s *TaskService) ListCompletedTasksForUser(ctx context.Context, userID uuid.UUID, pagination sharedQuery.Pagination, sorts sharedQuery.Sort) ([]*taskDomain.Task, error) {
	return s.listForUser(ctx, userID, taskDomain.StatusCompleted, pagination, sorts)
}

func (s *TaskService) listForUser(ctx context.Context, userID uuid.UUID, status taskDomain.TaskStatus, pagination sharedQuery.Pagination, sorts sharedQuery.Sort) ([]*taskDomain.Task, error) {
	criteria := sharedDomain.And(
		taskDomain.StatusCriteria{Status: status},
		taskDomain.AssigneeIDCriteria{ID: userID},
	)
	return s.repo.ListByCriteria(ctx, criteria, pagination, sorts)
}
