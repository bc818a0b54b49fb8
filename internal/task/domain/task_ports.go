package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	sharedQuery "github.com/jamaynor/maynor-kernel/shared/platform/query"
)

var (
	ErrTaskNotFound       = fmt.Errorf("task %w", sharedDomain.ErrNotFound)
	ErrTaskAlreadyExists  = errors.New("task already exists")
	ErrTaskCannotComplete = errors.New("task cannot be marked as completed")
	ErrTaskCannotFail     = errors.New("task cannot be marked as failed")
	ErrTaskDeleted        = errors.New("task has been deleted")
)

// --- Repositorio de Tasks ---

// TaskRepository guarda el agregado junto con sus eventos pendientes en una sola
// transacción. Save inserta si la tarea no está persistida y si no actualiza comprobando
// la versión; un desajuste devuelve sharedDomain.ErrConcurrencyConflict.
type TaskRepository interface {
	Save(ctx context.Context, t *Task) error
	Delete(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	ListByCriteria(ctx context.Context, criteria sharedDomain.Criteria, pagination sharedQuery.Pagination, sort sharedQuery.Sort) ([]*Task, error)
}

// ---------- Helpers comunes (cache keys, etc.) ----------

func TaskCacheKeyByID(id uuid.UUID) string {
	return fmt.Sprintf("task:id:%s", id.String())
}
