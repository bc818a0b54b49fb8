package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	"github.com/jamaynor/maynor-kernel/shared/enum"
	"github.com/jamaynor/maynor-kernel/shared/guard"
	sharedBus "github.com/jamaynor/maynor-kernel/shared/platform/bus"
)

const AggregateType = "task"

type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

var taskStatuses = enum.NewTable(map[TaskStatus]enum.Entry{
	StatusPending:   {Name: "pending", Description: "Waiting to be worked on"},
	StatusCompleted: {Name: "completed", Description: "Finished successfully"},
	StatusFailed:    {Name: "failed", Description: "Finished without success"},
}, StatusPending, StatusCompleted, StatusFailed)

// ParseTaskStatus valida un estado recibido desde fuera (query params, documentos).
func ParseTaskStatus(s string) (TaskStatus, error) {
	return taskStatuses.Parse(s)
}

// TaskStatuses devuelve los estados conocidos en orden de ciclo de vida.
func TaskStatuses() []TaskStatus {
	return taskStatuses.Values()
}

func (s TaskStatus) Description() string {
	return taskStatuses.Description(s)
}

// Task es el agregado raíz del contexto de tareas. Cada método de negocio valida, cambia
// el estado y deja un evento en el buffer del agregado; el repositorio lo vuelca al outbox.
type Task struct {
	sharedDomain.AggregateRoot[uuid.UUID]

	title       string
	description string
	assigneeID  uuid.UUID
	status      TaskStatus
	deleted     bool
}

// NewTask crea una tarea pendiente y registra TaskCreated.
func NewTask(id uuid.UUID, title, description string, assigneeID uuid.UUID, createdBy string, now time.Time) (*Task, error) {
	if _, err := guard.NotZero(id, "id"); err != nil {
		return nil, err
	}
	if _, err := guard.NotWhiteSpace(title, "title"); err != nil {
		return nil, err
	}
	if _, err := guard.NotZero(assigneeID, "assigneeID"); err != nil {
		return nil, err
	}

	t := &Task{
		AggregateRoot: sharedDomain.NewAggregateRoot(id, now, createdBy),
		title:         title,
		description:   description,
		assigneeID:    assigneeID,
		status:        StatusPending,
	}
	if err := t.RecordEvent(TaskCreated{
		ID:          id,
		Title:       title,
		Description: description,
		AssigneeID:  assigneeID,
		Status:      StatusPending,
		OccurredOn:  now,
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// --- Accesores ---

func (t *Task) Title() string { return t.title }
func (t *Task) Description() string { return t.description }
func (t *Task) AssigneeID() uuid.UUID { return t.assigneeID }
func (t *Task) Status() TaskStatus { return t.status }
func (t *Task) IsDeleted() bool { return t.deleted }
func (t *Task) PartitionKey() string { return t.ID().String() }
func (t *Task) Equals(other any) bool { return sharedDomain.Equals[uuid.UUID](t, other) }
func (t *Task) Hash() uint64 { return sharedDomain.Hash[uuid.UUID](t) }

// --- Métodos de dominio ---

// Rename cambia título y descripción. Un cambio sin diferencias no registra evento.
func (t *Task) Rename(title, description string, now time.Time) error {
	if err := t.ensureAlive(); err != nil {
		return err
	}
	if _, err := guard.NotWhiteSpace(title, "title"); err != nil {
		return err
	}
	if title == t.title && description == t.description {
		return nil
	}

	t.title = title
	t.description = description
	t.MarkUpdated(now)
	return t.RecordEvent(t.updatedEvent(now))
}

// Complete marca como completada una tarea pendiente.
func (t *Task) Complete(now time.Time) error {
	if err := t.ensureAlive(); err != nil {
		return err
	}
	if t.status != StatusPending {
		return ErrTaskCannotComplete
	}

	t.status = StatusCompleted
	t.MarkUpdated(now)
	return t.RecordEvent(TaskCompleted{
		ID:         t.ID(),
		AssigneeID: t.assigneeID,
		OccurredOn: now,
	})
}

// Fail marca como fallida una tarea pendiente.
func (t *Task) Fail(reason string, now time.Time) error {
	if err := t.ensureAlive(); err != nil {
		return err
	}
	if t.status != StatusPending {
		return ErrTaskCannotFail
	}

	t.status = StatusFailed
	t.MarkUpdated(now)
	return t.RecordEvent(TaskFailed{
		ID:         t.ID(),
		AssigneeID: t.assigneeID,
		Reason:     reason,
		OccurredOn: now,
	})
}

// Delete registra TaskDeleted; el repositorio borra la fila al confirmar.
func (t *Task) Delete(now time.Time) error {
	if err := t.ensureAlive(); err != nil {
		return err
	}

	t.deleted = true
	t.MarkUpdated(now)
	return t.RecordEvent(TaskDeleted{ID: t.ID(), OccurredOn: now})
}

func (t *Task) ensureAlive() error {
	if t.deleted {
		return ErrTaskDeleted
	}
	return nil
}

func (t *Task) updatedEvent(now time.Time) TaskUpdated {
	return TaskUpdated{
		ID:          t.ID(),
		Title:       t.title,
		Description: t.description,
		Status:      t.status,
		OccurredOn:  now,
	}
}

// --- Snapshot ---

// TaskSnapshot es la forma plana de una tarea para almacenamiento, caché y JSON.
type TaskSnapshot struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssigneeID  uuid.UUID  `json:"assigneeId"`
	Status      TaskStatus `json:"status"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func (t *Task) Snapshot() TaskSnapshot {
	s := TaskSnapshot{
		ID:          t.ID(),
		Title:       t.title,
		Description: t.description,
		AssigneeID:  t.assigneeID,
		Status:      t.status,
		Version:     t.Version(),
		CreatedAt:   t.CreatedOn(),
		CreatedBy:   t.CreatedBy(),
	}
	if at, ok := t.UpdatedOn(); ok {
		s.UpdatedAt = &at
	}
	return s
}

// Rehydrate reconstruye una tarea leída del almacenamiento. No registra eventos.
func Rehydrate(s TaskSnapshot) (*Task, error) {
	if _, err := guard.NotZero(s.ID, "id"); err != nil {
		return nil, err
	}

	t := &Task{
		AggregateRoot: sharedDomain.NewAggregateRoot(s.ID, s.CreatedAt, s.CreatedBy),
		title:         s.Title,
		description:   s.Description,
		assigneeID:    s.AssigneeID,
		status:        s.Status,
	}
	if err := t.SetVersion(s.Version); err != nil {
		return nil, err
	}
	if s.UpdatedAt != nil {
		t.MarkUpdated(*s.UpdatedAt)
	}
	return t, nil
}

func (t *Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Snapshot())
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var s TaskSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	rt, err := Rehydrate(s)
	if err != nil {
		return err
	}
	*t = *rt
	return nil
}

// Verificación estática para asegurar que Task implementa la interfaz
var _ sharedBus.Keyer = (*Task)(nil)
