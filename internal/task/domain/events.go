package domain

import (
	"time"

	"github.com/google/uuid"

	sharedBus "github.com/jamaynor/maynor-kernel/shared/platform/bus"
)

// Las constantes de los tipos de evento se definen aquí, como valores string.
const (
	EventTaskCreated   = "task.created"
	EventTaskUpdated   = "task.updated"
	EventTaskCompleted = "task.completed"
	EventTaskFailed    = "task.failed"
	EventTaskDeleted   = "task.deleted"
)

const TaskTopic = "task"

type TaskCreated struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssigneeID  uuid.UUID  `json:"assigneeId"`
	Status      TaskStatus `json:"status"`
	OccurredOn  time.Time  `json:"occurredOn"`
}

func (TaskCreated) EventName() string      { return EventTaskCreated }
func (TaskCreated) Topic() string          { return TaskTopic }
func (e TaskCreated) PartitionKey() string { return e.ID.String() }

type TaskUpdated struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	OccurredOn  time.Time  `json:"occurredOn"`
}

func (TaskUpdated) EventName() string      { return EventTaskUpdated }
func (TaskUpdated) Topic() string          { return TaskTopic }
func (e TaskUpdated) PartitionKey() string { return e.ID.String() }

type TaskCompleted struct {
	ID         uuid.UUID `json:"id"`
	AssigneeID uuid.UUID `json:"assigneeId"`
	OccurredOn time.Time `json:"occurredOn"`
}

func (TaskCompleted) EventName() string      { return EventTaskCompleted }
func (TaskCompleted) Topic() string          { return TaskTopic }
func (e TaskCompleted) PartitionKey() string { return e.ID.String() }

type TaskFailed struct {
	ID         uuid.UUID `json:"id"`
	AssigneeID uuid.UUID `json:"assigneeId"`
	Reason     string    `json:"reason,omitempty"`
	OccurredOn time.Time `json:"occurredOn"`
}

func (TaskFailed) EventName() string      { return EventTaskFailed }
func (TaskFailed) Topic() string          { return TaskTopic }
func (e TaskFailed) PartitionKey() string { return e.ID.String() }

type TaskDeleted struct {
	ID         uuid.UUID `json:"id"`
	OccurredOn time.Time `json:"occurredOn"`
}

func (TaskDeleted) EventName() string      { return EventTaskDeleted }
func (TaskDeleted) Topic() string          { return TaskTopic }
func (e TaskDeleted) PartitionKey() string { return e.ID.String() }

var (
	_ sharedBus.Keyer   = TaskCreated{}
	_ sharedBus.Topicer = TaskCreated{}
	_ sharedBus.Keyer   = TaskUpdated{}
	_ sharedBus.Keyer   = TaskCompleted{}
	_ sharedBus.Keyer   = TaskFailed{}
	_ sharedBus.Keyer   = TaskDeleted{}
)
