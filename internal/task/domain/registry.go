package domain

import (
	"reflect"

	sharedEvents "github.com/jamaynor/maynor-kernel/shared/events"
)

// NewEventRegistry indica al relayer a qué struct decodificar cada fila del outbox.
func NewEventRegistry() sharedEvents.Registry {
	return sharedEvents.Registry{
		EventTaskCreated:   {Type: reflect.TypeOf(TaskCreated{}), Topic: TaskTopic},
		EventTaskUpdated:   {Type: reflect.TypeOf(TaskUpdated{}), Topic: TaskTopic},
		EventTaskCompleted: {Type: reflect.TypeOf(TaskCompleted{}), Topic: TaskTopic},
		EventTaskFailed:    {Type: reflect.TypeOf(TaskFailed{}), Topic: TaskTopic},
		EventTaskDeleted:   {Type: reflect.TypeOf(TaskDeleted{}), Topic: TaskTopic},
	}
}
