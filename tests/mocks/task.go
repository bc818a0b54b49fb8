package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	taskDomain "github.com/jamaynor/maynor-kernel/internal/task/domain"
	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	"github.com/jamaynor/maynor-kernel/shared/persistence"
	sharedQuery "github.com/jamaynor/maynor-kernel/shared/platform/query"
)

// InMemoryTaskRepo simula TaskRepository con outbox incluido. Guarda snapshots, así que
// cada GetByID devuelve una copia independiente como haría una base de datos.
type InMemoryTaskRepo struct {
	Tasks  map[uuid.UUID]taskDomain.TaskSnapshot
	Outbox []sharedDomain.OutboxEvent
	// Err, si no es nil, lo devuelven Save y Delete sin tocar el estado.
	Err error
	mu  sync.Mutex
}

func NewInMemoryTaskRepo() *InMemoryTaskRepo {
	return &InMemoryTaskRepo{
		Tasks:  make(map[uuid.UUID]taskDomain.TaskSnapshot),
		Outbox: []sharedDomain.OutboxEvent{},
	}
}

var _ taskDomain.TaskRepository = (*InMemoryTaskRepo)(nil)

// --- Implementación de la interfaz TaskRepository ---

func (r *InMemoryTaskRepo) Save(ctx context.Context, t *taskDomain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return persistence.Commit(ctx, t, func(ctx context.Context, expected int, events []any) error {
		if r.Err != nil {
			return r.Err
		}
		stored, exists := r.Tasks[t.ID()]
		switch {
		case expected == 0 && exists:
			return taskDomain.ErrTaskAlreadyExists
		case expected > 0 && !exists:
			return taskDomain.ErrTaskNotFound
		case expected > 0 && stored.Version != expected:
			return fmt.Errorf("task %s: %w", t.ID(), sharedDomain.ErrConcurrencyConflict)
		}

		s := t.Snapshot()
		s.Version = expected + 1
		r.Tasks[t.ID()] = s
		r.Outbox = append(r.Outbox, persistence.OutboxRecords(taskDomain.AggregateType, t.ID(), events, time.Now().UTC())...)
		return nil
	})
}

func (r *InMemoryTaskRepo) Delete(ctx context.Context, t *taskDomain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return persistence.Commit(ctx, t, func(ctx context.Context, expected int, events []any) error {
		if r.Err != nil {
			return r.Err
		}
		stored, exists := r.Tasks[t.ID()]
		if !exists {
			return taskDomain.ErrTaskNotFound
		}
		if stored.Version != expected {
			return fmt.Errorf("task %s: %w", t.ID(), sharedDomain.ErrConcurrencyConflict)
		}

		delete(r.Tasks, t.ID())
		r.Outbox = append(r.Outbox, persistence.OutboxRecords(taskDomain.AggregateType, t.ID(), events, time.Now().UTC())...)
		return nil
	})
}

func (r *InMemoryTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.Tasks[id]
	if !ok {
		return nil, taskDomain.ErrTaskNotFound
	}
	return taskDomain.Rehydrate(s)
}

func (r *InMemoryTaskRepo) ListByCriteria(
	ctx context.Context,
	criteria sharedDomain.Criteria,
	pagination sharedQuery.Pagination,
	sorts sharedQuery.Sort,
) ([]*taskDomain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var list []taskDomain.TaskSnapshot
	for _, s := range r.Tasks {
		if matchCriteria(s, criteria) {
			list = append(list, s)
		}
	}

	// Ordenar
	s := sorts.OrDefault(sharedQuery.Sort{Field: taskDomain.DefaultSortField, Desc: true})
	sort.SliceStable(list, func(i, j int) bool {
		return compareTasks(list[i], list[j], s.Field, s.Desc)
	})

	// Paginar
	if p, ok := pagination.(sharedQuery.OffsetPagination); ok {
		p = p.Normalize()
		start := min(p.Offset, len(list))
		end := min(start+p.Limit, len(list))
		list = list[start:end]
	}

	tasks := make([]*taskDomain.Task, 0, len(list))
	for _, snap := range list {
		t, err := taskDomain.Rehydrate(snap)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// --- Lógica de filtrado y ordenamiento del mock ---

func matchCriteria(s taskDomain.TaskSnapshot, criteria sharedDomain.Criteria) bool {
	if criteria == nil {
		return true
	}
	if c, ok := criteria.(sharedDomain.CompositeCriteria); ok {
		if c.Operator != sharedDomain.OpOr {
			for _, child := range c.Criterias {
				if !matchCriteria(s, child) {
					return false
				}
			}
			return true
		}
		empty := true
		for _, child := range c.Criterias {
			if child == nil || len(child.ToConditions()) == 0 {
				continue
			}
			empty = false
			if matchCriteria(s, child) {
				return true
			}
		}
		return empty
	}
	for _, cond := range criteria.ToConditions() {
		if !matchCondition(s, cond) {
			return false
		}
	}
	return true
}

func matchCondition(s taskDomain.TaskSnapshot, cond sharedDomain.Criterion) bool {
	switch strings.ToLower(cond.Field) {
	case "id":
		id, ok := cond.Value.(uuid.UUID)
		return ok && s.ID == id
	case "status":
		return string(s.Status) == fmt.Sprintf("%v", cond.Value)
	case "assignee_id":
		id, ok := cond.Value.(uuid.UUID)
		return ok && s.AssigneeID == id
	case "title":
		title, ok := cond.Value.(string)
		if !ok {
			return false
		}
		if cond.Op == sharedDomain.OpLike || cond.Op == sharedDomain.OpILike {
			pattern := strings.Trim(title, "%")
			return strings.Contains(strings.ToLower(s.Title), strings.ToLower(pattern))
		}
		return s.Title == title
	case "created_at":
		at, ok := cond.Value.(time.Time)
		if !ok {
			return false
		}
		switch cond.Op {
		case sharedDomain.OpGte:
			return !s.CreatedAt.Before(at)
		case sharedDomain.OpLte:
			return !s.CreatedAt.After(at)
		case sharedDomain.OpGt:
			return s.CreatedAt.After(at)
		case sharedDomain.OpLt:
			return s.CreatedAt.Before(at)
		}
	}
	return false
}

func compareTasks(t1, t2 taskDomain.TaskSnapshot, field string, desc bool) bool {
	var result bool
	switch strings.ToLower(field) {
	case "title":
		result = t1.Title < t2.Title
	case "status":
		result = t1.Status < t2.Status
	case "created_at":
		if t1.CreatedAt.Equal(t2.CreatedAt) {
			result = t1.ID.String() < t2.ID.String()
		} else {
			result = t1.CreatedAt.Before(t2.CreatedAt)
		}
	default: // Orden por defecto
		result = t1.ID.String() < t2.ID.String()
	}
	if desc {
		return !result
	}
	return result
}

// --- Métodos de Outbox del mock ---

func (r *InMemoryTaskRepo) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []sharedDomain.OutboxEvent
	for _, evt := range r.Outbox {
		if evt.Processed {
			continue
		}
		pending = append(pending, evt)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (r *InMemoryTaskRepo) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.Outbox {
		if r.Outbox[i].ID == id {
			r.Outbox[i].Processed = true
			return nil
		}
	}
	return fmt.Errorf("outbox event %s: %w", id, sharedDomain.ErrNotFound)
}

var _ sharedDomain.OutboxRepository = (*InMemoryTaskRepo)(nil)
