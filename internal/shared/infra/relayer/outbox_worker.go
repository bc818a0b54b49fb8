// Package relayer publica en el broker los eventos que los repositorios dejaron en el
// outbox dentro de la misma transacción que el agregado.
package relayer

import (
	"context"
	"time"

	"go.uber.org/zap"

	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	sharedEvents "github.com/jamaynor/maynor-kernel/shared/events"
	sharedBus "github.com/jamaynor/maynor-kernel/shared/platform/bus"
)

// Archive recibe los eventos ya publicados (por ejemplo, para analítica). Un fallo se
// registra pero no devuelve el evento al outbox.
type Archive interface {
	Archive(ctx context.Context, events []sharedDomain.OutboxEvent) error
}

// Worker procesa eventos pendientes de la tabla outbox de forma genérica.
type Worker struct {
	repo          sharedDomain.OutboxRepository
	publisher     sharedBus.EventPublisher
	eventRegistry sharedEvents.Registry
	archive       Archive
	interval      time.Duration
	batchSize     int
	log           *zap.Logger
}

// Option configura un Worker.
type Option func(*Worker)

// WithArchive activa el archivado de lo publicado.
func WithArchive(a Archive) Option {
	return func(w *Worker) { w.archive = a }
}

func NewOutboxWorker(
	repo sharedDomain.OutboxRepository,
	publisher sharedBus.EventPublisher,
	registry sharedEvents.Registry,
	interval time.Duration,
	batchSize int,
	log *zap.Logger,
	opts ...Option,
) *Worker {
	w := &Worker{
		repo:          repo,
		publisher:     publisher,
		eventRegistry: registry,
		interval:      interval,
		batchSize:     batchSize,
		log:           log,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start inicia el bucle de polling del worker y bloquea hasta que ctx se cancela.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("🚀 Outbox worker iniciado", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("🛑 Outbox worker detenido.")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch publica un lote y devuelve cuántos eventos quedaron marcados. Se detiene en
// el primer fallo de publicación para no adelantar eventos posteriores del mismo agregado.
func (w *Worker) ProcessBatch(ctx context.Context) int {
	events, err := w.repo.FetchPendingOutbox(ctx, w.batchSize)
	if err != nil {
		w.log.Warn("⚠️ Error al obtener eventos pendientes", zap.Error(err))
		return 0
	}
	if len(events) == 0 {
		return 0
	}
	w.log.Debug("📬 Eventos encontrados para procesar", zap.Int("count", len(events)))

	var published []sharedDomain.OutboxEvent
	for _, evt := range events {
		ok, stop := w.publishAndMark(ctx, evt)
		if ok {
			published = append(published, evt)
		}
		if stop {
			break
		}
	}

	if w.archive != nil && len(published) > 0 {
		if err := w.archive.Archive(ctx, published); err != nil {
			w.log.Warn("⚠️ No se pudo archivar el lote", zap.Int("count", len(published)), zap.Error(err))
		}
	}
	return len(published)
}

// publishAndMark devuelve si el evento quedó publicado y marcado, y si hay que cortar el lote.
func (w *Worker) publishAndMark(ctx context.Context, evt sharedDomain.OutboxEvent) (ok bool, stop bool) {
	// 1. Usar el registro para decodificar el payload al tipo de evento correcto
	payload, meta, err := w.eventRegistry.Decode(evt.EventType, evt.Payload)
	if err != nil {
		// un evento que no se puede decodificar nunca se podrá publicar: no bloquea el lote
		w.log.Error("Evento no decodificable",
			zap.String("event_id", evt.ID.String()),
			zap.String("event_type", evt.EventType),
			zap.Error(err),
		)
		return false, false
	}

	// 2. Publicar el evento fuertemente tipado en el topic del registro
	if err := w.publish(ctx, meta.Topic, payload); err != nil {
		w.log.Warn("⚠️ No se pudo publicar evento",
			zap.String("event_id", evt.ID.String()),
			zap.String("topic", meta.Topic),
			zap.Error(err),
		)
		return false, true
	}

	// 3. Marcar como procesado en la DB
	if err := w.repo.MarkOutboxProcessed(ctx, evt.ID); err != nil {
		w.log.Warn("⚠️ No se pudo marcar evento como procesado",
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
		return false, true
	}

	w.log.Debug("✅ Evento publicado y marcado",
		zap.String("event_id", evt.ID.String()),
		zap.String("event_type", evt.EventType),
	)
	return true, false
}

func (w *Worker) publish(ctx context.Context, topic string, payload any) error {
	if tp, ok := w.publisher.(sharedBus.TopicPublisher); ok && topic != "" {
		return tp.PublishTo(ctx, topic, payload)
	}
	return w.publisher.Publish(ctx, payload)
}
