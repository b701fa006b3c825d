package relayer

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	sharedEvents "github.com/davicafu/userlab/internal/shared/domain/events"
	sharedBus "github.com/davicafu/userlab/internal/shared/platform/bus"
)

// Worker publica los eventos pendientes de la tabla outbox. Es
// genérico: el registro de eventos le dice a qué tipo decodificar
// cada payload antes de publicarlo.
type Worker struct {
	repo      sharedDomain.OutboxRepository
	publisher sharedBus.EventBus
	registry  map[string]sharedEvents.EventMetadata
	interval  time.Duration
	batchSize int
	log       *zap.Logger
}

func NewOutboxWorker(
	repo sharedDomain.OutboxRepository,
	publisher sharedBus.EventBus,
	registry map[string]sharedEvents.EventMetadata,
	interval time.Duration,
	batchSize int,
	log *zap.Logger,
) *Worker {
	return &Worker{
		repo:      repo,
		publisher: publisher,
		registry:  registry,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// Start inicia el bucle de polling del worker.
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

func (w *Worker) ProcessBatch(ctx context.Context) {
	events, err := w.repo.FetchPendingOutbox(ctx, w.batchSize)
	if err != nil {
		w.log.Warn("⚠️ Error al obtener eventos pendientes", zap.Error(err))
		return
	}
	if len(events) > 0 {
		w.log.Info("📬 Eventos pendientes encontrados", zap.Int("count", len(events)))
	}

	for _, evt := range events {
		w.publishAndMark(ctx, evt)
	}
}

func (w *Worker) publishAndMark(ctx context.Context, evt sharedDomain.OutboxEvent) {
	metadata, ok := w.registry[evt.EventType]
	if !ok {
		w.log.Error("Tipo de evento desconocido en registro", zap.String("event_type", evt.EventType))
		return
	}

	// Decodifica el payload al tipo registrado (ej: *domain.User).
	payload := reflect.New(metadata.Type).Interface()
	payloadBytes, err := json.Marshal(evt.Payload)
	if err == nil {
		err = json.Unmarshal(payloadBytes, payload)
	}
	if err != nil {
		w.log.Error("Error al decodificar payload del evento",
			zap.String("event_id", evt.ID.String()), zap.Error(err))
		return
	}

	env := sharedBus.Envelope{Type: evt.EventType, Payload: payload}
	if err := w.publisher.Publish(ctx, env); err != nil {
		// No se marca como procesado para que se reintente.
		w.log.Warn("⚠️ No se pudo publicar evento",
			zap.String("event_id", evt.ID.String()), zap.Error(err))
		return
	}

	if err := w.repo.MarkOutboxProcessed(ctx, evt.ID); err != nil {
		w.log.Warn("⚠️ No se pudo marcar evento como procesado",
			zap.String("event_id", evt.ID.String()), zap.Error(err))
		return
	}
	w.log.Debug("✅ Evento publicado y marcado", zap.String("event_id", evt.ID.String()))
}
