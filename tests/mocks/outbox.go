package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
)

// InMemoryOutboxRepo simula la tabla outbox para el relayer.
type InMemoryOutboxRepo struct {
	mu     sync.Mutex
	Events []sharedDomain.OutboxEvent
}

var _ sharedDomain.OutboxRepository = (*InMemoryOutboxRepo)(nil)

func (r *InMemoryOutboxRepo) Add(evt sharedDomain.OutboxEvent) {
	r.mu.Lock()
	r.Events = append(r.Events, evt)
	r.mu.Unlock()
}

func (r *InMemoryOutboxRepo) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []sharedDomain.OutboxEvent
	for _, evt := range r.Events {
		if !evt.Processed {
			pending = append(pending, evt)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (r *InMemoryOutboxRepo) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.Events {
		if r.Events[i].ID == id {
			r.Events[i].Processed = true
			return nil
		}
	}
	return fmt.Errorf("no outbox event found with id %s", id)
}

// Pending cuenta los eventos aún no procesados.
func (r *InMemoryOutboxRepo) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, evt := range r.Events {
		if !evt.Processed {
			n++
		}
	}
	return n
}
