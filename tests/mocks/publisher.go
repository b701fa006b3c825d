package mocks

import (
	"context"
	"sync"

	sharedBus "github.com/davicafu/userlab/internal/shared/platform/bus"
)

// DummyPublisher registra los eventos publicados.
type DummyPublisher struct {
	mu     sync.Mutex
	Events []interface{}
	Err    error // si no es nil, Publish falla con este error
}

var _ sharedBus.EventBus = (*DummyPublisher)(nil)

func (p *DummyPublisher) Publish(ctx context.Context, event interface{}) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	p.Events = append(p.Events, event)
	p.mu.Unlock()
	return nil
}

func (p *DummyPublisher) Published() []interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]interface{}, len(p.Events))
	copy(out, p.Events)
	return out
}
