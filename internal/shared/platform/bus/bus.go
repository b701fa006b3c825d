package bus

import "context"

// Keyer permite a un evento aportar su clave de partición.
type Keyer interface {
	PartitionKey() string
}

// EventBus publica eventos ya tipados. La semántica de topic y el
// formato del payload los decide cada adapter.
type EventBus interface {
	Publish(ctx context.Context, event interface{}) error
}

// Fanout reparte cada publicación a varios buses. Si alguno falla se
// devuelve el primer error, pero se intenta publicar en todos.
type Fanout struct {
	buses []EventBus
}

func NewFanout(buses ...EventBus) *Fanout {
	return &Fanout{buses: buses}
}

func (f *Fanout) Publish(ctx context.Context, event interface{}) error {
	var firstErr error
	for _, b := range f.buses {
		if err := b.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ EventBus = (*Fanout)(nil)

// Envelope acompaña al payload tipado con el tipo de evento que lo
// originó, para adapters que necesitan distinguirlos.
type Envelope struct {
	Type    string
	Payload interface{}
}

// PartitionKey delega en el payload si éste aporta clave.
func (e Envelope) PartitionKey() string {
	if k, ok := e.Payload.(Keyer); ok {
		return k.PartitionKey()
	}
	return ""
}

var _ Keyer = Envelope{}
