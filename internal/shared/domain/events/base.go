package events

import (
	"reflect"
)

// EventMetadata asocia cada tipo de evento con el tipo Go de su payload
// y el topic donde se publica. El relayer usa este registro para
// decodificar los payloads del outbox.
type EventMetadata struct {
	Type  reflect.Type
	Topic string
}
