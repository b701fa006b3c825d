package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/userlab/internal/shared/domain/events"
)

const (
	RoleCreated = "role.created"
)

const RoleTopic = "role"

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		RoleCreated: {Type: reflect.TypeOf(Role{}), Topic: RoleTopic},
	}
}
