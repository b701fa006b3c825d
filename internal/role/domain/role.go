package domain

import (
	"time"

	sharedBus "github.com/davicafu/userlab/internal/shared/platform/bus"
	"github.com/google/uuid"
)

// Role representa un rol asignable a usuarios.
type Role struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"roleName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *Role) PartitionKey() string {
	return r.ID.String()
}

var _ sharedBus.Keyer = (*Role)(nil)
