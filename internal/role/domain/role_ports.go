package domain

import (
	"context"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	"github.com/google/uuid"
)

// RoleRepository define las operaciones persistentes para Role.
// Create devuelve Conflict si el nombre de rol ya existe.
type RoleRepository interface {
	Create(ctx context.Context, r *Role, evt sharedDomain.OutboxEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Role, error)
	ListAll(ctx context.Context) ([]*Role, error)
}
