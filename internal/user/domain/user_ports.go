package domain

import (
	"context"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	"github.com/google/uuid"
)

// ---------- Interfaces (Ports) ----------

// UserRepository define las operaciones persistentes para User.
// Los adapters devuelven errores de la taxonomía compartida: Conflict
// si el email ya existe (lo decide la constraint única del store),
// NotFound si la entidad no está.
type UserRepository interface {
	// Create inserta usuario, asignación de rol y evento outbox en una transacción.
	Create(ctx context.Context, u *User, evt sharedDomain.OutboxEvent) error

	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	GetByEmail(ctx context.Context, email string) (*User, error)

	Update(ctx context.Context, u *User, evt sharedDomain.OutboxEvent) error

	// DeleteByID elimina el usuario y su asignación de rol en la misma
	// transacción, sin dejar registros huérfanos.
	DeleteByID(ctx context.Context, id uuid.UUID, evt sharedDomain.OutboxEvent) error

	// List devuelve la página de usuarios que satisfacen el criterio y
	// el total filtrado sin paginar. El conteo y el fetch son dos
	// sentencias: el total puede desviarse ligeramente ante escrituras
	// concurrentes (listado eventualmente consistente, aceptado).
	List(ctx context.Context, c UserCriteria) ([]*User, int64, error)

	// ListAll devuelve todos los usuarios sin filtrar ni paginar.
	ListAll(ctx context.Context) ([]*User, error)
}

// ---------- Helpers comunes (cache keys, etc.) ----------

// CacheKeyByID forma una key consistente para cache usando ID.
func CacheKeyByID(id uuid.UUID) string {
	return "user:id:" + id.String()
}
