package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	sharedQuery "github.com/davicafu/userlab/internal/shared/platform/query"
	userDomain "github.com/davicafu/userlab/internal/user/domain"
)

// InMemoryUserRepo simula UserRepository con outbox incluido. Aplica
// exactamente el predicado y comparador canónicos del dominio.
type InMemoryUserRepo struct {
	Users  map[uuid.UUID]*userDomain.User
	Outbox []sharedDomain.OutboxEvent
	mu     sync.Mutex
}

func NewInMemoryUserRepo() *InMemoryUserRepo {
	return &InMemoryUserRepo{
		Users:  make(map[uuid.UUID]*userDomain.User),
		Outbox: []sharedDomain.OutboxEvent{},
	}
}

var _ userDomain.UserRepository = (*InMemoryUserRepo)(nil)

func (r *InMemoryUserRepo) Create(ctx context.Context, u *userDomain.User, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.Users {
		if strings.EqualFold(existing.Email, u.Email) {
			return sharedDomain.NewConflict(fmt.Sprintf("A user with email '%s' already exists.", u.Email))
		}
	}
	copied := *u
	r.Users[u.ID] = &copied
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.Users[id]
	if !ok {
		return nil, sharedDomain.NewNotFound("User", id)
	}
	copied := *u
	return &copied, nil
}

func (r *InMemoryUserRepo) GetByEmail(ctx context.Context, email string) (*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.Users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sharedDomain.NewNotFoundMessage(fmt.Sprintf("User with email '%s' was not found.", email))
}

func (r *InMemoryUserRepo) Update(ctx context.Context, u *userDomain.User, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Users[u.ID]; !ok {
		return sharedDomain.NewNotFound("User", u.ID)
	}
	for id, existing := range r.Users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return sharedDomain.NewConflict(fmt.Sprintf("A user with email '%s' already exists.", u.Email))
		}
	}
	copied := *u
	r.Users[u.ID] = &copied
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryUserRepo) DeleteByID(ctx context.Context, id uuid.UUID, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Users[id]; !ok {
		return sharedDomain.NewNotFound("User", id)
	}
	delete(r.Users, id)
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryUserRepo) List(ctx context.Context, c userDomain.UserCriteria) ([]*userDomain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var filtered []*userDomain.User
	for _, u := range r.Users {
		if c.Matches(u) {
			copied := *u
			filtered = append(filtered, &copied)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return c.Less(filtered[i], filtered[j])
	})

	total := int64(len(filtered))
	page := sharedQuery.Paginate(filtered, c.PageRequest().Normalize())
	return page, total, nil
}

func (r *InMemoryUserRepo) ListAll(ctx context.Context) ([]*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*userDomain.User, 0, len(r.Users))
	for _, u := range r.Users {
		copied := *u
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
