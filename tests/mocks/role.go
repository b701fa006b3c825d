package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	roleDomain "github.com/davicafu/userlab/internal/role/domain"
	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
)

// InMemoryRoleRepo simula RoleRepository con outbox incluido.
type InMemoryRoleRepo struct {
	Roles  map[uuid.UUID]*roleDomain.Role
	Outbox []sharedDomain.OutboxEvent
	mu     sync.Mutex
}

func NewInMemoryRoleRepo() *InMemoryRoleRepo {
	return &InMemoryRoleRepo{
		Roles:  make(map[uuid.UUID]*roleDomain.Role),
		Outbox: []sharedDomain.OutboxEvent{},
	}
}

var _ roleDomain.RoleRepository = (*InMemoryRoleRepo)(nil)

func (r *InMemoryRoleRepo) Create(ctx context.Context, role *roleDomain.Role, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.Roles {
		if strings.EqualFold(existing.Name, role.Name) {
			return sharedDomain.NewConflict(fmt.Sprintf("A role named '%s' already exists.", role.Name))
		}
	}
	copied := *role
	r.Roles[role.ID] = &copied
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *InMemoryRoleRepo) GetByID(ctx context.Context, id uuid.UUID) (*roleDomain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.Roles[id]
	if !ok {
		return nil, sharedDomain.NewNotFound("Role", id)
	}
	copied := *role
	return &copied, nil
}

func (r *InMemoryRoleRepo) ListAll(ctx context.Context) ([]*roleDomain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*roleDomain.Role, 0, len(r.Roles))
	for _, role := range r.Roles {
		copied := *role
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}
