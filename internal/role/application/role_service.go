package application

import (
	"context"
	"time"

	"github.com/davicafu/userlab/internal/role/domain"
	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoleService define los casos de uso relacionados con Role.
type RoleService struct {
	repo domain.RoleRepository
	log  *zap.Logger
}

func NewRoleService(repo domain.RoleRepository, log *zap.Logger) *RoleService {
	return &RoleService{repo: repo, log: log}
}

// CreateRole da de alta un rol; nombre duplicado es Conflict.
func (s *RoleService) CreateRole(ctx context.Context, name string) (*domain.Role, error) {
	now := time.Now().UTC()
	role := &domain.Role{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "role",
		AggregateID:   role.ID.String(),
		EventType:     domain.RoleCreated,
		Payload:       role,
		CreatedAt:     now,
	}

	if err := s.repo.Create(ctx, role, evt); err != nil {
		return nil, err
	}

	s.log.Info("role created", zap.String("role_id", role.ID.String()), zap.String("role_name", role.Name))
	return role, nil
}

func (s *RoleService) GetRole(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *RoleService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	return s.repo.ListAll(ctx)
}
