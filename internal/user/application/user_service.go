package application

import (
	"context"
	"time"

	roleDomain "github.com/davicafu/userlab/internal/role/domain"
	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	sharedCache "github.com/davicafu/userlab/internal/shared/platform/cache"
	sharedQuery "github.com/davicafu/userlab/internal/shared/platform/query"
	"github.com/davicafu/userlab/internal/user/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// El mismo mensaje para email desconocido y contraseña incorrecta:
// las dos respuestas deben ser indistinguibles para evitar enumeración
// de identidades.
const invalidCredentialsMessage = "Invalid email or password."

// UserService define los casos de uso relacionados con User.
type UserService struct {
	repo  domain.UserRepository
	roles roleDomain.RoleRepository
	cache sharedCache.Cache
	log   *zap.Logger
}

// NewUserService constructor
func NewUserService(repo domain.UserRepository, roles roleDomain.RoleRepository, cache sharedCache.Cache, log *zap.Logger) *UserService {
	return &UserService{repo: repo, roles: roles, cache: cache, log: log}
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || sharedDomain.IsKind(err, sharedDomain.KindNotFound) {
			return err
		}

		select {
		case <-time.After(delay):
			// espera antes del siguiente intento
		case <-ctx.Done():
			return ctx.Err() // contexto cancelado
		}
	}
	return err
}

// CreateUserInput agrupa los datos de alta ya validados en el handler.
type CreateUserInput struct {
	FirstName   string
	MiddleName  string
	LastName    string
	DateOfBirth time.Time
	Gender      string
	Email       string
	Password    string
	PhoneNumber string
	RoleID      uuid.UUID
}

// CreateUser da de alta un usuario con su rol. El rol debe existir
// (NotFound en caso contrario); un email duplicado lo rechaza la
// constraint única del store y llega aquí como Conflict.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	role, err := s.roles.GetByID(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, sharedDomain.WrapInternal(err, "failed to hash password")
	}

	now := time.Now().UTC()
	roleID := role.ID
	user := &domain.User{
		ID:           uuid.New(),
		FirstName:    in.FirstName,
		MiddleName:   in.MiddleName,
		LastName:     in.LastName,
		DateOfBirth:  in.DateOfBirth,
		Gender:       in.Gender,
		Email:        in.Email,
		PasswordHash: string(hash),
		PhoneNumber:  in.PhoneNumber,
		RoleID:       &roleID,
		RoleName:     role.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "user",
		AggregateID:   user.ID.String(),
		EventType:     domain.UserCreated,
		Payload:       user,
		CreatedAt:     now,
	}

	if err := s.repo.Create(ctx, user, evt); err != nil {
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID.String()))

	if s.cache != nil {
		go func(u *domain.User) {
			ctxCache, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = s.cache.Set(ctxCache, domain.CacheKeyByID(u.ID), u, 60)
		}(user)
	}

	return user, nil
}

// GetUser obtiene un usuario (primero intenta desde cache).
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if s.cache != nil {
		var u domain.User
		if ok, _ := s.cache.Get(ctx, domain.CacheKeyByID(id), &u); ok {
			return &u, nil
		}
	}

	var user *domain.User
	err := retry(ctx, 3, 100*time.Millisecond, func() error {
		var err error
		user, err = s.repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		go func(u *domain.User) {
			ctxCache, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			if err := s.cache.Set(ctxCache, domain.CacheKeyByID(u.ID), u, 60); err != nil {
				s.log.Warn("cache update failed", zap.String("user_id", u.ID.String()), zap.Error(err))
			}
		}(user)
	}

	return user, nil
}

// UpdateUserInput agrupa los campos de perfil actualizables.
type UpdateUserInput struct {
	FirstName   string
	MiddleName  string
	LastName    string
	DateOfBirth time.Time
	Gender      string
	Email       string
	PhoneNumber string
}

// UpdateUser reemplaza los campos de perfil. Si el email cambia, la
// unicidad la vuelve a resolver la constraint del store (Conflict).
func (s *UserService) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.FirstName = in.FirstName
	user.MiddleName = in.MiddleName
	user.LastName = in.LastName
	user.DateOfBirth = in.DateOfBirth
	user.Gender = in.Gender
	user.Email = in.Email
	user.PhoneNumber = in.PhoneNumber
	user.UpdatedAt = time.Now().UTC()

	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "user",
		AggregateID:   user.ID.String(),
		EventType:     domain.UserUpdated,
		Payload:       user,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Update(ctx, user, evt); err != nil {
		return nil, err
	}

	if s.cache != nil {
		go func(u *domain.User) {
			ctxCache, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = s.cache.Set(ctxCache, domain.CacheKeyByID(u.ID), u, 60)
		}(user)
	}

	return user, nil
}

// DeleteUser elimina el usuario. El evento lleva el último estado
// conocido como payload.
func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "user",
		AggregateID:   id.String(),
		EventType:     domain.UserDeleted,
		Payload:       user,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.DeleteByID(ctx, id, evt); err != nil {
		return err
	}

	if s.cache != nil {
		go func(uid uuid.UUID) {
			ctxCache, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = s.cache.Delete(ctxCache, domain.CacheKeyByID(uid))
		}(id)
	}

	return nil
}

// ListUsers ejecuta el pipeline de listado: normalizar criterio,
// filtrar y contar en el store, ordenar y paginar, empaquetar.
func (s *UserService) ListUsers(ctx context.Context, c domain.UserCriteria) (sharedQuery.PagedResult[*domain.User], error) {
	c = c.Normalize()

	users, total, err := s.repo.List(ctx, c)
	if err != nil {
		return sharedQuery.PagedResult[*domain.User]{}, err
	}

	return sharedQuery.NewPagedResult(users, total, c.PageRequest()), nil
}

// ListAllUsers devuelve todos los usuarios sin paginar.
func (s *UserService) ListAllUsers(ctx context.Context) ([]*domain.User, error) {
	return s.repo.ListAll(ctx)
}

// VerifyCredentials comprueba email y contraseña. Identidad desconocida
// y contraseña incorrecta producen exactamente el mismo Unauthorized.
// Ni el texto plano ni el hash se registran ni se devuelven.
func (s *UserService) VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if sharedDomain.IsKind(err, sharedDomain.KindNotFound) {
			return nil, sharedDomain.NewUnauthorized(invalidCredentialsMessage)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, sharedDomain.NewUnauthorized(invalidCredentialsMessage)
	}

	return user, nil
}
