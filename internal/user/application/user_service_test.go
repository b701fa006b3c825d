package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	roleDomain "github.com/davicafu/userlab/internal/role/domain"
	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	"github.com/davicafu/userlab/internal/user/domain"
	"github.com/davicafu/userlab/tests/mocks"
)

func newFixture(t *testing.T) (*UserService, *mocks.InMemoryUserRepo, *mocks.InMemoryRoleRepo, *roleDomain.Role) {
	t.Helper()
	repo := mocks.NewInMemoryUserRepo()
	roles := mocks.NewInMemoryRoleRepo()

	role := &roleDomain.Role{ID: uuid.New(), Name: "Admin", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, roles.Create(context.Background(), role, sharedDomain.OutboxEvent{ID: uuid.New()}))

	service := NewUserService(repo, roles, &mocks.DummyCache{}, zap.NewNop())
	return service, repo, roles, role
}

func validInput(roleID uuid.UUID) CreateUserInput {
	return CreateUserInput{
		FirstName:   "Ana",
		LastName:    "García",
		DateOfBirth: time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC),
		Gender:      "Female",
		Email:       "ana@example.com",
		Password:    "s3cret-pass",
		PhoneNumber: "555-0101",
		RoleID:      roleID,
	}
}

func TestCreateUser_Success(t *testing.T) {
	service, repo, _, role := newFixture(t)

	user, err := service.CreateUser(context.Background(), validInput(role.ID))
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "Admin", user.RoleName)
	require.NotNil(t, user.RoleID)
	assert.Equal(t, role.ID, *user.RoleID)

	// La contraseña se guarda como hash bcrypt, nunca en claro.
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))

	// Evento outbox en la misma operación.
	assert.Len(t, repo.Outbox, 1)
	assert.Equal(t, domain.UserCreated, repo.Outbox[0].EventType)
	assert.Equal(t, user.ID.String(), repo.Outbox[0].AggregateID)
}

func TestCreateUser_UnknownRoleIsNotFound(t *testing.T) {
	service, repo, _, _ := newFixture(t)

	in := validInput(uuid.New())
	_, err := service.CreateUser(context.Background(), in)
	assert.True(t, sharedDomain.IsKind(err, sharedDomain.KindNotFound))

	// Nada se persistió.
	assert.Empty(t, repo.Users)
	assert.Empty(t, repo.Outbox)
}

func TestCreateUser_DuplicateEmailIsConflict(t *testing.T) {
	service, repo, _, role := newFixture(t)

	_, err := service.CreateUser(context.Background(), validInput(role.ID))
	require.NoError(t, err)

	in := validInput(role.ID)
	in.FirstName = "Otra"
	_, err = service.CreateUser(context.Background(), in)
	assert.True(t, sharedDomain.IsKind(err, sharedDomain.KindConflict))

	// El alta fallida no deja outbox adicional.
	assert.Len(t, repo.Outbox, 1)
	assert.Len(t, repo.Users, 1)
}

func TestGetUser_NotFound(t *testing.T) {
	service, _, _, _ := newFixture(t)

	_, err := service.GetUser(context.Background(), uuid.New())
	assert.True(t, sharedDomain.IsKind(err, sharedDomain.KindNotFound))
}

func TestUpdateUser_Success(t *testing.T) {
	service, repo, _, role := newFixture(t)

	user, err := service.CreateUser(context.Background(), validInput(role.ID))
	require.NoError(t, err)

	updated, err := service.UpdateUser(context.Background(), user.ID, UpdateUserInput{
		FirstName:   "Ana María",
		LastName:    user.LastName,
		DateOfBirth: user.DateOfBirth,
		Gender:      user.Gender,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana María", updated.FirstName)

	assert.Len(t, repo.Outbox, 2)
	assert.Equal(t, domain.UserUpdated, repo.Outbox[1].EventType)
}

func TestDeleteUser_Success(t *testing.T) {
	service, repo, _, role := newFixture(t)

	user, err := service.CreateUser(context.Background(), validInput(role.ID))
	require.NoError(t, err)

	require.NoError(t, service.DeleteUser(context.Background(), user.ID))

	_, err = service.GetUser(context.Background(), user.ID)
	assert.True(t, sharedDomain.IsKind(err, sharedDomain.KindNotFound))

	assert.Len(t, repo.Outbox, 2)
	assert.Equal(t, domain.UserDeleted, repo.Outbox[1].EventType)
}

func TestDeleteUser_NotFound(t *testing.T) {
	service, _, _, _ := newFixture(t)

	err := service.DeleteUser(context.Background(), uuid.New())
	assert.True(t, sharedDomain.IsKind(err, sharedDomain.KindNotFound))
}

// ---------------- Credenciales ----------------

// Email inexistente y contraseña incorrecta deben producir el mismo
// Unauthorized, con el mismo mensaje.
func TestVerifyCredentials_IndistinguishableFailures(t *testing.T) {
	service, _, _, role := newFixture(t)

	_, err := service.CreateUser(context.Background(), validInput(role.ID))
	require.NoError(t, err)

	_, errUnknown := service.VerifyCredentials(context.Background(), "nobody@example.com", "whatever")
	_, errWrongPass := service.VerifyCredentials(context.Background(), "ana@example.com", "wrong-pass")

	assert.True(t, sharedDomain.IsKind(errUnknown, sharedDomain.KindUnauthorized))
	assert.True(t, sharedDomain.IsKind(errWrongPass, sharedDomain.KindUnauthorized))
	assert.Equal(t, errUnknown.Error(), errWrongPass.Error())
}

func TestVerifyCredentials_Success(t *testing.T) {
	service, _, _, role := newFixture(t)

	created, err := service.CreateUser(context.Background(), validInput(role.ID))
	require.NoError(t, err)

	user, err := service.VerifyCredentials(context.Background(), "ana@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
}

// ---------------- Listado ----------------

func seedUsers(t *testing.T, service *UserService, roleID uuid.UUID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		in := validInput(roleID)
		in.FirstName = fmt.Sprintf("User%02d", i)
		in.Email = fmt.Sprintf("user%02d@example.com", i)
		_, err := service.CreateUser(context.Background(), in)
		require.NoError(t, err)
	}
}

func TestListUsers_PaginatesAndCounts(t *testing.T) {
	service, _, _, role := newFixture(t)
	seedUsers(t, service, role.ID, 25)

	result, err := service.ListUsers(context.Background(), domain.UserCriteria{Page: 3, PageSize: 10})
	require.NoError(t, err)

	assert.Len(t, result.Items, 5)
	assert.Equal(t, int64(25), result.TotalCount)
	assert.Equal(t, int64(3), result.TotalPages())
	assert.False(t, result.HasNext())
	assert.True(t, result.HasPrevious())
}

func TestListUsers_NormalizesOutOfRangeInput(t *testing.T) {
	service, _, _, role := newFixture(t)
	seedUsers(t, service, role.ID, 3)

	result, err := service.ListUsers(context.Background(), domain.UserCriteria{Page: -5, PageSize: 9999})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 100, result.PageSize)
	assert.Len(t, result.Items, 3)
}

func TestListUsers_FilterAndSort(t *testing.T) {
	service, _, _, role := newFixture(t)

	for _, spec := range []struct{ first, email string }{
		{"Carlos", "carlos@example.com"},
		{"Ana", "ana2@example.com"},
		{"Carmen", "carmen@example.com"},
	} {
		in := validInput(role.ID)
		in.FirstName = spec.first
		in.Email = spec.email
		_, err := service.CreateUser(context.Background(), in)
		require.NoError(t, err)
	}

	result, err := service.ListUsers(context.Background(), domain.UserCriteria{
		SearchTerm: "car",
		SortBy:     "firstName",
		// dirección por defecto: descendente
	})
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Equal(t, "Carmen", result.Items[0].FirstName)
	assert.Equal(t, "Carlos", result.Items[1].FirstName)
}

func TestListUsers_EmptyPageIsNotAnError(t *testing.T) {
	service, _, _, _ := newFixture(t)

	result, err := service.ListUsers(context.Background(), domain.UserCriteria{Page: 7, PageSize: 10})
	require.NoError(t, err)

	assert.NotNil(t, result.Items)
	assert.Empty(t, result.Items)
	assert.Equal(t, int64(0), result.TotalCount)
}

func TestListAllUsers(t *testing.T) {
	service, _, _, role := newFixture(t)
	seedUsers(t, service, role.ID, 4)

	users, err := service.ListAllUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 4)
}
