package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	roleDomain "github.com/davicafu/userlab/internal/role/domain"
	roleSQLite "github.com/davicafu/userlab/internal/role/infra/outbound/db/sqlite"
	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	"github.com/davicafu/userlab/internal/user/domain"
)

func setupRepo(t *testing.T) (*UserRepoSQLite, *sql.DB, *roleDomain.Role) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSQLite(db))

	role := &roleDomain.Role{ID: uuid.New(), Name: "Admin", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	roleRepo := roleSQLite.NewRoleRepoSQLite(db)
	require.NoError(t, roleRepo.Create(context.Background(), role, outboxEvt("role", role.ID)))

	return NewUserRepoSQLite(db), db, role
}

func outboxEvt(aggregate string, id uuid.UUID) sharedDomain.OutboxEvent {
	return sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: aggregate,
		AggregateID:   id.String(),
		EventType:     aggregate + ".created",
		Payload:       map[string]interface{}{"id": id.String()},
		CreatedAt:     time.Now().UTC(),
	}
}

func storedUser(first, last, email string, role *roleDomain.Role) *domain.User {
	now := time.Now().UTC()
	roleID := role.ID
	return &domain.User{
		ID:           uuid.New(),
		FirstName:    first,
		LastName:     last,
		DateOfBirth:  time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC),
		Gender:       "Female",
		Email:        email,
		PasswordHash: "$2a$10$fakehashfakehashfakehash",
		RoleID:       &roleID,
		RoleName:     role.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCreateAndGetByID(t *testing.T) {
	repo, _, role := setupRepo(t)
	u := storedUser("Ana", "García", "ana@example.com", role)

	require.NoError(t, repo.Create(context.Background(), u, outboxEvt("user", u.ID)))

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, "Admin", got.RoleName)
	require.NotNil(t, got.RoleID)
	assert.Equal(t, role.ID, *got.RoleID)
}

func TestCreate_DuplicateEmailIsConflict(t *testing.T) {
	repo, db, role := setupRepo(t)

	u1 := storedUser("Ana", "García", "dup@example.com", role)
	require.NoError(t, repo.Create(context.Background(), u1, outboxEvt("user", u1.ID)))

	u2 := storedUser("Otra", "López", "dup@example.com", role)
	err := repo.Create(context.Background(), u2, outboxEvt("user", u2.ID))
	assert.True(t, sharedDomain.IsKind(err, sharedDomain.KindConflict))

	// El alta fallida no deja rastro: ni usuario, ni rol asignado, ni outbox.
	var users, assignments, outbox int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&users))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM user_roles`).Scan(&assignments))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM outbox WHERE aggregate_type = 'user'`).Scan(&outbox))
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, assignments)
	assert.Equal(t, 1, outbox)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, _, _ := setupRepo(t)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, sharedDomain.IsKind(err, sharedDomain.KindNotFound))
}

func TestDeleteByID_RemovesAssignment(t *testing.T) {
	repo, db, role := setupRepo(t)
	u := storedUser("Ana", "García", "ana@example.com", role)
	require.NoError(t, repo.Create(context.Background(), u, outboxEvt("user", u.ID)))

	require.NoError(t, repo.DeleteByID(context.Background(), u.ID, outboxEvt("user", u.ID)))

	var assignments int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM user_roles`).Scan(&assignments))
	assert.Equal(t, 0, assignments)

	_, err := repo.GetByID(context.Background(), u.ID)
	assert.True(t, sharedDomain.IsKind(err, sharedDomain.KindNotFound))
}

func TestUpdate_MissingUserIsNotFound(t *testing.T) {
	repo, _, role := setupRepo(t)
	u := storedUser("Ana", "García", "ana@example.com", role)

	err := repo.Update(context.Background(), u, outboxEvt("user", u.ID))
	assert.True(t, sharedDomain.IsKind(err, sharedDomain.KindNotFound))
}

func TestList_SearchSortAndPaginate(t *testing.T) {
	repo, _, role := setupRepo(t)

	for i, name := range []string{"Carlos", "Ana", "Carmen", "Bob"} {
		u := storedUser(name, "López", fmt.Sprintf("u%d@example.com", i), role)
		require.NoError(t, repo.Create(context.Background(), u, outboxEvt("user", u.ID)))
	}

	users, total, err := repo.List(context.Background(), domain.UserCriteria{
		SearchTerm:    "car",
		SortBy:        "firstName",
		SortDirection: "asc",
		Page:          1,
		PageSize:      10,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), total)
	require.Len(t, users, 2)
	assert.Equal(t, "Carlos", users[0].FirstName)
	assert.Equal(t, "Carmen", users[1].FirstName)
}

func TestList_CountIgnoresPagination(t *testing.T) {
	repo, _, role := setupRepo(t)

	for i := 0; i < 7; i++ {
		u := storedUser(fmt.Sprintf("User%d", i), "López", fmt.Sprintf("u%d@example.com", i), role)
		require.NoError(t, repo.Create(context.Background(), u, outboxEvt("user", u.ID)))
	}

	users, total, err := repo.List(context.Background(), domain.UserCriteria{Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Len(t, users, 2)
}

func TestGetByEmail(t *testing.T) {
	repo, _, role := setupRepo(t)
	u := storedUser("Ana", "García", "ana@example.com", role)
	require.NoError(t, repo.Create(context.Background(), u, outboxEvt("user", u.ID)))

	got, err := repo.GetByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.True(t, sharedDomain.IsKind(err, sharedDomain.KindNotFound))
}
