package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	roleApp "github.com/davicafu/userlab/internal/role/application"
	sharedHTTP "github.com/davicafu/userlab/internal/shared/infra/inbound/http"
	userApp "github.com/davicafu/userlab/internal/user/application"
	"github.com/davicafu/userlab/tests/mocks"
)

type fixture struct {
	router *gin.Engine
	repo   *mocks.InMemoryUserRepo
	roleID uuid.UUID
}

func newHandlerFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := mocks.NewInMemoryUserRepo()
	roles := mocks.NewInMemoryRoleRepo()
	log := zap.NewNop()

	roleService := roleApp.NewRoleService(roles, log)
	role, err := roleService.CreateRole(context.Background(), "Admin")
	require.NoError(t, err)

	userService := userApp.NewUserService(repo, roles, &mocks.DummyCache{}, log)

	r := gin.New()
	r.Use(sharedHTTP.TraceID())
	r.Use(sharedHTTP.ExceptionBoundary(log, false))
	RegisterUserRoutes(r, NewUserHandler(userService, nil))

	return &fixture{router: r, repo: repo, roleID: role.ID}
}

func (f *fixture) do(t *testing.T, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) createUser(t *testing.T, first, email string) uuid.UUID {
	t.Helper()
	w := f.do(t, http.MethodPost, "/users", gin.H{
		"firstName":    first,
		"lastName":     "García",
		"dateOfBirth":  "1990-05-10",
		"gender":       "Female",
		"emailAddress": email,
		"password":     "s3cret-pass",
		"phoneNumber":  "555-0101",
		"roleId":       f.roleID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ID
}

// ---------------- Create ----------------

func TestCreateUser_ReturnsSummary(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodPost, "/users", gin.H{
		"firstName":    "Ana",
		"lastName":     "García",
		"dateOfBirth":  "1990-05-10",
		"gender":       "Female",
		"emailAddress": "ana@example.com",
		"password":     "s3cret-pass",
		"roleId":       f.roleID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Ana García", resp["fullName"])
	assert.Equal(t, "ana@example.com", resp["emailAddress"])
	assert.Equal(t, "Admin", resp["roleName"])

	// El hash jamás viaja en la respuesta.
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), "Hash")
}

func TestCreateUser_MissingFieldsAreAggregated(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodPost, "/users", gin.H{
		"emailAddress": "not-an-email",
		"password":     "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Type             string `json:"type"`
		ValidationErrors []struct {
			Field string `json:"field"`
		} `json:"validationErrors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ValidationError", body.Type)
	// firstName, lastName, dateOfBirth, email inválido, password corta y roleId.
	assert.GreaterOrEqual(t, len(body.ValidationErrors), 4)
}

func TestCreateUser_DuplicateEmailIsConflict(t *testing.T) {
	f := newHandlerFixture(t)
	f.createUser(t, "Ana", "dup@example.com")

	w := f.do(t, http.MethodPost, "/users", gin.H{
		"firstName":    "Otra",
		"lastName":     "García",
		"dateOfBirth":  "1991-01-01",
		"gender":       "Female",
		"emailAddress": "dup@example.com",
		"password":     "s3cret-pass",
		"roleId":       f.roleID.String(),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "\"type\":\"Conflict\"")
}

// ---------------- Get / Delete ----------------

func TestGetUser_NotFoundShape(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/users/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "\"type\":\"NotFound\"")
}

func TestGetUser_MalformedIDIsValidation(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/users/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "\"type\":\"ValidationError\"")
}

func TestDeleteUser_NoContent(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.createUser(t, "Ana", "ana@example.com")

	w := f.do(t, http.MethodDelete, "/users/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/users/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ---------------- Listado ----------------

func TestListUsers_HeadersAndBody(t *testing.T) {
	f := newHandlerFixture(t)
	for i := 0; i < 25; i++ {
		f.createUser(t, fmt.Sprintf("User%02d", i), fmt.Sprintf("user%02d@example.com", i))
	}

	w := f.do(t, http.MethodGet, "/users?page=3&pageSize=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "25", w.Header().Get("X-Pagination-TotalCount"))
	assert.Equal(t, "3", w.Header().Get("X-Pagination-TotalPages"))
	assert.Equal(t, "3", w.Header().Get("X-Pagination-CurrentPage"))
	assert.Equal(t, "10", w.Header().Get("X-Pagination-PageSize"))
	assert.Equal(t, "true", w.Header().Get("X-Pagination-HasPrevious"))
	assert.Equal(t, "false", w.Header().Get("X-Pagination-HasNext"))

	var body struct {
		Items      []json.RawMessage `json:"items"`
		TotalCount int64             `json:"totalCount"`
		Page       int               `json:"page"`
		PageSize   int               `json:"pageSize"`
		TotalPages int64             `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Items, 5)
	assert.Equal(t, int64(25), body.TotalCount)
	assert.Equal(t, 3, body.Page)
}

func TestListUsers_EmptyPageReturnsEmptyArray(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/users?page=9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "\"items\":[]")
	assert.Equal(t, "0", w.Header().Get("X-Pagination-TotalCount"))
}

func TestListUsers_InvalidDatesAreAggregated(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodGet, "/users?dateOfBirthFrom=notadate&createdTo=alsobad&page=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		ValidationErrors []struct {
			Field string `json:"field"`
		} `json:"validationErrors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.ValidationErrors, 3)
}

func TestListUsers_FiltersBySearchTerm(t *testing.T) {
	f := newHandlerFixture(t)
	f.createUser(t, "Carlos", "carlos@example.com")
	f.createUser(t, "Ana", "ana@example.com")
	f.createUser(t, "Carmen", "carmen@example.com")

	w := f.do(t, http.MethodGet, "/users?searchTerm=car&sortBy=firstName&sortDirection=asc", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Items []struct {
			FirstName string `json:"firstName"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 2)
	assert.Equal(t, "Carlos", body.Items[0].FirstName)
	assert.Equal(t, "Carmen", body.Items[1].FirstName)
}

// ---------------- Credenciales ----------------

func TestValidateCredentials_FailuresAreIndistinguishable(t *testing.T) {
	f := newHandlerFixture(t)
	f.createUser(t, "Ana", "ana@example.com")

	wUnknown := f.do(t, http.MethodPost, "/users/validate", gin.H{
		"emailAddress": "nobody@example.com", "password": "whatever1",
	})
	wWrong := f.do(t, http.MethodPost, "/users/validate", gin.H{
		"emailAddress": "ana@example.com", "password": "wrong-pass",
	})

	assert.Equal(t, http.StatusUnauthorized, wUnknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wWrong.Code)

	var bodyUnknown, bodyWrong map[string]interface{}
	require.NoError(t, json.Unmarshal(wUnknown.Body.Bytes(), &bodyUnknown))
	require.NoError(t, json.Unmarshal(wWrong.Body.Bytes(), &bodyWrong))
	assert.Equal(t, bodyUnknown["message"], bodyWrong["message"])
	assert.Equal(t, "Invalid email or password.", bodyWrong["message"])
}

func TestValidateCredentials_Success(t *testing.T) {
	f := newHandlerFixture(t)
	f.createUser(t, "Ana", "ana@example.com")

	w := f.do(t, http.MethodPost, "/users/validate", gin.H{
		"emailAddress": "ana@example.com", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ana@example.com")
}

// ---------------- /users/all ----------------

func TestListAllUsers(t *testing.T) {
	f := newHandlerFixture(t)
	f.createUser(t, "Ana", "ana@example.com")
	f.createUser(t, "Bob", "bob@example.com")

	w := f.do(t, http.MethodGet, "/users/all", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var users []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 2)
}

// La fecha RFC3339 también es aceptada en filtros de rango.
func TestListUsers_AcceptsRFC3339Dates(t *testing.T) {
	f := newHandlerFixture(t)
	f.createUser(t, "Ana", "ana@example.com")

	from := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	w := f.do(t, http.MethodGet, "/users?createdFrom="+from, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Pagination-TotalCount"))
}
