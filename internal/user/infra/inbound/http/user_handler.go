package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	sharedHTTP "github.com/davicafu/userlab/internal/shared/infra/inbound/http"
	sharedQuery "github.com/davicafu/userlab/internal/shared/platform/query"
	"github.com/davicafu/userlab/internal/user/application"
	"github.com/davicafu/userlab/internal/user/domain"
)

// UserHandler encapsula los endpoints HTTP relacionados con User.
// Los errores no se responden aquí: se registran con c.Error y los
// traduce la frontera de excepciones.
type UserHandler struct {
	service   *application.UserService
	analytics domain.UserAnalyticsRepository
}

// NewUserHandler crea un nuevo UserHandler. analytics puede ser nil si
// la auditoría no está habilitada.
func NewUserHandler(service *application.UserService, analytics domain.UserAnalyticsRepository) *UserHandler {
	return &UserHandler{service: service, analytics: analytics}
}

// ---------------- DTOs ----------------

type userResponse struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"firstName"`
	MiddleName  string    `json:"middleName,omitempty"`
	LastName    string    `json:"lastName"`
	FullName    string    `json:"fullName"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	Age         int       `json:"age"`
	Gender      string    `json:"gender"`
	Email       string    `json:"emailAddress"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	RoleName    string    `json:"roleName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		MiddleName:  u.MiddleName,
		LastName:    u.LastName,
		FullName:    u.FullName(),
		DateOfBirth: u.DateOfBirth,
		Age:         u.Age(),
		Gender:      u.Gender,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		RoleName:    u.RoleName,
		CreatedAt:   u.CreatedAt,
	}
}

func toUserResponses(users []*domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

// ---------------- Handlers ----------------

// CreateUser endpoint POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req struct {
		FirstName   string `json:"firstName" binding:"required"`
		MiddleName  string `json:"middleName"`
		LastName    string `json:"lastName" binding:"required"`
		DateOfBirth string `json:"dateOfBirth" binding:"required"`
		Gender      string `json:"gender"`
		Email       string `json:"emailAddress" binding:"required,email"`
		Password    string `json:"password" binding:"required,min=8"`
		PhoneNumber string `json:"phoneNumber"`
		RoleID      string `json:"roleId" binding:"required,uuid"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(sharedHTTP.BindingError(err))
		return
	}

	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		c.Error(sharedDomain.NewValidation("One or more validation errors occurred.", sharedDomain.FieldViolation{
			Field:          "dateOfBirth",
			Message:        "The dateOfBirth field must be a valid date.",
			AttemptedValue: req.DateOfBirth,
		}))
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), application.CreateUserInput{
		FirstName:   req.FirstName,
		MiddleName:  req.MiddleName,
		LastName:    req.LastName,
		DateOfBirth: dob,
		Gender:      req.Gender,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		RoleID:      uuid.MustParse(req.RoleID),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// GetUser endpoint GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// ListUsers endpoint GET /users
// Filtros, ordenación y paginación llegan por query string; los
// metadatos de página se exponen también como headers X-Pagination-*.
func (h *UserHandler) ListUsers(c *gin.Context) {
	criteria, err := parseCriteria(c)
	if err != nil {
		c.Error(err)
		return
	}

	result, err := h.service.ListUsers(c.Request.Context(), criteria)
	if err != nil {
		c.Error(err)
		return
	}

	writePaginationHeaders(c, result)
	c.JSON(http.StatusOK, gin.H{
		"items":      toUserResponses(result.Items),
		"totalCount": result.TotalCount,
		"page":       result.Page,
		"pageSize":   result.PageSize,
		"totalPages": result.TotalPages(),
	})
}

// ListAllUsers endpoint GET /users/all
func (h *UserHandler) ListAllUsers(c *gin.Context) {
	users, err := h.service.ListAllUsers(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toUserResponses(users))
}

// UpdateUser endpoint PUT /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		FirstName   string `json:"firstName" binding:"required"`
		MiddleName  string `json:"middleName"`
		LastName    string `json:"lastName" binding:"required"`
		DateOfBirth string `json:"dateOfBirth" binding:"required"`
		Gender      string `json:"gender"`
		Email       string `json:"emailAddress" binding:"required,email"`
		PhoneNumber string `json:"phoneNumber"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(sharedHTTP.BindingError(err))
		return
	}

	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		c.Error(sharedDomain.NewValidation("One or more validation errors occurred.", sharedDomain.FieldViolation{
			Field:          "dateOfBirth",
			Message:        "The dateOfBirth field must be a valid date.",
			AttemptedValue: req.DateOfBirth,
		}))
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), id, application.UpdateUserInput{
		FirstName:   req.FirstName,
		MiddleName:  req.MiddleName,
		LastName:    req.LastName,
		DateOfBirth: dob,
		Gender:      req.Gender,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// DeleteUser endpoint DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ValidateCredentials endpoint POST /users/validate
func (h *UserHandler) ValidateCredentials(c *gin.Context) {
	var req struct {
		Email    string `json:"emailAddress" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(sharedHTTP.BindingError(err))
		return
	}

	user, err := h.service.VerifyCredentials(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// UserTrend endpoint GET /analytics/users/trend
func (h *UserHandler) UserTrend(c *gin.Context) {
	if h.analytics == nil {
		c.Error(sharedDomain.NewNotFoundMessage("User analytics is not enabled."))
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	if v := c.Query("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			c.Error(sharedDomain.NewValidation("One or more validation errors occurred.", sharedDomain.FieldViolation{
				Field: "from", Message: "The from field must be a valid date.", AttemptedValue: v,
			}))
			return
		}
		start = t
	}
	if v := c.Query("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			c.Error(sharedDomain.NewValidation("One or more validation errors occurred.", sharedDomain.FieldViolation{
				Field: "to", Message: "The to field must be a valid date.", AttemptedValue: v,
			}))
			return
		}
		end = t
	}

	trend, err := h.analytics.DailyTrend(c.Request.Context(), start, end)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, trend)
}

// ---------------- Parseo de la query string ----------------

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(sharedDomain.NewValidation("One or more validation errors occurred.", sharedDomain.FieldViolation{
			Field: "id", Message: "The id field must be a valid UUID.", AttemptedValue: c.Param("id"),
		}))
		return uuid.Nil, false
	}
	return id, true
}

// parseDate acepta fecha sola o timestamp RFC3339.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// parseCriteria recoge todos los filtros soportados. Los valores
// malformados se acumulan como violaciones y se rechazan juntos.
func parseCriteria(c *gin.Context) (domain.UserCriteria, error) {
	criteria := domain.UserCriteria{
		SearchTerm:    c.Query("searchTerm"),
		FirstName:     c.Query("firstName"),
		LastName:      c.Query("lastName"),
		Email:         c.Query("email"),
		PhoneNumber:   c.Query("phoneNumber"),
		Gender:        c.Query("gender"),
		RoleName:      c.Query("roleName"),
		SortBy:        c.Query("sortBy"),
		SortDirection: c.Query("sortDirection"),
	}

	var violations []sharedDomain.FieldViolation

	parseIntParam := func(name string, dest *int) {
		v := c.Query(name)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			violations = append(violations, sharedDomain.FieldViolation{
				Field: name, Message: fmt.Sprintf("The %s field must be an integer.", name), AttemptedValue: v,
			})
			return
		}
		*dest = n
	}

	parseDateParam := func(name string, dest **time.Time) {
		v := c.Query(name)
		if v == "" {
			return
		}
		t, err := parseDate(v)
		if err != nil {
			violations = append(violations, sharedDomain.FieldViolation{
				Field: name, Message: fmt.Sprintf("The %s field must be a valid date.", name), AttemptedValue: v,
			})
			return
		}
		*dest = &t
	}

	parseIntParam("page", &criteria.Page)
	parseIntParam("pageSize", &criteria.PageSize)
	parseDateParam("dateOfBirthFrom", &criteria.DateOfBirthFrom)
	parseDateParam("dateOfBirthTo", &criteria.DateOfBirthTo)
	parseDateParam("createdFrom", &criteria.CreatedFrom)
	parseDateParam("createdTo", &criteria.CreatedTo)

	if len(violations) > 0 {
		return domain.UserCriteria{}, sharedDomain.NewValidation("One or more validation errors occurred.", violations...)
	}
	return criteria, nil
}

func writePaginationHeaders(c *gin.Context, r sharedQuery.PagedResult[*domain.User]) {
	c.Header("X-Pagination-TotalCount", strconv.FormatInt(r.TotalCount, 10))
	c.Header("X-Pagination-TotalPages", strconv.FormatInt(r.TotalPages(), 10))
	c.Header("X-Pagination-CurrentPage", strconv.Itoa(r.Page))
	c.Header("X-Pagination-PageSize", strconv.Itoa(r.PageSize))
	c.Header("X-Pagination-HasPrevious", strconv.FormatBool(r.HasPrevious()))
	c.Header("X-Pagination-HasNext", strconv.FormatBool(r.HasNext()))
}
