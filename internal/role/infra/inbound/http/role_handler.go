package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/davicafu/userlab/internal/role/application"
	"github.com/davicafu/userlab/internal/role/domain"
	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	sharedHTTP "github.com/davicafu/userlab/internal/shared/infra/inbound/http"
)

// RoleHandler encapsula los endpoints HTTP relacionados con Role.
type RoleHandler struct {
	service *application.RoleService
}

func NewRoleHandler(service *application.RoleService) *RoleHandler {
	return &RoleHandler{service: service}
}

type roleResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"roleName"`
}

func toRoleResponse(r *domain.Role) roleResponse {
	return roleResponse{ID: r.ID, Name: r.Name}
}

// CreateRole endpoint POST /roles
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req struct {
		Name string `json:"roleName" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(sharedHTTP.BindingError(err))
		return
	}

	role, err := h.service.CreateRole(c.Request.Context(), req.Name)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, toRoleResponse(role))
}

// GetRole endpoint GET /roles/:id
func (h *RoleHandler) GetRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(sharedDomain.NewValidation("One or more validation errors occurred.", sharedDomain.FieldViolation{
			Field: "id", Message: "The id field must be a valid UUID.", AttemptedValue: c.Param("id"),
		}))
		return
	}

	role, err := h.service.GetRole(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, toRoleResponse(role))
}

// ListRoles endpoint GET /roles
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	out := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRoleResponse(r))
	}
	c.JSON(http.StatusOK, out)
}
