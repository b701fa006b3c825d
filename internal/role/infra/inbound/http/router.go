package http

import "github.com/gin-gonic/gin"

// RegisterRoleRoutes registra las rutas HTTP del dominio de roles.
func RegisterRoleRoutes(r *gin.Engine, handler *RoleHandler) {
	roles := r.Group("/roles")
	{
		roles.POST("", handler.CreateRole)
		roles.GET("", handler.ListRoles)
		roles.GET("/:id", handler.GetRole)
	}
}
