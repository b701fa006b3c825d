package http

import "github.com/gin-gonic/gin"

// RegisterUserRoutes registra las rutas HTTP del dominio de usuarios.
func RegisterUserRoutes(r *gin.Engine, handler *UserHandler) {
	users := r.Group("/users")
	{
		users.POST("", handler.CreateUser)
		users.GET("", handler.ListUsers)
		users.GET("/all", handler.ListAllUsers)
		users.POST("/validate", handler.ValidateCredentials)
		users.GET("/:id", handler.GetUser)
		users.PUT("/:id", handler.UpdateUser)
		users.DELETE("/:id", handler.DeleteUser)
	}

	r.GET("/analytics/users/trend", handler.UserTrend)
}
