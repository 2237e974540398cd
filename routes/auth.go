package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/George-Dev-Web/cakes2/auth"
	"github.com/George-Dev-Web/cakes2/middleware"
)

// SetupAuthRoutes registers /api/auth/*.
func SetupAuthRoutes(api *gin.RouterGroup, app *App) {
	d := app.Auth
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", auth.Register(d))
		authGroup.POST("/login", auth.Login(d))
		authGroup.POST("/logout", auth.Logout(d))
		authGroup.POST("/guest", auth.CreateGuestSession(d))
		authGroup.POST("/google", auth.Google(d))

		authGroup.GET("/me", middleware.RequireAuth(), auth.Me(d))
		authGroup.PUT("/profile", middleware.RequireAuth(), auth.UpdateProfile(d))
	}
}
