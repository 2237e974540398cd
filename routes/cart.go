package routes

import (
	"github.com/gin-gonic/gin"

	cartcontroller "github.com/George-Dev-Web/cakes2/controllers/cart"
	"github.com/George-Dev-Web/cakes2/middleware"
)

// SetupCartRoutes registers /api/cart/*. Signed-in callers use their own
// cart; everyone else gets a guest session cookie.
func SetupCartRoutes(api *gin.RouterGroup, app *App) {
	d := app.Deps
	cartGroup := api.Group("/cart", middleware.GuestSession(app.SecureCookie))
	{
		cartGroup.GET("", cartcontroller.GetCart(d))
		cartGroup.DELETE("", cartcontroller.ClearCart(d))
		cartGroup.POST("/clear", cartcontroller.ClearCart(d))

		cartGroup.POST("/items", cartcontroller.AddItem(d))
		cartGroup.PUT("/items/:id", cartcontroller.UpdateItem(d))
		cartGroup.DELETE("/items/:id", cartcontroller.RemoveItem(d))
		cartGroup.POST("/items/:id/images", cartcontroller.UploadItemImage(d))
	}
}
