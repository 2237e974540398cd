package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/George-Dev-Web/cakes2/authz"
	cakecontroller "github.com/George-Dev-Web/cakes2/controllers/cake"
	customizationcontroller "github.com/George-Dev-Web/cakes2/controllers/customization"
	ordercontroller "github.com/George-Dev-Web/cakes2/controllers/order"
	uploadcontroller "github.com/George-Dev-Web/cakes2/controllers/upload"
	usercontroller "github.com/George-Dev-Web/cakes2/controllers/user"
	"github.com/George-Dev-Web/cakes2/middleware"
)

// SetupAdminRoutes registers /api/admin/*. Every group checks the caller's
// role against the casbin policy.
func SetupAdminRoutes(api *gin.RouterGroup, app *App) {
	d := app.Deps
	adminGroup := api.Group("/admin", middleware.RequireAuth())

	cakes := adminGroup.Group("/cakes", app.allow(authz.ResourceCakes, authz.ActionManage))
	{
		cakes.POST("", cakecontroller.CreateCake(d))
		cakes.GET("/export", cakecontroller.ExportCakesToExcel(d))
		cakes.POST("/import", cakecontroller.ImportCakesFromExcel(d))
		cakes.PUT("/:id", cakecontroller.UpdateCake(d))
		cakes.DELETE("/:id", cakecontroller.DeleteCake(d))
		cakes.POST("/:id/images", cakecontroller.AddCakeImage(d))
		cakes.DELETE("/:id/images/:image_id", cakecontroller.DeleteCakeImage(d))
	}

	customizations := adminGroup.Group("/customizations", app.allow(authz.ResourceCustomizations, authz.ActionManage))
	{
		customizations.GET("", customizationcontroller.GetAllCustomizations(d))
		customizations.POST("", customizationcontroller.CreateCustomization(d))
		customizations.PUT("/:id", customizationcontroller.UpdateCustomization(d))
		customizations.DELETE("/:id", customizationcontroller.DeleteCustomization(d))
	}

	orders := adminGroup.Group("/orders", app.allow(authz.ResourceOrders, authz.ActionManage))
	{
		orders.GET("/export", ordercontroller.ExportOrdersToExcel(d))
		orders.GET("/ws", ordercontroller.ServeWS(app.Hub, app.CORSOrigins))
		orders.PUT("/:id/payment", ordercontroller.UpdatePaymentStatus(d))
	}

	users := adminGroup.Group("/users", app.allow(authz.ResourceUsers, authz.ActionManage))
	{
		users.GET("", usercontroller.GetAllUsers(d))
		users.PUT("/:id/admin", usercontroller.SetAdmin(d))
	}

	adminGroup.POST("/upload/image",
		app.allow(authz.ResourceUploads, authz.ActionWrite),
		uploadcontroller.UploadImage(d))
}
