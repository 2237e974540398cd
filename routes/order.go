package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/George-Dev-Web/cakes2/authz"
	ordercontroller "github.com/George-Dev-Web/cakes2/controllers/order"
	"github.com/George-Dev-Web/cakes2/middleware"
)

func SetupOrderRoutes(api *gin.RouterGroup, app *App) {
	d := app.Deps
	orders := api.Group("/orders")
	{
		orders.POST("",
			middleware.GuestSession(app.SecureCookie),
			app.allow(authz.ResourceOrders, authz.ActionWrite),
			ordercontroller.CreateOrder(d))

		orders.GET("", middleware.RequireAuth(), ordercontroller.ListOrders(d))
		orders.GET("/my-orders", middleware.RequireAuth(), ordercontroller.MyOrders(d))
		orders.GET("/track/:order_number", ordercontroller.TrackOrder(d))

		// Visibility is decided per order by the engine.
		orders.GET("/:id", ordercontroller.GetOrder(d))
		orders.GET("/:id/history", ordercontroller.GetOrderHistory(d))

		orders.PUT("/:id/status",
			middleware.RequireAuth(),
			app.allow(authz.ResourceOrders, authz.ActionManage),
			ordercontroller.UpdateOrderStatus(d))
	}
}
