package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/George-Dev-Web/cakes2/authz"
	cakecontroller "github.com/George-Dev-Web/cakes2/controllers/cake"
	customizationcontroller "github.com/George-Dev-Web/cakes2/controllers/customization"
)

// SetupCatalogRoutes registers the public storefront reads.
func SetupCatalogRoutes(api *gin.RouterGroup, app *App) {
	d := app.Deps

	cakes := api.Group("/cakes", app.allow(authz.ResourceCakes, authz.ActionRead))
	{
		cakes.GET("", cakecontroller.GetCakes(d))
		cakes.GET("/:id", cakecontroller.GetCake(d))
	}

	customizations := api.Group("/customizations", app.allow(authz.ResourceCustomizations, authz.ActionRead))
	{
		customizations.GET("", customizationcontroller.GetCustomizations(d))
		customizations.GET("/categories", customizationcontroller.GetCategories())
	}
}
