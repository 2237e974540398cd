package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/George-Dev-Web/cakes2/auth"
	"github.com/George-Dev-Web/cakes2/authz"
	"github.com/George-Dev-Web/cakes2/controllers"
	ordercontroller "github.com/George-Dev-Web/cakes2/controllers/order"
	"github.com/George-Dev-Web/cakes2/middleware"
)

// App is everything the route groups hand to their handlers.
type App struct {
	Deps     *controllers.Deps
	Auth     *auth.Deps
	Enforcer *authz.Enforcer
	Hub      *ordercontroller.Hub
	Log      *zap.Logger

	CORSOrigins  []string
	SecureCookie bool
	Debug        bool
	// UploadsDir is served under /uploads when set.
	UploadsDir string
}

// NewRouter builds the gin engine with the global middleware and every route
// group.
func NewRouter(app *App) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	r.Use(
		middleware.Recovery(app.Log, app.Debug),
		middleware.RequestLogger(app.Log),
		cors.New(cors.Config{
			AllowOrigins:     app.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.ErrorHandler(app.Log, app.Debug),
	)

	if app.UploadsDir != "" {
		r.Static("/uploads", app.UploadsDir)
	}
	r.GET("/health", health(app))

	SetupRoutes(r, app)
	return r
}

// SetupRoutes wires every group under /api.
func SetupRoutes(r *gin.Engine, app *App) {
	api := r.Group("/api")
	api.Use(middleware.Authenticate(app.Auth.Tokens))

	SetupAuthRoutes(api, app)
	SetupCatalogRoutes(api, app)
	SetupCartRoutes(api, app)
	SetupOrderRoutes(api, app)
	SetupAdminRoutes(api, app)
}

func (app *App) allow(resource, action string) gin.HandlerFunc {
	return middleware.RequirePermission(app.Enforcer, app.Log, resource, action)
}

func health(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		sqlDB, err := app.Deps.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			app.Log.Warn("health check failed", zap.Error(err))
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "time": time.Now().UTC()})
	}
}
