package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/trestleworks/planledger/cmd/docs"
	portssvc "github.com/trestleworks/planledger/internal/core/ports/services"
	"github.com/trestleworks/planledger/internal/middleware"
	"github.com/trestleworks/planledger/internal/platform/config"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) {

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})
	r.GET("/", getHome)

	// Setup API v1 routes, passing service interfaces
	setupAPIV1Routes(r, cfg, services)

	// Swagger routes (conditionally available)
	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) {
	groupMiddleware := make([]gin.HandlerFunc, 0, 2)

	// Rate limit by client IP when configured. The format was validated at
	// config load.
	if cfg.RateLimit != "" {
		rate, _ := limiter.NewRateFromFormatted(cfg.RateLimit)
		store := memory.NewStore()
		groupMiddleware = append(groupMiddleware, middleware.RateLimit(limiter.New(store, rate)))
	}

	// JWT auth is optional: an empty secret leaves the API open.
	if cfg.JWTSecret != "" {
		groupMiddleware = append(groupMiddleware, middleware.AuthMiddleware(cfg.JWTSecret))
	}

	v1 := r.Group("/api/v1", groupMiddleware...)

	// Delegate route registration to specific handlers, passing required services
	registerPlanRoutes(v1, services.Plan)
	registerAccountRoutes(v1, services.Account, services.Balance)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	// Swagger setup
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
