package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/gestorbiz/gestor-backend/internal/http/handlers"
	httpMW "github.com/gestorbiz/gestor-backend/internal/http/middleware"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	AuthHandler     *httpH.AuthHandler
	TeamHandler     *httpH.TeamHandler
	ServiceHandler  *httpH.ServiceHandler
	StoreHandler    *httpH.StoreHandler
	ProductHandler  *httpH.ProductHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.POST("/refresh", cfg.AuthHandler.Refresh)
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}

		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.Stream)
			protected.POST("/sse/subscribe", cfg.RealtimeHandler.Subscribe)
			protected.POST("/sse/unsubscribe", cfg.RealtimeHandler.Unsubscribe)
		}

		if cfg.TeamHandler != nil {
			protected.POST("/teams", cfg.TeamHandler.Create)
			protected.GET("/teams", cfg.TeamHandler.List)
			protected.GET("/teams/:id", cfg.TeamHandler.Get)
			protected.PATCH("/teams/:id", cfg.TeamHandler.Update)
			protected.DELETE("/teams/:id", cfg.TeamHandler.Delete)
		}

		if cfg.ServiceHandler != nil {
			protected.POST("/services", cfg.ServiceHandler.Create)
			protected.GET("/teams/:id/services", cfg.ServiceHandler.ListByTeam)
			protected.GET("/services/:id", cfg.ServiceHandler.Get)
			protected.PATCH("/services/:id", cfg.ServiceHandler.Update)
			protected.DELETE("/services/:id", cfg.ServiceHandler.Delete)
		}

		if cfg.StoreHandler != nil {
			protected.POST("/stores", cfg.StoreHandler.Create)
			protected.GET("/teams/:id/stores", cfg.StoreHandler.ListByTeam)
			protected.GET("/stores/:id", cfg.StoreHandler.Get)
			protected.PATCH("/stores/:id", cfg.StoreHandler.Update)
			protected.DELETE("/stores/:id", cfg.StoreHandler.Delete)
		}

		if cfg.ProductHandler != nil {
			protected.POST("/products", cfg.ProductHandler.Create)
			protected.GET("/teams/:id/products", cfg.ProductHandler.ListByTeam)
			protected.GET("/products/:id", cfg.ProductHandler.Get)
			protected.PATCH("/products/:id", cfg.ProductHandler.Update)
			protected.DELETE("/products/:id", cfg.ProductHandler.Delete)
		}
	}

	return r
}
