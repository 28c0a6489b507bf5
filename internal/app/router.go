package app

import (
	"github.com/gin-gonic/gin"

	httpx "github.com/gestorbiz/gestor-backend/internal/http"
	httpMW "github.com/gestorbiz/gestor-backend/internal/http/middleware"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, h Handlers, authMW *httpMW.AuthMiddleware) *gin.Engine {
	log.Info("Wiring router...")
	return httpx.NewRouter(httpx.RouterConfig{
		Log:            log,
		AuthMiddleware: authMW,

		HealthHandler:   h.Health,
		AuthHandler:     h.Auth,
		TeamHandler:     h.Team,
		ServiceHandler:  h.Service,
		StoreHandler:    h.Store,
		ProductHandler:  h.Product,
		RealtimeHandler: h.Realtime,
	})
}
