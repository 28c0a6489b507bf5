package app

import (
	httpH "github.com/gestorbiz/gestor-backend/internal/http/handlers"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
	"github.com/gestorbiz/gestor-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	Team     *httpH.TeamHandler
	Service  *httpH.ServiceHandler
	Store    *httpH.StoreHandler
	Product  *httpH.ProductHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, s Services, hub *realtime.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Auth:     httpH.NewAuthHandler(s.Auth),
		Team:     httpH.NewTeamHandler(s.Team),
		Service:  httpH.NewServiceHandler(s.Catalog, s.Team),
		Store:    httpH.NewStoreHandler(s.Store, s.Team),
		Product:  httpH.NewProductHandler(s.Product, s.Team),
		Realtime: httpH.NewRealtimeHandler(log, hub, s.Team),
	}
}
