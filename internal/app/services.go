package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
	"github.com/gestorbiz/gestor-backend/internal/services"
	"github.com/gestorbiz/gestor-backend/internal/txn"
)

type Services struct {
	Avatar services.AvatarService
	Auth   services.AuthService

	Saga        services.SagaService
	Coordinator *txn.Coordinator
	Notifier    services.ChangeNotifier

	Cache       *services.EntityCache
	CacheWarmer *services.CacheWarmer

	Team    services.TeamService
	Catalog services.CatalogService
	Store   services.StoreService
	Product services.ProductService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")

	avatar, err := services.NewAvatarService(log, c.Bucket)
	if err != nil {
		return Services{}, fmt.Errorf("init avatar service: %w", err)
	}
	auth := services.NewAuthService(db, log, r.User, r.UserToken, avatar,
		cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	saga := services.NewSagaService(db, log, r.SagaRun, r.SagaAction, c.Bucket)
	coordinator := txn.NewCoordinator(log, saga)
	notifier := services.NewChangeNotifier(log, c.Bus)

	cache := services.NewEntityCache(log, c.Redis, cfg.CacheSnapshotKey)
	warmer := services.NewCacheWarmer(log, cache, r.Team, r.Service, r.Store, r.Product)

	team := services.NewTeamService(log, coordinator, r.Team, r.TeamMember,
		r.TeamServiceType, c.Bucket, notifier, cache)
	catalog := services.NewCatalogService(log, coordinator, r.Service, r.ServiceClient,
		r.TeamServiceType, c.Bucket, notifier, cache)
	store := services.NewStoreService(log, coordinator, r.Store, r.StoreContact,
		r.StoreAddress, c.Bucket, notifier, cache)
	product := services.NewProductService(log, coordinator, r.Product, r.ProductIdentifier,
		r.Store, c.Bucket, notifier, cache)

	return Services{
		Avatar:      avatar,
		Auth:        auth,
		Saga:        saga,
		Coordinator: coordinator,
		Notifier:    notifier,
		Cache:       cache,
		CacheWarmer: warmer,
		Team:        team,
		Catalog:     catalog,
		Store:       store,
		Product:     product,
	}, nil
}
