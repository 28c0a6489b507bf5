package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gestorbiz/gestor-backend/internal/data/db"
	httpMW "github.com/gestorbiz/gestor-backend/internal/http/middleware"
	"github.com/gestorbiz/gestor-backend/internal/observability"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
	"github.com/gestorbiz/gestor-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Hub      *realtime.Hub

	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}

	clientset, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	hub := realtime.NewHub(log)
	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, clientset)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset, hub)
	authMW := httpMW.NewAuthMiddleware(log, serviceset.Auth)
	router := wireRouter(log, handlerset, authMW)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Clients:  clientset,
		Repos:    reposet,
		Services: serviceset,
		Hub:      hub,
	}, nil
}

// Start runs startup recovery and the background loops: compensate journal
// runs orphaned by a crash, hydrate the entity cache, forward bus events into
// the hub and cache, and periodically snapshot the cache to Redis.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.otelShutdown = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: "gestor-backend",
		Environment: a.Cfg.Environment,
		Version:     a.Cfg.Version,
	})

	if n, err := a.Services.Saga.ReconcileStale(ctx, a.Cfg.SagaStaleAfter); err != nil {
		a.Log.Warn("stale journal sweep failed", "error", err)
	} else if n > 0 {
		a.Log.Info("compensated stale journal runs", "count", n)
	}

	if a.Clients.Redis != nil {
		if err := a.Services.Cache.LoadSnapshot(ctx); err != nil {
			a.Log.Warn("cache snapshot load failed", "error", err)
		}
	}
	if err := a.Services.CacheWarmer.Warm(ctx); err != nil {
		a.Log.Warn("cache warm failed", "error", err)
	}

	if a.Clients.Bus != nil {
		err := a.Clients.Bus.StartForwarder(ctx, func(msg realtime.ChangeEvent) {
			a.Services.Cache.ApplyEvent(msg)
			a.Hub.Broadcast(msg)
		})
		if err != nil {
			a.Log.Warn("change bus forwarder failed to start", "error", err)
		}
	}

	if a.Clients.Redis != nil {
		go a.snapshotLoop(ctx)
	}
}

func (a *App) snapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(a.Cfg.CacheSnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Services.Cache.SaveSnapshot(ctx, a.Cfg.CacheSnapshotTTL); err != nil {
				a.Log.Warn("cache snapshot save failed", "error", err)
			}
		}
	}
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.otelShutdown(ctx)
		cancel()
	}
	if a.Clients.Bus != nil {
		a.Clients.Bus.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
