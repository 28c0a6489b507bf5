package app

import (
	"time"

	"github.com/gestorbiz/gestor-backend/internal/pkg/envutil"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
)

type Config struct {
	HTTPAddr        string
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Journal runs still marked running after this age are compensated at
	// startup; they belong to a process that died mid-flow.
	SagaStaleAfter time.Duration

	CacheSnapshotKey      string
	CacheSnapshotTTL      time.Duration
	CacheSnapshotInterval time.Duration

	Environment string
	Version     string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		HTTPAddr:        envutil.GetEnv("HTTP_ADDR", ":8080", log),
		JWTSecretKey:    envutil.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		AccessTokenTTL:  time.Duration(envutil.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)) * time.Second,
		RefreshTokenTTL: time.Duration(envutil.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)) * time.Second,

		SagaStaleAfter: time.Duration(envutil.GetEnvAsInt("SAGA_STALE_AFTER", 300, log)) * time.Second,

		CacheSnapshotKey:      envutil.GetEnv("CACHE_SNAPSHOT_KEY", "entity_cache:snapshot", log),
		CacheSnapshotTTL:      time.Duration(envutil.GetEnvAsInt("CACHE_SNAPSHOT_TTL", 3600, log)) * time.Second,
		CacheSnapshotInterval: time.Duration(envutil.GetEnvAsInt("CACHE_SNAPSHOT_INTERVAL", 60, log)) * time.Second,

		Environment: envutil.GetEnv("APP_ENV", "development", log),
		Version:     envutil.GetEnv("APP_VERSION", "dev", log),
	}
}
