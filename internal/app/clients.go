package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
	"github.com/gestorbiz/gestor-backend/internal/platform/storage"
	"github.com/gestorbiz/gestor-backend/internal/realtime/bus"
)

type Clients struct {
	Bucket storage.ObjectStore
	Bus    bus.Bus
	Redis  *goredis.Client
}

// wireClients builds the external clients. Redis is optional: without
// REDIS_ADDR the app runs single-node, with no cross-process fanout and no
// cache snapshot.
func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	bucket, err := storage.NewBucketService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket client: %w", err)
	}

	var changeBus bus.Bus
	var rdb *goredis.Client
	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		b, err := bus.NewRedisBus(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis change bus: %w", err)
		}
		changeBus = b

		rdb = goredis.NewClient(&goredis.Options{
			Addr:        addr,
			Password:    os.Getenv("REDIS_PASSWORD"),
			DialTimeout: 5 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return Clients{}, fmt.Errorf("ping redis: %w", err)
		}
	}

	return Clients{Bucket: bucket, Bus: changeBus, Redis: rdb}, nil
}
