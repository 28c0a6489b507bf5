package bus

import (
	"context"

	"github.com/gestorbiz/gestor-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.ChangeEvent) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.ChangeEvent)) error
	Close() error
}
