package notify

import (
	"context"

	"github.com/crimson-sun/paperscout/internal/model"
)

// Notifier delivers a built digest to one destination.
type Notifier interface {
	Send(ctx context.Context, d model.Digest) error
	Close() error
}
