package device

import (
	"context"
	"time"
)

// Store persists devices.
type Store interface {
	// Create validates and registers a device with status "unknown".
	Create(ctx context.Context, in NewDevice) (*Device, error)

	// Get returns one device. Unknown or malformed IDs wrap ErrNotFound.
	Get(ctx context.Context, id string) (*Device, error)

	// List returns every device, newest first.
	List(ctx context.Context) ([]Device, error)

	// Delete removes a device. Unknown IDs wrap ErrNotFound.
	Delete(ctx context.Context, id string) error

	// RecordStatus stores the outcome of a metrics collection. An online
	// device gets seen as its last-seen time; an offline one keeps the
	// previous value.
	RecordStatus(ctx context.Context, id string, online bool, seen time.Time) error

	Close() error
}
