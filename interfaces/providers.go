package interfaces

import (
	"context"
	"errors"
	"time"

	"campusguard/models"
)

// ErrKeyNotFound is returned by KeyValueStore lookups for missing keys.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the durable namespace-scoped store backing the session
// cache and the offline queue.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// LocationProvider abstracts the device positioning source.
type LocationProvider interface {
	// PermissionState reports whether the device granted location access.
	PermissionState(ctx context.Context) (granted bool, err error)
	// CurrentFix returns the freshest position within the given constraints.
	CurrentFix(ctx context.Context, timeout time.Duration, maxAge time.Duration) (*models.LocationData, error)
	// Watch streams position updates until the returned stop function is
	// called. Updates arriving faster than minInterval or closer than
	// minDistance meters apart are dropped.
	Watch(ctx context.Context, minInterval time.Duration, minDistance float64, fn func(models.LocationData)) (stop func(), err error)
}

// AudioRecorder abstracts the device microphone capture pipeline.
type AudioRecorder interface {
	PermissionState(ctx context.Context) (granted bool, err error)
	Start(ctx context.Context) error
	// Stop ends the capture and returns the recorded payload.
	Stop(ctx context.Context) (data []byte, mimeType string, err error)
	Recording() bool
}

// ConnectivityProbe reports whether the document store is reachable.
type ConnectivityProbe interface {
	IsOnline(ctx context.Context) bool
}

// Broadcaster pushes live updates to connected responder clients.
type Broadcaster interface {
	BroadcastEmergencyAlert(alert models.WSEmergencyAlert)
	BroadcastSessionUpdate(update models.WSSessionUpdate)
	BroadcastLocationUpdate(update models.WSLocationUpdate)
	BroadcastHazardAlert(alert models.WSHazardAlert)
	IsUserOnline(userID string) bool
}
