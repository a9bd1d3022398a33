package providers

import (
	"context"
	"testing"
	"time"

	"campusguard/models"

	"github.com/stretchr/testify/require"
)

func TestGatewayPermissionViews(t *testing.T) {
	gateway := NewDeviceGateway()
	ctx := context.Background()

	granted, err := gateway.LocationProvider().PermissionState(ctx)
	require.NoError(t, err)
	require.False(t, granted)

	gateway.ReportPermissions(true, false)

	granted, err = gateway.LocationProvider().PermissionState(ctx)
	require.NoError(t, err)
	require.True(t, granted)

	granted, err = gateway.AudioRecorder().PermissionState(ctx)
	require.NoError(t, err)
	require.False(t, granted)
}

func TestCurrentFixServesCachedReading(t *testing.T) {
	gateway := NewDeviceGateway()
	gateway.PushLocation(models.LocationData{Latitude: 37.44, Longitude: -122.14})

	fix, err := gateway.CurrentFix(context.Background(), time.Second, time.Minute)
	require.NoError(t, err)
	require.InDelta(t, 37.44, fix.Latitude, 1e-9)
}

func TestPushLocationClampsOutOfRangeReadings(t *testing.T) {
	gateway := NewDeviceGateway()
	gateway.PushLocation(models.LocationData{Latitude: 95, Longitude: 190})

	fix, err := gateway.CurrentFix(context.Background(), time.Second, time.Minute)
	require.NoError(t, err)
	require.InDelta(t, 90, fix.Latitude, 1e-9)
	require.InDelta(t, -170, fix.Longitude, 1e-9)
}

func TestCurrentFixRefusesCacheWhenMaxAgeZero(t *testing.T) {
	gateway := NewDeviceGateway()
	gateway.PushLocation(models.LocationData{Latitude: 37.44, Longitude: -122.14})

	done := make(chan struct{})
	go func() {
		// The request must wait for a fresh push.
		time.Sleep(20 * time.Millisecond)
		gateway.PushLocation(models.LocationData{Latitude: 38.0, Longitude: -122.0})
		close(done)
	}()

	fix, err := gateway.CurrentFix(context.Background(), 2*time.Second, 0)
	require.NoError(t, err)
	require.InDelta(t, 38.0, fix.Latitude, 1e-9)
	<-done
}

func TestCurrentFixTimesOutWithoutPushes(t *testing.T) {
	gateway := NewDeviceGateway()

	fix, err := gateway.CurrentFix(context.Background(), 20*time.Millisecond, 0)
	require.Error(t, err)
	require.Nil(t, fix)
}

func TestWatchFiltersByIntervalAndDistance(t *testing.T) {
	gateway := NewDeviceGateway()

	var readings []models.LocationData
	stop, err := gateway.Watch(context.Background(), time.Hour, 50, func(reading models.LocationData) {
		readings = append(readings, reading)
	})
	require.NoError(t, err)
	defer stop()

	gateway.PushLocation(models.LocationData{Latitude: 37.0, Longitude: -122.0})
	require.Len(t, readings, 1)

	// Within the interval and under the distance threshold: dropped.
	gateway.PushLocation(models.LocationData{Latitude: 37.0001, Longitude: -122.0})
	require.Len(t, readings, 1)

	// A move past the distance threshold passes despite the interval.
	gateway.PushLocation(models.LocationData{Latitude: 37.01, Longitude: -122.0})
	require.Len(t, readings, 2)
}

func TestWatchStopDetaches(t *testing.T) {
	gateway := NewDeviceGateway()

	var count int
	stop, err := gateway.Watch(context.Background(), 0, 0, func(models.LocationData) {
		count++
	})
	require.NoError(t, err)

	gateway.PushLocation(models.LocationData{Latitude: 37.0, Longitude: -122.0})
	stop()
	gateway.PushLocation(models.LocationData{Latitude: 37.1, Longitude: -122.0})

	require.Equal(t, 1, count)
}

func TestAudioChunksDroppedWhileIdle(t *testing.T) {
	gateway := NewDeviceGateway()
	ctx := context.Background()

	gateway.PushAudioChunk([]byte("dropped"), "audio/m4a")

	require.NoError(t, gateway.Start(ctx))
	gateway.PushAudioChunk([]byte("one"), "audio/m4a")
	gateway.PushAudioChunk([]byte("two"), "")

	data, mime, err := gateway.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("onetwo"), data)
	require.Equal(t, "audio/m4a", mime)
	require.False(t, gateway.Recording())

	// A new recording starts from an empty buffer.
	require.NoError(t, gateway.Start(ctx))
	data, _, err = gateway.Stop(ctx)
	require.NoError(t, err)
	require.Empty(t, data)
}
