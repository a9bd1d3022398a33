package providers

import (
	"context"
	"sync"
	"time"

	"campusguard/interfaces"
	"campusguard/models"
	"campusguard/utils"
)

// DeviceGateway adapts the mobile client's pushed sensor data to the
// provider contracts. The device streams location readings and audio chunks
// over HTTP; the gateway buffers them and replays them to the capture
// services as if they were local sensors.
type DeviceGateway struct {
	mu sync.Mutex

	locationGranted   bool
	microphoneGranted bool

	latest    *models.LocationData
	waiters   []chan models.LocationData
	nextWatch int
	watchers  map[int]*gatewayWatcher

	recording   bool
	audioBuffer []byte
	audioMime   string
}

type gatewayWatcher struct {
	minInterval time.Duration
	minDistance float64
	fn          func(models.LocationData)
	lastSent    *models.LocationData
	lastSentAt  time.Time
}

func NewDeviceGateway() *DeviceGateway {
	return &DeviceGateway{
		watchers:  make(map[int]*gatewayWatcher),
		audioMime: "audio/m4a",
	}
}

// =================== CLIENT-FED INPUTS ===================

// ReportPermissions records the device's permission grants as reported by
// the client.
func (dg *DeviceGateway) ReportPermissions(location, microphone bool) {
	dg.mu.Lock()
	dg.locationGranted = location
	dg.microphoneGranted = microphone
	dg.mu.Unlock()
}

// PushLocation ingests one location reading from the device.
func (dg *DeviceGateway) PushLocation(reading models.LocationData) {
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}
	// Out-of-range readings from the device are clamped into valid bounds.
	reading.Latitude, reading.Longitude = utils.NormalizeCoordinate(reading.Latitude, reading.Longitude)

	dg.mu.Lock()
	dg.latest = &reading

	waiters := dg.waiters
	dg.waiters = nil

	type delivery struct {
		fn func(models.LocationData)
	}
	var deliveries []delivery
	now := time.Now()
	for _, w := range dg.watchers {
		if w.lastSent != nil {
			moved := utils.CalculateDistance(
				w.lastSent.Latitude, w.lastSent.Longitude,
				reading.Latitude, reading.Longitude,
			)
			if now.Sub(w.lastSentAt) < w.minInterval && moved < w.minDistance {
				continue
			}
		}
		w.lastSent = &reading
		w.lastSentAt = now
		deliveries = append(deliveries, delivery{fn: w.fn})
	}
	dg.mu.Unlock()

	for _, ch := range waiters {
		ch <- reading
	}
	for _, d := range deliveries {
		d.fn(reading)
	}
}

// PushAudioChunk appends recorded audio bytes. Chunks arriving while no
// recording is active are dropped.
func (dg *DeviceGateway) PushAudioChunk(data []byte, mimeType string) {
	dg.mu.Lock()
	defer dg.mu.Unlock()

	if !dg.recording {
		return
	}
	dg.audioBuffer = append(dg.audioBuffer, data...)
	if mimeType != "" {
		dg.audioMime = mimeType
	}
}

// =================== LOCATION PROVIDER ===================

// LocationProvider returns the gateway's positioning view.
func (dg *DeviceGateway) LocationProvider() interfaces.LocationProvider {
	return gatewayLocationProvider{dg}
}

// AudioRecorder returns the gateway's microphone view.
func (dg *DeviceGateway) AudioRecorder() interfaces.AudioRecorder {
	return gatewayAudioRecorder{dg}
}

type gatewayLocationProvider struct {
	dg *DeviceGateway
}

func (p gatewayLocationProvider) PermissionState(ctx context.Context) (bool, error) {
	p.dg.mu.Lock()
	defer p.dg.mu.Unlock()
	return p.dg.locationGranted, nil
}

func (p gatewayLocationProvider) CurrentFix(ctx context.Context, timeout, maxAge time.Duration) (*models.LocationData, error) {
	return p.dg.CurrentFix(ctx, timeout, maxAge)
}

func (p gatewayLocationProvider) Watch(ctx context.Context, minInterval time.Duration, minDistance float64, fn func(models.LocationData)) (func(), error) {
	return p.dg.Watch(ctx, minInterval, minDistance, fn)
}

// CurrentFix returns the freshest reading. A cached reading younger than
// maxAge satisfies the request immediately; otherwise the call waits up to
// timeout for the device's next push.
func (dg *DeviceGateway) CurrentFix(ctx context.Context, timeout, maxAge time.Duration) (*models.LocationData, error) {
	dg.mu.Lock()
	if dg.latest != nil && maxAge > 0 && time.Since(dg.latest.Timestamp) <= maxAge {
		reading := *dg.latest
		dg.mu.Unlock()
		return &reading, nil
	}

	waiter := make(chan models.LocationData, 1)
	dg.waiters = append(dg.waiters, waiter)
	dg.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reading := <-waiter:
		return &reading, nil
	case <-timer.C:
		return nil, utils.NewLocationServiceError("timed out waiting for a device location fix")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (dg *DeviceGateway) Watch(ctx context.Context, minInterval time.Duration, minDistance float64, fn func(models.LocationData)) (func(), error) {
	dg.mu.Lock()
	id := dg.nextWatch
	dg.nextWatch++
	dg.watchers[id] = &gatewayWatcher{
		minInterval: minInterval,
		minDistance: minDistance,
		fn:          fn,
	}
	dg.mu.Unlock()

	stop := func() {
		dg.mu.Lock()
		delete(dg.watchers, id)
		dg.mu.Unlock()
	}
	return stop, nil
}

// =================== AUDIO RECORDER ===================

type gatewayAudioRecorder struct {
	dg *DeviceGateway
}

func (r gatewayAudioRecorder) PermissionState(ctx context.Context) (bool, error) {
	r.dg.mu.Lock()
	defer r.dg.mu.Unlock()
	return r.dg.microphoneGranted, nil
}

func (r gatewayAudioRecorder) Start(ctx context.Context) error {
	return r.dg.Start(ctx)
}

func (r gatewayAudioRecorder) Stop(ctx context.Context) ([]byte, string, error) {
	return r.dg.Stop(ctx)
}

func (r gatewayAudioRecorder) Recording() bool {
	return r.dg.Recording()
}

func (dg *DeviceGateway) Recording() bool {
	dg.mu.Lock()
	defer dg.mu.Unlock()
	return dg.recording
}

func (dg *DeviceGateway) Start(ctx context.Context) error {
	dg.mu.Lock()
	defer dg.mu.Unlock()

	dg.recording = true
	dg.audioBuffer = nil
	return nil
}

func (dg *DeviceGateway) Stop(ctx context.Context) ([]byte, string, error) {
	dg.mu.Lock()
	defer dg.mu.Unlock()

	data := dg.audioBuffer
	dg.recording = false
	dg.audioBuffer = nil
	return data, dg.audioMime, nil
}
