package services

import (
	"context"
	"io"
	"sync"
	"time"

	"campusguard/interfaces"
	"campusguard/models"
	"campusguard/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// memoryKV is an in-process KeyValueStore for tests.
type memoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string][]byte)}
}

func (m *memoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return nil, interfaces.ErrKeyNotFound
	}
	return value, nil
}

func (m *memoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return interfaces.ErrKeyNotFound
	}
	delete(m.data, key)
	return nil
}

func (m *memoryKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *memoryKV) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

type fakeLocationProvider struct {
	mu      sync.Mutex
	granted bool
	fix     *models.LocationData
	fixErr  error
	watchFn func(models.LocationData)
	stopped bool
}

func (f *fakeLocationProvider) PermissionState(ctx context.Context) (bool, error) {
	return f.granted, nil
}

func (f *fakeLocationProvider) CurrentFix(ctx context.Context, timeout, maxAge time.Duration) (*models.LocationData, error) {
	return f.fix, f.fixErr
}

func (f *fakeLocationProvider) Watch(ctx context.Context, minInterval time.Duration, minDistance float64, fn func(models.LocationData)) (func(), error) {
	f.mu.Lock()
	f.watchFn = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.stopped = true
		f.watchFn = nil
		f.mu.Unlock()
	}, nil
}

func (f *fakeLocationProvider) emit(reading models.LocationData) {
	f.mu.Lock()
	fn := f.watchFn
	f.mu.Unlock()
	if fn != nil {
		fn(reading)
	}
}

type fakeAudioRecorder struct {
	mu        sync.Mutex
	granted   bool
	data      []byte
	startErr  error
	stopErr   error
	recording bool
}

func (f *fakeAudioRecorder) PermissionState(ctx context.Context) (bool, error) {
	return f.granted, nil
}

func (f *fakeAudioRecorder) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.recording = true
	f.mu.Unlock()
	return nil
}

func (f *fakeAudioRecorder) Stop(ctx context.Context) ([]byte, string, error) {
	f.mu.Lock()
	f.recording = false
	f.mu.Unlock()
	if f.stopErr != nil {
		return nil, "", f.stopErr
	}
	return f.data, "audio/m4a", nil
}

func (f *fakeAudioRecorder) Recording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recording
}

type fakeBlobStorage struct {
	mu      sync.Mutex
	url     string
	err     error
	objects []string
}

func (f *fakeBlobStorage) Upload(ctx context.Context, objectPath, contentType string, _ io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.objects = append(f.objects, objectPath)
	return f.url, nil
}

func (f *fakeBlobStorage) Delete(ctx context.Context, objectPath string) error {
	return nil
}

// fakeSessions is an in-memory SessionPersistence.
type fakeSessions struct {
	mu        sync.Mutex
	store     map[string]*models.EmergencySession
	createErr error
	created   int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{store: make(map[string]*models.EmergencySession)}
}

func (f *fakeSessions) Create(ctx context.Context, session *models.EmergencySession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *session
	f.store[session.ID] = &copied
	f.created++
	return nil
}

func (f *fakeSessions) GetByID(ctx context.Context, id string) (*models.EmergencySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.store[id]
	if !ok {
		return nil, utils.NewSessionNotFoundError()
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessions) Update(ctx context.Context, id string, fields bson.M) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.store[id]
	if !ok {
		return utils.NewSessionNotFoundError()
	}
	if v, ok := fields["status"].(models.SessionStatus); ok {
		session.Status = v
	}
	if v, ok := fields["acknowledgedAt"].(time.Time); ok {
		session.AcknowledgedAt = &v
	}
	if v, ok := fields["resolvedAt"].(time.Time); ok {
		session.ResolvedAt = &v
	}
	if v, ok := fields["audioRecording"].(*models.AudioRecording); ok {
		session.AudioRecording = v
	}
	return nil
}

func (f *fakeSessions) AppendUpdate(ctx context.Context, id string, update models.EmergencyUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if session, ok := f.store[id]; ok {
		session.Updates = append(session.Updates, update)
	}
	return nil
}

func (f *fakeSessions) GetActiveByUser(ctx context.Context, userID string) (*models.EmergencySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, session := range f.store {
		if session.ReportedBy == userID && !session.Status.Terminal() {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeSessions) Watch(ctx context.Context, sessionID string, fn func(*models.EmergencySession)) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, utils.NewUserNotFoundError()
}

type fakeNotifier struct {
	mu         sync.Mutex
	created    []string
	createdErr error
	volunteers []string
	contacts   []string
	statuses   []models.SessionStatus
}

func (f *fakeNotifier) NotifyEmergencyCreated(ctx context.Context, session *models.EmergencySession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createdErr != nil {
		return f.createdErr
	}
	f.created = append(f.created, session.ID)
	return nil
}

func (f *fakeNotifier) NotifyNearbyVolunteers(ctx context.Context, session *models.EmergencySession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volunteers = append(f.volunteers, session.ID)
}

func (f *fakeNotifier) NotifyEmergencyContacts(ctx context.Context, session *models.EmergencySession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts = append(f.contacts, session.ID)
}

func (f *fakeNotifier) NotifyStatusChanged(ctx context.Context, session *models.EmergencySession, previous models.SessionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, session.Status)
	return nil
}

func (f *fakeNotifier) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeConnectivity struct {
	online bool
}

func (f *fakeConnectivity) IsOnline(ctx context.Context) bool {
	return f.online
}

type fakeBroadcaster struct {
	mu              sync.Mutex
	alerts          []models.WSEmergencyAlert
	sessionUpdates  []models.WSSessionUpdate
	locationUpdates []models.WSLocationUpdate
	hazardAlerts    []models.WSHazardAlert
}

func (f *fakeBroadcaster) BroadcastEmergencyAlert(alert models.WSEmergencyAlert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
}

func (f *fakeBroadcaster) BroadcastSessionUpdate(update models.WSSessionUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionUpdates = append(f.sessionUpdates, update)
}

func (f *fakeBroadcaster) BroadcastLocationUpdate(update models.WSLocationUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locationUpdates = append(f.locationUpdates, update)
}

func (f *fakeBroadcaster) BroadcastHazardAlert(alert models.WSHazardAlert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hazardAlerts = append(f.hazardAlerts, alert)
}

func (f *fakeBroadcaster) IsUserOnline(userID string) bool {
	return false
}
