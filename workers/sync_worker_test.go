package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campusguard/interfaces"
	"campusguard/models"
	"campusguard/services"
	"campusguard/utils"

	"github.com/stretchr/testify/require"
)

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

type fakeWriter struct {
	mu      sync.Mutex
	created []models.EmergencySession
	failFor map[string]error
}

func (f *fakeWriter) Create(ctx context.Context, session *models.EmergencySession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[session.ID]; ok {
		return err
	}
	f.created = append(f.created, *session)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	notified []string
}

func (f *fakeNotifier) NotifyEmergencyCreated(ctx context.Context, session *models.EmergencySession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, session.ID)
	return nil
}

func (f *fakeNotifier) NotifyNearbyVolunteers(ctx context.Context, session *models.EmergencySession) {}

func (f *fakeNotifier) NotifyEmergencyContacts(ctx context.Context, session *models.EmergencySession) {
}

func (f *fakeNotifier) NotifyStatusChanged(ctx context.Context, session *models.EmergencySession, previous models.SessionStatus) error {
	return nil
}

type fakeProbe struct {
	online bool
}

func (f *fakeProbe) IsOnline(ctx context.Context) bool {
	return f.online
}

func queuedSession(t *testing.T, queue *services.OfflineQueue, createdAt time.Time) models.EmergencySession {
	t.Helper()
	session := models.EmergencySession{
		ID:            utils.GenerateOfflineSessionID(createdAt),
		EmergencyType: models.EmergencyTypeMedical,
		Status:        models.SessionStatusActive,
		ReportedBy:    "user-1",
		CreatedAt:     createdAt,
		Metadata:      map[string]interface{}{"isOffline": true},
	}
	require.NoError(t, queue.Enqueue(context.Background(), &session))
	return session
}

func TestFlushOnceSkipsWhileOffline(t *testing.T) {
	queue := services.NewOfflineQueue(newMemoryKV())
	queuedSession(t, queue, time.Now())

	writer := &fakeWriter{}
	worker := NewSyncWorker(queue, writer, &fakeNotifier{}, &fakeProbe{online: false}, time.Minute)

	require.Zero(t, worker.FlushOnce(context.Background()))
	require.Empty(t, writer.created)

	pending, err := queue.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestFlushOnceWritesAndDequeues(t *testing.T) {
	queue := services.NewOfflineQueue(newMemoryKV())
	session := queuedSession(t, queue, time.Now())

	writer := &fakeWriter{}
	notifier := &fakeNotifier{}
	worker := NewSyncWorker(queue, writer, notifier, &fakeProbe{online: true}, time.Minute)

	require.Equal(t, 1, worker.FlushOnce(context.Background()))

	require.Len(t, writer.created, 1)
	require.Equal(t, session.ID, writer.created[0].ID)
	require.True(t, writer.created[0].IsOffline())
	require.Equal(t, []string{session.ID}, notifier.notified)

	pending, err := queue.Pending(context.Background())
	require.NoError(t, err)
	require.Empty(t, pending)

	// A second pass finds nothing; the session is never written twice.
	require.Zero(t, worker.FlushOnce(context.Background()))
	require.Len(t, writer.created, 1)
}

func TestFlushOnceKeepsFailedWritesQueued(t *testing.T) {
	queue := services.NewOfflineQueue(newMemoryKV())
	failing := queuedSession(t, queue, time.Now().Add(-2*time.Minute))
	healthy := queuedSession(t, queue, time.Now())

	writer := &fakeWriter{failFor: map[string]error{failing.ID: errors.New("write refused")}}
	notifier := &fakeNotifier{}
	worker := NewSyncWorker(queue, writer, notifier, &fakeProbe{online: true}, time.Minute)

	require.Equal(t, 1, worker.FlushOnce(context.Background()))
	require.Equal(t, []string{healthy.ID}, notifier.notified)

	pending, err := queue.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, failing.ID, pending[0].ID)

	// Once the write succeeds the retry drains the remainder.
	writer.mu.Lock()
	writer.failFor = nil
	writer.mu.Unlock()

	require.Equal(t, 1, worker.FlushOnce(context.Background()))
	pending, err = queue.Pending(context.Background())
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestStartAndStop(t *testing.T) {
	queue := services.NewOfflineQueue(newMemoryKV())
	worker := NewSyncWorker(queue, &fakeWriter{}, &fakeNotifier{}, &fakeProbe{online: true}, 10*time.Millisecond)

	worker.Start()
	time.Sleep(30 * time.Millisecond)
	worker.Stop()
}
