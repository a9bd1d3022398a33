package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"campusguard/interfaces"
	"campusguard/models"
	"campusguard/services"
	"campusguard/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// The stubs below back a real coordinator so handler tests exercise the
// full route-to-service path without a database.

type stubSessions struct {
	mu    sync.Mutex
	store map[string]*models.EmergencySession
}

func newStubSessions() *stubSessions {
	return &stubSessions{store: make(map[string]*models.EmergencySession)}
}

func (s *stubSessions) Create(ctx context.Context, session *models.EmergencySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.store[session.ID] = &copied
	return nil
}

func (s *stubSessions) GetByID(ctx context.Context, id string) (*models.EmergencySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.store[id]
	if !ok {
		return nil, utils.NewSessionNotFoundError()
	}
	copied := *session
	return &copied, nil
}

func (s *stubSessions) Update(ctx context.Context, id string, fields bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.store[id]
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

func (s *stubSessions) AppendUpdate(ctx context.Context, id string, update models.EmergencyUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.store[id]; ok {
		session.Updates = append(session.Updates, update)
	}
	return nil
}

func (s *stubSessions) GetActiveByUser(ctx context.Context, userID string) (*models.EmergencySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.store {
		if session.ReportedBy == userID && !session.Status.Terminal() {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *stubSessions) Watch(ctx context.Context, sessionID string, fn func(*models.EmergencySession)) error {
	<-ctx.Done()
	return ctx.Err()
}

type stubUsers struct{}

func (stubUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, DisplayName: "Jamie Park"}, nil
}

type stubNotifier struct{}

func (stubNotifier) NotifyEmergencyCreated(ctx context.Context, session *models.EmergencySession) error {
	return nil
}
func (stubNotifier) NotifyNearbyVolunteers(ctx context.Context, session *models.EmergencySession) {}
func (stubNotifier) NotifyEmergencyContacts(ctx context.Context, session *models.EmergencySession) {}
func (stubNotifier) NotifyStatusChanged(ctx context.Context, session *models.EmergencySession, previous models.SessionStatus) error {
	return nil
}

type stubConnectivity struct{}

func (stubConnectivity) IsOnline(ctx context.Context) bool { return true }

type stubBroadcaster struct{}

func (stubBroadcaster) BroadcastEmergencyAlert(alert models.WSEmergencyAlert)  {}
func (stubBroadcaster) BroadcastSessionUpdate(update models.WSSessionUpdate)   {}
func (stubBroadcaster) BroadcastLocationUpdate(update models.WSLocationUpdate) {}
func (stubBroadcaster) BroadcastHazardAlert(alert models.WSHazardAlert)        {}
func (stubBroadcaster) IsUserOnline(userID string) bool                        { return false }

type stubProvider struct{}

func (stubProvider) PermissionState(ctx context.Context) (bool, error) { return true, nil }

func (stubProvider) CurrentFix(ctx context.Context, timeout, maxAge time.Duration) (*models.LocationData, error) {
	return &models.LocationData{Latitude: 37.4419, Longitude: -122.143}, nil
}

func (stubProvider) Watch(ctx context.Context, minInterval time.Duration, minDistance float64, fn func(models.LocationData)) (func(), error) {
	return func() {}, nil
}

type stubRecorder struct{}

func (stubRecorder) PermissionState(ctx context.Context) (bool, error) { return true, nil }
func (stubRecorder) Start(ctx context.Context) error                   { return nil }
func (stubRecorder) Stop(ctx context.Context) ([]byte, string, error) {
	return nil, "audio/m4a", nil
}
func (stubRecorder) Recording() bool { return false }

type stubKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *stubKV) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value, ok := s.data[key]; ok {
		return value, nil
	}
	return nil, interfaces.ErrKeyNotFound
}

func (s *stubKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	s.data[key] = value
	return nil
}

func (s *stubKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *stubKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// newEmergencyRouter registers the emergency routes exactly as the route
// table does, backed by a coordinator over the stubs above.
func newEmergencyRouter(t *testing.T) (*gin.Engine, *stubSessions) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := newStubSessions()
	tracker := services.NewLocationTracker(stubProvider{}, nil, nil, nil, stubBroadcaster{})
	audio := services.NewAudioCaptureService(stubRecorder{}, nil)
	queue := services.NewOfflineQueue(&stubKV{})

	coordinator := services.NewEmergencyCoordinator(
		sessions, stubUsers{}, tracker, audio, stubNotifier{},
		queue, stubConnectivity{}, stubBroadcaster{},
	)

	ctrl := NewEmergencyController(coordinator, nil)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", "user-1")
		c.Set("userRole", string(models.RoleStudent))
		c.Next()
	})

	emergencies := router.Group("/api/v1/emergencies")
	{
		emergencies.POST("", ctrl.CreateEmergency)
		emergencies.GET("/active", ctrl.HasActiveEmergency)
		emergencies.GET("/:sessionId", ctrl.GetEmergency)
		emergencies.PUT("/:sessionId/status", ctrl.UpdateStatus)
		emergencies.POST("/:sessionId/updates", ctrl.AddUpdate)
		emergencies.POST("/:sessionId/cancel", ctrl.CancelEmergency)
		emergencies.POST("/:sessionId/stop", ctrl.StopEmergency)
	}

	return router, sessions
}

func performRequest(router *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeData(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope models.APIResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok, "response data is not an object")
	return data
}

func createSessionViaAPI(t *testing.T, router *gin.Engine) string {
	t.Helper()
	body := bytes.NewBufferString(`{
		"emergencyType": "FIRE",
		"location": {"latitude": 37.4419, "longitude": -122.143, "accuracy": 5}
	}`)
	recorder := performRequest(router, http.MethodPost, "/api/v1/emergencies", body)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	sessionID, ok := decodeData(t, recorder)["sessionId"].(string)
	require.True(t, ok)
	require.NotEmpty(t, sessionID)
	return sessionID
}

func TestEmergencyRoutesCarrySessionID(t *testing.T) {
	router, _ := newEmergencyRouter(t)

	sessionID := createSessionViaAPI(t, router)

	recorder := performRequest(router, http.MethodGet, "/api/v1/emergencies/"+sessionID, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var envelope models.APIResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	session, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, sessionID, session["id"])
}

func TestStopEmergencyRouteEndsTheSession(t *testing.T) {
	router, sessions := newEmergencyRouter(t)

	sessionID := createSessionViaAPI(t, router)

	recorder := performRequest(router, http.MethodPost, "/api/v1/emergencies/"+sessionID+"/stop", nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, sessionID, decodeData(t, recorder)["sessionId"])

	stored, err := sessions.GetByID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusResolved, stored.Status)

	recorder = performRequest(router, http.MethodGet, "/api/v1/emergencies/active", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, false, decodeData(t, recorder)["hasActiveEmergency"])
}

func TestEmergencyRouteUnknownSessionIsNotFound(t *testing.T) {
	router, _ := newEmergencyRouter(t)

	recorder := performRequest(router, http.MethodGet, "/api/v1/emergencies/no-such-session", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
