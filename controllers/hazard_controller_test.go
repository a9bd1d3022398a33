package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"campusguard/models"
	"campusguard/services"
	"campusguard/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHazards struct {
	mu    sync.Mutex
	store map[string]*models.HazardReport
}

func newStubHazards() *stubHazards {
	return &stubHazards{store: make(map[string]*models.HazardReport)}
}

func (s *stubHazards) Create(ctx context.Context, hazard *models.HazardReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *hazard
	copied.UpvotedBy = append([]string{}, hazard.UpvotedBy...)
	s.store[hazard.ID] = &copied
	return nil
}

func (s *stubHazards) GetByID(ctx context.Context, id string) (*models.HazardReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hazard, ok := s.store[id]
	if !ok {
		return nil, utils.NewHazardNotFoundError()
	}
	copied := *hazard
	copied.UpvotedBy = append([]string{}, hazard.UpvotedBy...)
	return &copied, nil
}

func (s *stubHazards) List(ctx context.Context, page, pageSize int) ([]models.HazardReport, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var open []models.HazardReport
	for _, hazard := range s.store {
		if hazard.Status == "open" {
			open = append(open, *hazard)
		}
	}
	return open, int64(len(open)), nil
}

func (s *stubHazards) AddUpvote(ctx context.Context, hazardID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hazard, ok := s.store[hazardID]
	if !ok || utils.StringSliceContains(hazard.UpvotedBy, userID) {
		return utils.NewConflictError("ALREADY_UPVOTED", "User has already upvoted this hazard")
	}
	hazard.UpvotedBy = append(hazard.UpvotedBy, userID)
	hazard.Upvotes++
	return nil
}

func (s *stubHazards) RemoveUpvote(ctx context.Context, hazardID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hazard, ok := s.store[hazardID]
	if !ok || !utils.StringSliceContains(hazard.UpvotedBy, userID) {
		return utils.NewConflictError("NOT_UPVOTED", "User has not upvoted this hazard")
	}
	hazard.UpvotedBy = utils.RemoveStringFromSlice(hazard.UpvotedBy, userID)
	hazard.Upvotes--
	return nil
}

func (s *stubHazards) UpdateStatus(ctx context.Context, hazardID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hazard, ok := s.store[hazardID]
	if !ok {
		return utils.NewHazardNotFoundError()
	}
	hazard.Status = status
	return nil
}

func newHazardRouter(t *testing.T) (*gin.Engine, *stubHazards) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newStubHazards()
	ctrl := NewHazardController(services.NewHazardService(store, nil))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", "user-1")
		c.Set("userRole", string(models.RoleStudent))
		c.Next()
	})

	hazards := router.Group("/api/v1/hazards")
	{
		hazards.POST("", ctrl.CreateHazard)
		hazards.GET("", ctrl.ListHazards)
		hazards.GET("/:hazardId", ctrl.GetHazard)
		hazards.POST("/:hazardId/upvote", ctrl.ToggleUpvote)
		hazards.POST("/:hazardId/resolve", ctrl.ResolveHazard)
	}

	return router, store
}

func createHazardViaAPI(t *testing.T, router *gin.Engine) string {
	t.Helper()
	body := bytes.NewBufferString(`{
		"hazardType": "Poor Lighting",
		"severity": "moderate",
		"description": "Path lamp out behind the library",
		"location": {"latitude": 37.4419, "longitude": -122.143}
	}`)
	recorder := performRequest(router, http.MethodPost, "/api/v1/hazards", body)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var envelope models.APIResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	hazard, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	id, ok := hazard["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)
	return id
}

func TestHazardRoutesCarryHazardID(t *testing.T) {
	router, _ := newHazardRouter(t)

	hazardID := createHazardViaAPI(t, router)

	recorder := performRequest(router, http.MethodGet, "/api/v1/hazards/"+hazardID, nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var envelope models.APIResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	hazard, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, hazardID, hazard["id"])
}

func TestUpvoteRouteTogglesThroughTheParam(t *testing.T) {
	router, store := newHazardRouter(t)

	hazardID := createHazardViaAPI(t, router)

	recorder := performRequest(router, http.MethodPost, "/api/v1/hazards/"+hazardID+"/upvote", nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	data := decodeData(t, recorder)
	assert.Equal(t, hazardID, data["hazardId"])
	assert.Equal(t, true, data["upvoted"])

	recorder = performRequest(router, http.MethodPost, "/api/v1/hazards/"+hazardID+"/upvote", nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.Equal(t, false, decodeData(t, recorder)["upvoted"])

	hazard, err := store.GetByID(context.Background(), hazardID)
	require.NoError(t, err)
	assert.Zero(t, hazard.Upvotes)
	assert.Empty(t, hazard.UpvotedBy)
}

func TestResolveRouteClosesTheReport(t *testing.T) {
	router, store := newHazardRouter(t)

	hazardID := createHazardViaAPI(t, router)

	recorder := performRequest(router, http.MethodPost, "/api/v1/hazards/"+hazardID+"/resolve", nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	hazard, err := store.GetByID(context.Background(), hazardID)
	require.NoError(t, err)
	assert.Equal(t, "resolved", hazard.Status)
}
