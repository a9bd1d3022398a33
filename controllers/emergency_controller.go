package controllers

import (
	"strconv"

	"campusguard/models"
	"campusguard/repositories"
	"campusguard/services"
	"campusguard/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type EmergencyController struct {
	coordinator   *services.EmergencyCoordinator
	emergencyRepo *repositories.EmergencyRepository
}

func NewEmergencyController(coordinator *services.EmergencyCoordinator, emergencyRepo *repositories.EmergencyRepository) *EmergencyController {
	return &EmergencyController{
		coordinator:   coordinator,
		emergencyRepo: emergencyRepo,
	}
}

// CreateEmergency opens a new emergency session for the caller.
func (ec *EmergencyController) CreateEmergency(c *gin.Context) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.CreateEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	sessionID, err := ec.coordinator.CreateEmergencySession(c.Request.Context(), userID, req)
	if err != nil {
		logrus.Errorf("Create emergency session failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Emergency session created", gin.H{"sessionId": sessionID})
}

// GetEmergency returns one session by id.
func (ec *EmergencyController) GetEmergency(c *gin.Context) {
	sessionID := c.Param("sessionId")

	session, err := ec.coordinator.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency session retrieved", session)
}

// ListEmergencies returns the caller's sessions, newest first.
func (ec *EmergencyController) ListEmergencies(c *gin.Context) {
	userID := utils.GetUserID(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	sessions, total, err := ec.emergencyRepo.GetUserSessions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	meta := utils.CreatePaginationMeta(page, pageSize, total)
	utils.SuccessResponseWithMeta(c, "Emergency sessions retrieved", sessions, meta)
}

// ListActiveEmergencies returns all non-terminal sessions for responders.
func (ec *EmergencyController) ListActiveEmergencies(c *gin.Context) {
	sessions, err := ec.emergencyRepo.GetActiveSessions(c.Request.Context())
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Active emergency sessions retrieved", sessions)
}

// UpdateStatus drives the session state machine.
func (ec *EmergencyController) UpdateStatus(c *gin.Context) {
	userID := utils.GetUserID(c)
	sessionID := c.Param("sessionId")

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	err := ec.coordinator.UpdateStatus(c.Request.Context(), sessionID, req.Status, req.Message, userID)
	if err != nil {
		logrus.Warnf("Status update failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Session status updated", gin.H{"sessionId": sessionID, "status": req.Status})
}

// AddUpdate appends an entry to the session's audit trail.
func (ec *EmergencyController) AddUpdate(c *gin.Context) {
	userID := utils.GetUserID(c)
	sessionID := c.Param("sessionId")

	var req models.AddUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	update, err := ec.coordinator.AddUpdate(c.Request.Context(), sessionID, req, userID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Session update added", update)
}

// CancelEmergency cancels an in-flight session.
func (ec *EmergencyController) CancelEmergency(c *gin.Context) {
	userID := utils.GetUserID(c)
	sessionID := c.Param("sessionId")

	var req models.CancelEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if err := ec.coordinator.CancelEmergency(c.Request.Context(), sessionID, req.Reason, userID); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency cancelled", gin.H{"sessionId": sessionID})
}

// StopEmergency runs the session teardown path.
func (ec *EmergencyController) StopEmergency(c *gin.Context) {
	sessionID := c.Param("sessionId")

	if err := ec.coordinator.StopEmergencySession(c.Request.Context(), sessionID); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency session stopped", gin.H{"sessionId": sessionID})
}

// HasActiveEmergency reports whether the caller owns a non-terminal session.
func (ec *EmergencyController) HasActiveEmergency(c *gin.Context) {
	userID := utils.GetUserID(c)

	active, err := ec.coordinator.HasActiveEmergency(c.Request.Context(), userID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Active emergency state retrieved", gin.H{"hasActiveEmergency": active})
}

// GetSessionAlerts returns the responder dispatch audit log for a session.
func (ec *EmergencyController) GetSessionAlerts(c *gin.Context) {
	sessionID := c.Param("sessionId")

	alerts, err := ec.emergencyRepo.GetSessionAlerts(c.Request.Context(), sessionID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Session alerts retrieved", alerts)
}
