package controllers

import (
	"io"

	"campusguard/models"
	"campusguard/providers"
	"campusguard/repositories"
	"campusguard/services"
	"campusguard/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DeviceController ingests sensor data pushed by the mobile client: location
// readings, audio chunks, and permission states. The device gateway replays
// these to the capture services.
type DeviceController struct {
	gateway  *providers.DeviceGateway
	tracker  *services.LocationTracker
	userRepo *repositories.UserRepository
}

func NewDeviceController(gateway *providers.DeviceGateway, tracker *services.LocationTracker, userRepo *repositories.UserRepository) *DeviceController {
	return &DeviceController{gateway: gateway, tracker: tracker, userRepo: userRepo}
}

type permissionsRequest struct {
	Location   bool `json:"location"`
	Microphone bool `json:"microphone"`
}

// ReportPermissions records the device's permission grants.
func (dc *DeviceController) ReportPermissions(c *gin.Context) {
	var req permissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	dc.gateway.ReportPermissions(req.Location, req.Microphone)
	utils.SuccessResponse(c, "Device permissions recorded", nil)
}

// PushLocation ingests one positioning reading.
func (dc *DeviceController) PushLocation(c *gin.Context) {
	var reading models.LocationData
	if err := c.ShouldBindJSON(&reading); err != nil {
		utils.BadRequestResponse(c, "Invalid location payload")
		return
	}

	if !utils.IsValidCoordinate(reading.Latitude, reading.Longitude) {
		utils.BadRequestResponse(c, "Coordinates out of range")
		return
	}

	dc.gateway.PushLocation(reading)

	// Volunteer proximity matching reads the user record, so mirror the
	// reading there as well. Best-effort.
	if userID := utils.GetUserID(c); userID != "" {
		if err := dc.userRepo.UpdateLastKnownLocation(c.Request.Context(), userID, reading.Point()); err != nil {
			logrus.Debugf("Failed to update last known location: %v", err)
		}
	}

	utils.SuccessResponse(c, "Location reading accepted", nil)
}

// GetCurrentLocation requests a one-shot fix through the tracker. With
// emergency=true the extended timeout applies and cached readings are
// refused; emergency fixes also carry a reverse-geocoded address.
func (dc *DeviceController) GetCurrentLocation(c *gin.Context) {
	isEmergency := c.Query("emergency") == "true"

	fix := dc.tracker.GetCurrentLocation(c.Request.Context(), isEmergency)
	if fix == nil {
		utils.ServiceErrorResponse(c, utils.NewLocationServiceError("No location fix available"))
		return
	}

	utils.SuccessResponse(c, "Location fix acquired", fix)
}

// PushAudioChunk ingests recorded audio bytes.
func (dc *DeviceController) PushAudioChunk(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, 10<<20))
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read audio payload")
		return
	}
	if len(data) == 0 {
		utils.BadRequestResponse(c, "Empty audio payload")
		return
	}

	dc.gateway.PushAudioChunk(data, c.ContentType())
	utils.SuccessResponse(c, "Audio chunk accepted", gin.H{"bytes": len(data)})
}
