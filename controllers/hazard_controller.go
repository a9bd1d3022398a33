package controllers

import (
	"strconv"

	"campusguard/models"
	"campusguard/services"
	"campusguard/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type HazardController struct {
	hazardService *services.HazardService
}

func NewHazardController(hazardService *services.HazardService) *HazardController {
	return &HazardController{hazardService: hazardService}
}

// CreateHazard files a new community hazard report.
func (hc *HazardController) CreateHazard(c *gin.Context) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.CreateHazardReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	hazard, err := hc.hazardService.CreateHazardReport(c.Request.Context(), userID, req)
	if err != nil {
		logrus.Errorf("Create hazard report failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Hazard report created", hazard)
}

// GetHazard returns one hazard report.
func (hc *HazardController) GetHazard(c *gin.Context) {
	hazard, err := hc.hazardService.GetHazardReport(c.Request.Context(), c.Param("hazardId"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Hazard report retrieved", hazard)
}

// ListHazards returns open hazard reports, newest first.
func (hc *HazardController) ListHazards(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	hazards, total, err := hc.hazardService.ListHazardReports(c.Request.Context(), page, pageSize)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	meta := utils.CreatePaginationMeta(page, pageSize, total)
	utils.SuccessResponseWithMeta(c, "Hazard reports retrieved", hazards, meta)
}

// ToggleUpvote flips the caller's upvote on a hazard report.
func (hc *HazardController) ToggleUpvote(c *gin.Context) {
	userID := utils.GetUserID(c)
	hazardID := c.Param("hazardId")

	upvoted, err := hc.hazardService.ToggleUpvote(c.Request.Context(), hazardID, userID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Hazard upvote toggled", gin.H{"hazardId": hazardID, "upvoted": upvoted})
}

// ResolveHazard closes a hazard report. Security and staff only.
func (hc *HazardController) ResolveHazard(c *gin.Context) {
	hazardID := c.Param("hazardId")

	if err := hc.hazardService.ResolveHazard(c.Request.Context(), hazardID); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Hazard report resolved", gin.H{"hazardId": hazardID})
}
