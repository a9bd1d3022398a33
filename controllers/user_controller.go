package controllers

import (
	"campusguard/models"
	"campusguard/repositories"
	"campusguard/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

type UserController struct {
	userRepo  *repositories.UserRepository
	validator *utils.ValidationService
}

func NewUserController(userRepo *repositories.UserRepository) *UserController {
	return &UserController{
		userRepo:  userRepo,
		validator: utils.NewValidationService(),
	}
}

// GetProfile returns the caller's user record.
func (uc *UserController) GetProfile(c *gin.Context) {
	user, err := uc.userRepo.GetByID(c.Request.Context(), utils.GetUserID(c))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Profile retrieved", user)
}

type pushTokenRequest struct {
	PushToken string `json:"pushToken" binding:"required"`
}

// RegisterPushToken stores the caller's device push token.
func (uc *UserController) RegisterPushToken(c *gin.Context) {
	var req pushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if err := uc.userRepo.UpdatePushToken(c.Request.Context(), utils.GetUserID(c), req.PushToken); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Push token registered", nil)
}

type availabilityRequest struct {
	IsAvailable bool `json:"isAvailable"`
}

// SetAvailability toggles a volunteer's availability for dispatch.
func (uc *UserController) SetAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	err := uc.userRepo.Update(c.Request.Context(), utils.GetUserID(c), bson.M{"isAvailable": req.IsAvailable})
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Availability updated", gin.H{"isAvailable": req.IsAvailable})
}

// =================== EMERGENCY CONTACTS ===================

type createContactRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	PhoneNumber  string `json:"phoneNumber" validate:"required,phone"`
	Email        string `json:"email" validate:"omitempty,email"`
	Relationship string `json:"relationship" validate:"max=100"`
}

// CreateContact adds an emergency contact for the caller.
func (uc *UserController) CreateContact(c *gin.Context) {
	var req createContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if validationErrors := uc.validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	contact := &models.EmergencyContact{
		ID:           utils.GenerateUUID(),
		UserID:       utils.GetUserID(c),
		Name:         req.Name,
		PhoneNumber:  req.PhoneNumber,
		Email:        req.Email,
		Relationship: req.Relationship,
	}

	if err := uc.userRepo.CreateContact(c.Request.Context(), contact); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Emergency contact added", contact)
}

// ListContacts returns the caller's emergency contacts.
func (uc *UserController) ListContacts(c *gin.Context) {
	contacts, err := uc.userRepo.GetUserContacts(c.Request.Context(), utils.GetUserID(c))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency contacts retrieved", contacts)
}

// DeleteContact removes one of the caller's emergency contacts.
func (uc *UserController) DeleteContact(c *gin.Context) {
	err := uc.userRepo.DeleteContact(c.Request.Context(), utils.GetUserID(c), c.Param("contactId"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.NoContentResponse(c)
}
