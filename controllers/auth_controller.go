package controllers

import (
	"net/http"
	"time"

	"campusguard/models"
	"campusguard/repositories"
	"campusguard/services"
	"campusguard/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthController issues API tokens and manages the cached auth session.
// Identity verification itself happens upstream; this layer only exchanges
// a verified identity for a bearer token.
type AuthController struct {
	userRepo     *repositories.UserRepository
	sessionStore *services.SessionStore
	jwtService   *utils.JWTService
}

func NewAuthController(userRepo *repositories.UserRepository, sessionStore *services.SessionStore, jwtService *utils.JWTService) *AuthController {
	return &AuthController{
		userRepo:     userRepo,
		sessionStore: sessionStore,
		jwtService:   jwtService,
	}
}

type loginRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName"`
	StudentID   string `json:"studentId"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login resolves the caller's user record, creating one on first sign-in,
// and returns a signed bearer token. The session is cached so a restarted
// client can resume without a fresh sign-in.
//
// This endpoint trusts the email claim as-is and must only be reachable
// through the campus identity provider's gateway, which authenticates the
// user before forwarding the request. It is a stand-in for exchanging a
// provider-issued token and carries no credential check of its own.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid login payload")
		return
	}

	ctx := c.Request.Context()

	user, err := ac.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		svcErr, ok := utils.GetServiceError(err)
		if !ok || svcErr.StatusCode != http.StatusNotFound {
			utils.ServiceErrorResponse(c, err)
			return
		}

		user = &models.User{
			ID:          utils.GenerateUUID(),
			DisplayName: req.DisplayName,
			Email:       req.Email,
			StudentID:   req.StudentID,
			Role:        models.RoleStudent,
			IsActive:    true,
		}
		if err := ac.userRepo.Create(ctx, user); err != nil {
			utils.ServiceErrorResponse(c, err)
			return
		}
		logrus.WithField("userId", user.ID).Info("Registered new user on first sign-in")
	}

	token, err := ac.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to issue token")
		return
	}

	err = ac.sessionStore.Store(ctx, models.UserSession{UID: user.ID}, models.AuthTokens{
		IDToken:     token,
		LastRefresh: time.Now(),
	})
	if err != nil {
		logrus.Warnf("Failed to cache auth session: %v", err)
	}

	utils.SuccessResponse(c, "Login successful", loginResponse{Token: token, User: user})
}

// GetSession returns the cached session, if a valid one exists.
func (ac *AuthController) GetSession(c *gin.Context) {
	data, err := ac.sessionStore.Get(c.Request.Context())
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	if data == nil {
		utils.NotFoundResponse(c, "Session")
		return
	}

	utils.SuccessResponse(c, "Session retrieved", data)
}

// Logout clears the cached session. Safe to call when none exists.
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.sessionStore.Clear(c.Request.Context()); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Logged out", nil)
}
