package services

import (
	"context"
	"time"

	"campusguard/interfaces"
	"campusguard/models"
	"campusguard/utils"

	"github.com/sirupsen/logrus"
)

// HazardStore is the slice of the hazard repository the service depends on.
type HazardStore interface {
	Create(ctx context.Context, hazard *models.HazardReport) error
	GetByID(ctx context.Context, id string) (*models.HazardReport, error)
	List(ctx context.Context, page, pageSize int) ([]models.HazardReport, int64, error)
	AddUpvote(ctx context.Context, hazardID, userID string) error
	RemoveUpvote(ctx context.Context, hazardID, userID string) error
	UpdateStatus(ctx context.Context, hazardID, status string) error
}

// HazardService manages community hazard reports and their upvote toggles.
type HazardService struct {
	hazardRepo  HazardStore
	broadcaster interfaces.Broadcaster
	validator   *utils.ValidationService
}

func NewHazardService(hazardRepo HazardStore, broadcaster interfaces.Broadcaster) *HazardService {
	return &HazardService{
		hazardRepo:  hazardRepo,
		broadcaster: broadcaster,
		validator:   utils.NewValidationService(),
	}
}

func (hs *HazardService) CreateHazardReport(ctx context.Context, userID string, req models.CreateHazardReportRequest) (*models.HazardReport, error) {
	if validationErrors := hs.validator.ValidateStruct(req); len(validationErrors) > 0 {
		return nil, utils.NewBadRequestError(validationErrors[0].Message)
	}

	hazard := &models.HazardReport{
		ID:          utils.GenerateUUID(),
		ReportedBy:  userID,
		HazardType:  req.HazardType,
		Severity:    req.Severity,
		Description: utils.SanitizeInput(req.Description),
		Location:    req.Location,
		Status:      "open",
		Upvotes:     0,
		UpvotedBy:   []string{},
	}

	if err := hs.hazardRepo.Create(ctx, hazard); err != nil {
		return nil, err
	}

	if hs.broadcaster != nil {
		hs.broadcaster.BroadcastHazardAlert(models.WSHazardAlert{
			HazardID:   hazard.ID,
			HazardType: hazard.HazardType,
			Severity:   hazard.Severity,
			Location:   hazard.Location,
			Timestamp:  time.Now(),
		})
	}

	logrus.WithFields(logrus.Fields{
		"hazardId": hazard.ID,
		"severity": hazard.Severity,
	}).Info("Hazard report created")

	return hazard, nil
}

func (hs *HazardService) GetHazardReport(ctx context.Context, hazardID string) (*models.HazardReport, error) {
	return hs.hazardRepo.GetByID(ctx, hazardID)
}

func (hs *HazardService) ListHazardReports(ctx context.Context, page, pageSize int) ([]models.HazardReport, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return hs.hazardRepo.List(ctx, page, pageSize)
}

// ToggleUpvote flips the caller's upvote. A first call adds the vote, a
// second call with the same user withdraws it, returning the report to its
// prior state. Returns the upvote state after the toggle.
func (hs *HazardService) ToggleUpvote(ctx context.Context, hazardID, userID string) (bool, error) {
	hazard, err := hs.hazardRepo.GetByID(ctx, hazardID)
	if err != nil {
		return false, err
	}

	if utils.StringSliceContains(hazard.UpvotedBy, userID) {
		if err := hs.hazardRepo.RemoveUpvote(ctx, hazardID, userID); err != nil {
			return true, err
		}
		return false, nil
	}

	if err := hs.hazardRepo.AddUpvote(ctx, hazardID, userID); err != nil {
		return false, err
	}
	return true, nil
}

func (hs *HazardService) ResolveHazard(ctx context.Context, hazardID string) error {
	return hs.hazardRepo.UpdateStatus(ctx, hazardID, "resolved")
}
