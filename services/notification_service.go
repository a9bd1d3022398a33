package services

import (
	"context"
	"fmt"
	"time"

	"campusguard/interfaces"
	"campusguard/models"
	"campusguard/repositories"
	"campusguard/utils"

	"github.com/sirupsen/logrus"
)

// NotificationService fans emergency events out to the responder channel,
// nearby volunteers, and the reporter's emergency contacts. Every dispatch
// to the responder channel is recorded in the alert audit log.
type NotificationService struct {
	sender        *utils.NotificationSender
	userRepo      *repositories.UserRepository
	emergencyRepo *repositories.EmergencyRepository
	broadcaster   interfaces.Broadcaster
	tracker       *LocationTracker
}

func NewNotificationService(
	sender *utils.NotificationSender,
	userRepo *repositories.UserRepository,
	emergencyRepo *repositories.EmergencyRepository,
	broadcaster interfaces.Broadcaster,
	tracker *LocationTracker,
) *NotificationService {
	return &NotificationService{
		sender:        sender,
		userRepo:      userRepo,
		emergencyRepo: emergencyRepo,
		broadcaster:   broadcaster,
		tracker:       tracker,
	}
}

// NotifyEmergencyCreated alerts the responder channel. Security and staff
// get a push; the severe categories additionally page security over SMS.
// The dispatch is recorded in the audit log regardless of outcome.
func (ns *NotificationService) NotifyEmergencyCreated(ctx context.Context, session *models.EmergencySession) error {
	reporterName := "Anonymous"
	if session.UserProfile != nil && session.UserProfile.Name != "" {
		reporterName = session.UserProfile.Name
	}

	notification := utils.CreateEmergencyNotification(
		reporterName,
		session.EmergencyType,
		session.ID,
		string(session.Priority),
		session.Location.Latitude,
		session.Location.Longitude,
	)

	var responders []models.User
	for _, role := range []string{models.RoleSecurity, models.RoleStaff} {
		users, err := ns.userRepo.GetByRole(ctx, role)
		if err != nil {
			logrus.Warnf("Failed to load %s responders: %v", role, err)
			continue
		}
		responders = append(responders, users...)
	}

	var tokens []string
	var recipients []string
	deliveryStatus := make(map[string]string)
	for _, responder := range responders {
		recipients = append(recipients, responder.ID)
		if responder.PushToken != "" {
			tokens = append(tokens, responder.PushToken)
		} else {
			deliveryStatus[responder.ID] = "no_push_token"
		}
	}

	results, err := ns.sender.SendPushToMultipleDevices(ctx, tokens, notification)
	if err != nil {
		logrus.Errorf("Responder push fan-out failed: %v", err)
	}
	for i, result := range results {
		status := "sent"
		if !result.Success {
			status = "failed"
		}
		if i < len(tokens) {
			deliveryStatus[tokens[i]] = status
		}
	}

	if RequiresSMSSideChannel(session.EmergencyType) {
		ns.pageSecurityBySMS(ctx, session, reporterName, deliveryStatus)
	}

	if ns.broadcaster != nil {
		ns.broadcaster.BroadcastEmergencyAlert(models.WSEmergencyAlert{
			UserID:        session.ReportedBy,
			SessionID:     session.ID,
			EmergencyType: session.EmergencyType,
			Priority:      string(session.Priority),
			Title:         notification.Title,
			Message:       notification.Body,
			Timestamp:     time.Now(),
		})
	}

	alert := &models.EmergencyAlert{
		ID:             utils.GenerateUUID(),
		EmergencyID:    session.ID,
		EmergencyType:  session.EmergencyType,
		Location:       session.Location,
		Message:        notification.Body,
		Priority:       session.Priority,
		Recipients:     recipients,
		SentAt:         time.Now(),
		DeliveryStatus: deliveryStatus,
	}
	if err := ns.emergencyRepo.CreateAlert(ctx, alert); err != nil {
		logrus.Warnf("Failed to record alert audit entry: %v", err)
	}

	if err != nil {
		return utils.NewNotificationServiceError("responder channel dispatch failed")
	}
	return nil
}

func (ns *NotificationService) pageSecurityBySMS(ctx context.Context, session *models.EmergencySession, reporterName string, deliveryStatus map[string]string) {
	security, err := ns.userRepo.GetByRole(ctx, models.RoleSecurity)
	if err != nil {
		logrus.Warnf("Failed to load security users for SMS paging: %v", err)
		return
	}

	body := utils.CreateEmergencySMSBody(
		reporterName,
		session.EmergencyType,
		session.Location.Latitude,
		session.Location.Longitude,
	)

	for _, officer := range security {
		if officer.PhoneNumber == "" {
			continue
		}
		result, err := ns.sender.SendSMS(ctx, utils.SMSMessage{
			To:      officer.PhoneNumber,
			Message: body,
		})
		key := fmt.Sprintf("sms:%s", officer.ID)
		if err != nil || result == nil || !result.Success {
			deliveryStatus[key] = "failed"
			logrus.Warnf("SMS page to %s failed: %v", officer.ID, err)
		} else {
			deliveryStatus[key] = "sent"
		}
	}
}

// NotifyNearbyVolunteers pushes the alert to available volunteers within the
// search radius. Best-effort only; failures are logged.
func (ns *NotificationService) NotifyNearbyVolunteers(ctx context.Context, session *models.EmergencySession) {
	nearby, err := ns.tracker.FindNearbyVolunteers(ctx, session.Location, volunteerSearchRadius)
	if err != nil {
		logrus.Warnf("Nearby volunteer lookup failed: %v", err)
		return
	}
	if len(nearby) == 0 {
		return
	}

	reporterName := "Anonymous"
	if session.UserProfile != nil && session.UserProfile.Name != "" {
		reporterName = session.UserProfile.Name
	}

	notification := utils.CreateEmergencyNotification(
		reporterName,
		session.EmergencyType,
		session.ID,
		string(session.Priority),
		session.Location.Latitude,
		session.Location.Longitude,
	)

	var tokens []string
	for _, volunteer := range nearby {
		if volunteer.User.PushToken != "" {
			tokens = append(tokens, volunteer.User.PushToken)
		}
	}

	if _, err := ns.sender.SendPushToMultipleDevices(ctx, tokens, notification); err != nil {
		logrus.Warnf("Volunteer push fan-out failed: %v", err)
	}
}

// NotifyEmergencyContacts sends the reporter's emergency contacts an SMS and
// a push where a token is known. Best-effort only.
func (ns *NotificationService) NotifyEmergencyContacts(ctx context.Context, session *models.EmergencySession) {
	contacts, err := ns.userRepo.GetUserContacts(ctx, session.ReportedBy)
	if err != nil {
		logrus.Warnf("Emergency contact lookup failed: %v", err)
		return
	}

	reporterName := "Anonymous"
	if session.UserProfile != nil && session.UserProfile.Name != "" {
		reporterName = session.UserProfile.Name
	}

	body := utils.CreateEmergencySMSBody(
		reporterName,
		session.EmergencyType,
		session.Location.Latitude,
		session.Location.Longitude,
	)

	for _, contact := range contacts {
		if contact.PhoneNumber != "" {
			if _, err := ns.sender.SendSMS(ctx, utils.SMSMessage{To: contact.PhoneNumber, Message: body}); err != nil {
				logrus.Warnf("Contact SMS to %s failed: %v", contact.ID, err)
			}
		}
		if contact.PushToken != "" {
			notification := utils.CreateEmergencyNotification(
				reporterName,
				session.EmergencyType,
				session.ID,
				string(session.Priority),
				session.Location.Latitude,
				session.Location.Longitude,
			)
			if _, err := ns.sender.SendPushNotification(ctx, contact.PushToken, notification); err != nil {
				logrus.Warnf("Contact push to %s failed: %v", contact.ID, err)
			}
		}
	}
}

// NotifyStatusChanged tells the reporter their session moved to a new
// status.
func (ns *NotificationService) NotifyStatusChanged(ctx context.Context, session *models.EmergencySession, previous models.SessionStatus) error {
	reporter, err := ns.userRepo.GetByID(ctx, session.ReportedBy)
	if err != nil {
		return err
	}

	if reporter.PushToken == "" {
		return nil
	}

	notification := utils.CreateSessionUpdateNotification(session.ID, string(session.Status))
	_, err = ns.sender.SendPushNotification(ctx, reporter.PushToken, notification)
	return err
}
