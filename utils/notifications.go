package utils

import (
	"context"
	"fmt"

	"campusguard/models"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"google.golang.org/api/option"
)

type NotificationSender struct {
	fcmClient    *messaging.Client
	twilioClient *twilio.RestClient
	twilioNumber string
}

type PushNotification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data"`
	ImageURL string            `json:"imageUrl,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Badge    int               `json:"badge,omitempty"`
}

type SMSMessage struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type NotificationResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewNotificationSender wires FCM and Twilio clients. Either credential set
// may be absent; the sender then logs and skips that channel instead of
// failing the caller.
func NewNotificationSender(firebaseCredentials, twilioSID, twilioToken, twilioNumber string) (*NotificationSender, error) {
	sender := &NotificationSender{twilioNumber: twilioNumber}

	if firebaseCredentials != "" {
		opt := option.WithCredentialsFile(firebaseCredentials)
		app, err := firebase.NewApp(context.Background(), nil, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firebase: %v", err)
		}

		fcmClient, err := app.Messaging(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize FCM client: %v", err)
		}
		sender.fcmClient = fcmClient
	} else {
		logrus.Warn("Firebase credentials not configured, push notifications disabled")
	}

	if twilioSID != "" && twilioToken != "" {
		sender.twilioClient = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: twilioSID,
			Password: twilioToken,
		})
	} else {
		logrus.Warn("Twilio credentials not configured, SMS notifications disabled")
	}

	return sender, nil
}

// Push Notifications
func (ns *NotificationSender) SendPushNotification(ctx context.Context, deviceToken string, notification PushNotification) (*NotificationResult, error) {
	if ns.fcmClient == nil {
		return &NotificationResult{Success: false, Error: "push channel disabled"}, nil
	}

	message := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: notification.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: notification.Sound,
				Icon:  "ic_notification",
				Color: "#D32F2F",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: notification.Title,
						Body:  notification.Body,
					},
					Badge: &notification.Badge,
					Sound: notification.Sound,
				},
			},
		},
	}

	response, err := ns.fcmClient.Send(ctx, message)
	if err != nil {
		return &NotificationResult{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	return &NotificationResult{
		Success:   true,
		MessageID: response,
	}, nil
}

func (ns *NotificationSender) SendPushToMultipleDevices(ctx context.Context, deviceTokens []string, notification PushNotification) ([]*NotificationResult, error) {
	if ns.fcmClient == nil || len(deviceTokens) == 0 {
		return nil, nil
	}

	message := &messaging.MulticastMessage{
		Tokens: deviceTokens,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: notification.Data,
	}

	response, err := ns.fcmClient.SendMulticast(ctx, message)
	if err != nil {
		return nil, err
	}

	results := make([]*NotificationResult, len(deviceTokens))
	for i, resp := range response.Responses {
		if resp.Success {
			results[i] = &NotificationResult{
				Success:   true,
				MessageID: resp.MessageID,
			}
		} else {
			results[i] = &NotificationResult{
				Success: false,
				Error:   resp.Error.Error(),
			}
		}
	}

	return results, nil
}

// SMS Notifications
func (ns *NotificationSender) SendSMS(ctx context.Context, sms SMSMessage) (*NotificationResult, error) {
	if ns.twilioClient == nil {
		return &NotificationResult{Success: false, Error: "sms channel disabled"}, nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(sms.To)
	params.SetFrom(ns.twilioNumber)
	params.SetBody(sms.Message)

	resp, err := ns.twilioClient.Api.CreateMessage(params)
	if err != nil {
		return &NotificationResult{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	return &NotificationResult{
		Success:   true,
		MessageID: *resp.Sid,
	}, nil
}

// Notification Templates
func CreateEmergencyNotification(userName, emergencyType, sessionID, priority string, lat, lon float64) PushNotification {
	var title string

	switch emergencyType {
	case models.EmergencyTypeFire:
		title = "🔥 FIRE EMERGENCY"
	case models.EmergencyTypeMedical:
		title = "🚑 MEDICAL EMERGENCY"
	case models.EmergencyTypeRobbery:
		title = "🚨 ROBBERY / THEFT REPORTED"
	case models.EmergencyTypeAccident:
		title = "⚠️ ACCIDENT REPORTED"
	default:
		title = "🚨 EMERGENCY ALERT"
	}

	return PushNotification{
		Title: title,
		Body:  fmt.Sprintf("%s needs help. Tap to view the live session.", userName),
		Data: map[string]string{
			"type":          "emergency",
			"sessionId":     sessionID,
			"emergencyType": emergencyType,
			"priority":      priority,
			"latitude":      fmt.Sprintf("%.6f", lat),
			"longitude":     fmt.Sprintf("%.6f", lon),
		},
		Sound: "emergency",
	}
}

func CreateSessionUpdateNotification(sessionID, status string) PushNotification {
	var body string

	switch status {
	case "acknowledged":
		body = "Campus security has acknowledged your emergency."
	case "responded":
		body = "A responder is on the way to your location."
	case "resolved":
		body = "Your emergency has been marked as resolved."
	default:
		body = "Your emergency session was updated."
	}

	return PushNotification{
		Title: "Emergency Update",
		Body:  body,
		Data: map[string]string{
			"type":      "session_update",
			"sessionId": sessionID,
			"status":    status,
		},
		Sound: "default",
	}
}

func CreateHazardNotification(hazardType, severity string, lat, lon float64) PushNotification {
	return PushNotification{
		Title: "⚠️ Hazard Reported Nearby",
		Body:  fmt.Sprintf("%s (%s severity) reported near your location", hazardType, severity),
		Data: map[string]string{
			"type":       "hazard",
			"hazardType": hazardType,
			"severity":   severity,
			"latitude":   fmt.Sprintf("%.6f", lat),
			"longitude":  fmt.Sprintf("%.6f", lon),
		},
		Sound: "default",
	}
}

func CreateEmergencySMSBody(userName, emergencyType string, lat, lon float64) string {
	return fmt.Sprintf(
		"CAMPUS EMERGENCY: %s reported %s. Location: https://maps.google.com/?q=%.6f,%.6f",
		userName, emergencyType, lat, lon,
	)
}
