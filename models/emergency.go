package models

import (
	"time"
)

// Session lifecycle statuses. The happy path moves forward only
// (active -> acknowledged -> responded -> resolved); cancelled is a side
// exit reachable from any non-terminal status.
type SessionStatus string

const (
	SessionStatusActive       SessionStatus = "active"
	SessionStatusAcknowledged SessionStatus = "acknowledged"
	SessionStatusResponded    SessionStatus = "responded"
	SessionStatusResolved     SessionStatus = "resolved"
	SessionStatusCancelled    SessionStatus = "cancelled"
)

func (s SessionStatus) Terminal() bool {
	return s == SessionStatusResolved || s == SessionStatusCancelled
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Emergency categories as reported by the client. Never inferred.
const (
	EmergencyTypeFire     = "FIRE"
	EmergencyTypeMedical  = "MEDICAL"
	EmergencyTypeRobbery  = "ROBBERY/THEFT"
	EmergencyTypeAccident = "ACCIDENT"
	EmergencyTypeOther    = "OTHER"
)

type UpdateType string

const (
	UpdateTypeStatusChange      UpdateType = "status_change"
	UpdateTypeLocationUpdate    UpdateType = "location_update"
	UpdateTypeAudioReceived     UpdateType = "audio_received"
	UpdateTypeResponderAssigned UpdateType = "responder_assigned"
	UpdateTypeMessage           UpdateType = "message"
	UpdateTypeResolved          UpdateType = "resolved"
)

type GeoPoint struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// LocationData is one positioning reading from the device.
type LocationData struct {
	Latitude  float64   `json:"latitude" bson:"latitude" validate:"coordinate"`
	Longitude float64   `json:"longitude" bson:"longitude" validate:"coordinate"`
	Accuracy  float64   `json:"accuracy" bson:"accuracy"`
	Altitude  float64   `json:"altitude,omitempty" bson:"altitude,omitempty"`
	Heading   float64   `json:"heading,omitempty" bson:"heading,omitempty"`
	Speed     float64   `json:"speed,omitempty" bson:"speed,omitempty"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

func (l LocationData) Point() GeoPoint {
	return GeoPoint{Latitude: l.Latitude, Longitude: l.Longitude}
}

// LocationFix is the result of a one-shot position request. Address is
// best-effort reverse geocoding and may be empty.
type LocationFix struct {
	Coords              LocationData `json:"coords"`
	Address             string       `json:"address,omitempty"`
	IsEmergencyLocation bool         `json:"isEmergencyLocation"`
}

type AudioRecording struct {
	URL        string    `json:"url" bson:"url"`
	FileName   string    `json:"fileName" bson:"fileName"`
	UploadedAt time.Time `json:"uploadedAt" bson:"uploadedAt"`
}

// EmergencyUpdate is one audit-trail entry. Once appended it is immutable;
// the updates sequence only grows.
type EmergencyUpdate struct {
	ID        string                 `json:"id" bson:"id"`
	Type      UpdateType             `json:"type" bson:"type"`
	Message   string                 `json:"message" bson:"message"`
	Timestamp time.Time              `json:"timestamp" bson:"timestamp"`
	UpdatedBy string                 `json:"updatedBy" bson:"updatedBy"`
	Data      map[string]interface{} `json:"data,omitempty" bson:"data,omitempty"`
}

// EmergencySession is the aggregate root of an emergency, from creation to
// terminal status. IDs are assigned by the persistence layer, or synthesized
// with an "offline-" prefix when created without connectivity.
type EmergencySession struct {
	ID             string            `json:"id" bson:"_id"`
	EmergencyType  string            `json:"emergencyType" bson:"emergencyType"`
	Status         SessionStatus     `json:"status" bson:"status"`
	Priority       Priority          `json:"priority" bson:"priority"`
	ReportedBy     string            `json:"reportedBy" bson:"reportedBy"`
	UserProfile    *UserProfile      `json:"userProfile,omitempty" bson:"userProfile,omitempty"`
	Location       GeoPoint          `json:"location" bson:"location"`
	LocationData   *LocationData     `json:"locationData,omitempty" bson:"locationData,omitempty"`
	Address        string            `json:"address,omitempty" bson:"address,omitempty"`
	AudioRecording *AudioRecording   `json:"audioRecording,omitempty" bson:"audioRecording,omitempty"`
	Description    string            `json:"description,omitempty" bson:"description,omitempty"`
	Updates        []EmergencyUpdate `json:"updates" bson:"updates"`

	AssignedSecurity   []string `json:"assignedSecurity,omitempty" bson:"assignedSecurity,omitempty"`
	AssignedVolunteers []string `json:"assignedVolunteers,omitempty" bson:"assignedVolunteers,omitempty"`

	CreatedAt      time.Time  `json:"createdAt" bson:"createdAt"`
	LastUpdated    time.Time  `json:"lastUpdated" bson:"lastUpdated"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty" bson:"acknowledgedAt,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

func (s *EmergencySession) IsOffline() bool {
	if s.Metadata == nil {
		return false
	}
	offline, _ := s.Metadata["isOffline"].(bool)
	return offline
}

type CreateEmergencyRequest struct {
	EmergencyType string                 `json:"emergencyType" validate:"required,emergency_type"`
	Location      LocationData           `json:"location" validate:"required"`
	Description   string                 `json:"description,omitempty" validate:"max=2000"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

type UpdateStatusRequest struct {
	Status  SessionStatus `json:"status" validate:"required,session_status"`
	Message string        `json:"message,omitempty" validate:"max=2000"`
}

type AddUpdateRequest struct {
	Type    UpdateType             `json:"type" validate:"required"`
	Message string                 `json:"message" validate:"required,max=2000"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

type CancelEmergencyRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=2000"`
}

// EmergencyAlert is the audit record of one responder-channel dispatch.
type EmergencyAlert struct {
	ID             string            `json:"id" bson:"_id"`
	EmergencyID    string            `json:"emergencyId" bson:"emergencyId"`
	EmergencyType  string            `json:"emergencyType" bson:"emergencyType"`
	Location       GeoPoint          `json:"location" bson:"location"`
	Message        string            `json:"message" bson:"message"`
	Priority       Priority          `json:"priority" bson:"priority"`
	Recipients     []string          `json:"recipients" bson:"recipients"`
	SentAt         time.Time         `json:"sentAt" bson:"sentAt"`
	DeliveryStatus map[string]string `json:"deliveryStatus" bson:"deliveryStatus"`
}

// NearbyVolunteer pairs a volunteer with their distance from an emergency,
// in meters.
type NearbyVolunteer struct {
	User     User    `json:"user"`
	Distance float64 `json:"distance"`
}
