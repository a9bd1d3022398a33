package models

import "time"

// WebSocket Message Types
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	UserID    string      `json:"userId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"requestId,omitempty"`
}

type WSEmergencyAlert struct {
	UserID        string       `json:"userId"`
	SessionID     string       `json:"sessionId"`
	EmergencyType string       `json:"emergencyType"`
	Priority      string       `json:"priority"`
	Title         string       `json:"title"`
	Message       string       `json:"message,omitempty"`
	Location      *LocationFix `json:"location,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

type WSSessionUpdate struct {
	SessionID string           `json:"sessionId"`
	Status    SessionStatus    `json:"status"`
	Update    *EmergencyUpdate `json:"update,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

type WSLocationUpdate struct {
	SessionID string       `json:"sessionId"`
	UserID    string       `json:"userId"`
	Location  LocationData `json:"location"`
	Timestamp time.Time    `json:"timestamp"`
}

type WSHazardAlert struct {
	HazardID   string    `json:"hazardId"`
	HazardType string    `json:"hazardType"`
	Severity   string    `json:"severity"`
	Location   GeoPoint  `json:"location"`
	Timestamp  time.Time `json:"timestamp"`
}
