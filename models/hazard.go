package models

import "time"

const (
	HazardSeverityLow      = "low"
	HazardSeverityModerate = "moderate"
	HazardSeverityCritical = "critical"
)

// Hazard categories reportable by students.
var HazardTypes = []string{
	"Poor Lighting",
	"Broken Infrastructure",
	"Suspicious Activity",
	"Unsafe Area",
	"Other",
}

// HazardReport is a community-sourced safety concern. UpvotedBy is a set:
// a user appears at most once, and Upvotes always equals len(UpvotedBy).
type HazardReport struct {
	ID          string    `json:"id" bson:"_id"`
	ReportedBy  string    `json:"reportedBy" bson:"reportedBy"`
	HazardType  string    `json:"hazardType" bson:"hazardType"`
	Severity    string    `json:"severity" bson:"severity"`
	Description string    `json:"description" bson:"description"`
	Location    GeoPoint  `json:"location" bson:"location"`
	Status      string    `json:"status" bson:"status"`
	Upvotes     int       `json:"upvotes" bson:"upvotes"`
	UpvotedBy   []string  `json:"upvotedBy" bson:"upvotedBy"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

type CreateHazardReportRequest struct {
	HazardType  string   `json:"hazardType" validate:"required,hazard_type"`
	Severity    string   `json:"severity" validate:"required,hazard_severity"`
	Description string   `json:"description" validate:"required,max=2000"`
	Location    GeoPoint `json:"location" validate:"required"`
}
