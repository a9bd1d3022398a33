package models

import "time"

const (
	RoleStudent   = "student"
	RoleSecurity  = "security"
	RoleVolunteer = "volunteer"
	RoleStaff     = "staff"
)

type User struct {
	ID          string    `json:"id" bson:"_id"`
	DisplayName string    `json:"displayName,omitempty" bson:"displayName,omitempty"`
	Email       string    `json:"email,omitempty" bson:"email,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty" bson:"phoneNumber,omitempty"`
	StudentID   string    `json:"studentId,omitempty" bson:"studentId,omitempty"`
	Role        string    `json:"role" bson:"role"`
	PushToken   string    `json:"pushToken,omitempty" bson:"pushToken,omitempty"`
	IsActive    bool      `json:"isActive" bson:"isActive"`
	IsAvailable bool      `json:"isAvailable" bson:"isAvailable"`
	IsVerified  bool      `json:"isVerified" bson:"isVerified"`
	Location    *GeoPoint `json:"location,omitempty" bson:"location,omitempty"`
	LastSeen    time.Time `json:"lastSeen,omitempty" bson:"lastSeen,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// UserProfile is the snapshot embedded into an emergency session for
// responder context. Fetched best-effort at session creation.
type UserProfile struct {
	Name      string `json:"name" bson:"name"`
	Phone     string `json:"phone,omitempty" bson:"phone,omitempty"`
	StudentID string `json:"studentId,omitempty" bson:"studentId,omitempty"`
}

type EmergencyContact struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"userId" bson:"userId"`
	Name        string    `json:"name" bson:"name" validate:"required,max=100"`
	PhoneNumber string    `json:"phoneNumber,omitempty" bson:"phoneNumber,omitempty" validate:"omitempty,phone"`
	Email       string    `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Relationship string   `json:"relationship,omitempty" bson:"relationship,omitempty"`
	PushToken   string    `json:"pushToken,omitempty" bson:"pushToken,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}
