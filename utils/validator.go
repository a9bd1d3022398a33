package utils

import (
	"fmt"
	"regexp"
	"strings"

	"campusguard/models"

	"github.com/go-playground/validator/v10"
)

type ValidationService struct {
	validator *validator.Validate
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func NewValidationService() *ValidationService {
	v := validator.New()

	// Register custom validators
	v.RegisterValidation("phone", validatePhone)
	v.RegisterValidation("coordinate", validateCoordinate)
	v.RegisterValidation("emergency_type", validateEmergencyType)
	v.RegisterValidation("session_status", validateSessionStatus)
	v.RegisterValidation("hazard_type", validateHazardType)
	v.RegisterValidation("hazard_severity", validateHazardSeverity)

	return &ValidationService{
		validator: v,
	}
}

func (vs *ValidationService) ValidateStruct(s interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := vs.validator.Struct(s)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, ValidationError{
				Field:   err.Field(),
				Tag:     err.Tag(),
				Value:   fmt.Sprintf("%v", err.Value()),
				Message: vs.getErrorMessage(err),
			})
		}
	}

	return validationErrors
}

func (vs *ValidationService) getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email format"
	case "phone":
		return "Invalid phone number format"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "coordinate":
		return "Invalid coordinate value"
	case "emergency_type":
		return "Invalid emergency type"
	case "session_status":
		return "Invalid session status"
	case "hazard_type":
		return "Invalid hazard type"
	case "hazard_severity":
		return "Invalid hazard severity"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// Custom validation functions
func validatePhone(fl validator.FieldLevel) bool {
	phone := fl.Field().String()
	cleaned := regexp.MustCompile(`\D`).ReplaceAllString(phone, "")

	if len(cleaned) < 10 || len(cleaned) > 15 {
		return false
	}

	phoneRegex := regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)
	return phoneRegex.MatchString(phone)
}

func validateCoordinate(fl validator.FieldLevel) bool {
	coord := fl.Field().Float()
	fieldName := fl.FieldName()

	if strings.Contains(strings.ToLower(fieldName), "lat") {
		return coord >= -90 && coord <= 90
	}
	if strings.Contains(strings.ToLower(fieldName), "lon") || strings.Contains(strings.ToLower(fieldName), "lng") {
		return coord >= -180 && coord <= 180
	}

	return true
}

func validateEmergencyType(fl validator.FieldLevel) bool {
	emergencyType := fl.Field().String()
	validTypes := []string{
		models.EmergencyTypeFire,
		models.EmergencyTypeMedical,
		models.EmergencyTypeRobbery,
		models.EmergencyTypeAccident,
		models.EmergencyTypeOther,
	}

	for _, validType := range validTypes {
		if emergencyType == validType {
			return true
		}
	}
	return false
}

func validateSessionStatus(fl validator.FieldLevel) bool {
	status := models.SessionStatus(fl.Field().String())
	validStatuses := []models.SessionStatus{
		models.SessionStatusActive,
		models.SessionStatusAcknowledged,
		models.SessionStatusResponded,
		models.SessionStatusResolved,
		models.SessionStatusCancelled,
	}

	for _, validStatus := range validStatuses {
		if status == validStatus {
			return true
		}
	}
	return false
}

func validateHazardType(fl validator.FieldLevel) bool {
	hazardType := fl.Field().String()
	for _, validType := range models.HazardTypes {
		if hazardType == validType {
			return true
		}
	}
	return false
}

func validateHazardSeverity(fl validator.FieldLevel) bool {
	severity := fl.Field().String()
	validSeverities := []string{
		models.HazardSeverityLow,
		models.HazardSeverityModerate,
		models.HazardSeverityCritical,
	}

	for _, validSeverity := range validSeverities {
		if severity == validSeverity {
			return true
		}
	}
	return false
}

func SanitizeInput(input string) string {
	// Remove any potentially dangerous characters
	input = strings.TrimSpace(input)
	input = regexp.MustCompile(`[<>\"';&]`).ReplaceAllString(input, "")
	return input
}
