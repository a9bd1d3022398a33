package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetUserID retrieves the user ID from the Gin context, assuming it is stored as "userID" in context.
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("userID"); exists {
		if idStr, ok := userID.(string); ok {
			return idStr
		}
	}
	return ""
}

// GetUserRole retrieves the caller's role from the Gin context.
func GetUserRole(c *gin.Context) string {
	if role, exists := c.Get("userRole"); exists {
		if roleStr, ok := role.(string); ok {
			return roleStr
		}
	}
	return ""
}

// UUID Generation
func GenerateUUID() string {
	return uuid.New().String()
}

func GenerateShortID() string {
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// GenerateOfflineSessionID builds the deterministic identifier used for
// sessions created while the document store is unreachable.
func GenerateOfflineSessionID(now time.Time) string {
	return fmt.Sprintf("offline-%d", now.UnixMilli())
}

// String Utilities
func TruncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}

func StringSliceContains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func RemoveStringFromSlice(slice []string, item string) []string {
	for i, s := range slice {
		if s == item {
			return append(slice[:i], slice[i+1:]...)
		}
	}
	return slice
}

func UniqueStrings(slice []string) []string {
	keys := make(map[string]bool)
	var unique []string

	for _, item := range slice {
		if !keys[item] {
			keys[item] = true
			unique = append(unique, item)
		}
	}
	return unique
}

// Number Utilities
func RoundToDecimalPlaces(value float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(value*shift) / shift
}

func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
