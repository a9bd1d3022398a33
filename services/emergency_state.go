package services

import (
	"campusguard/models"
	"campusguard/utils"
)

// transitionEffect names a side effect the coordinator runs when a
// transition is taken.
type transitionEffect int

const (
	effectStampAcknowledged transitionEffect = iota
	effectStampResolved
	effectStopSession
)

type transition struct {
	next    models.SessionStatus
	effects []transitionEffect
}

// sessionTransitions declares every legal status transition and its effects
// in one place. The happy path only moves forward; cancelled is reachable
// from any non-terminal status.
var sessionTransitions = map[models.SessionStatus]map[models.SessionStatus]transition{
	models.SessionStatusActive: {
		models.SessionStatusAcknowledged: {
			next:    models.SessionStatusAcknowledged,
			effects: []transitionEffect{effectStampAcknowledged},
		},
		models.SessionStatusResponded: {
			next: models.SessionStatusResponded,
		},
		models.SessionStatusResolved: {
			next:    models.SessionStatusResolved,
			effects: []transitionEffect{effectStampResolved, effectStopSession},
		},
		models.SessionStatusCancelled: {
			next:    models.SessionStatusCancelled,
			effects: []transitionEffect{effectStopSession},
		},
	},
	models.SessionStatusAcknowledged: {
		models.SessionStatusResponded: {
			next: models.SessionStatusResponded,
		},
		models.SessionStatusResolved: {
			next:    models.SessionStatusResolved,
			effects: []transitionEffect{effectStampResolved, effectStopSession},
		},
		models.SessionStatusCancelled: {
			next:    models.SessionStatusCancelled,
			effects: []transitionEffect{effectStopSession},
		},
	},
	models.SessionStatusResponded: {
		models.SessionStatusResolved: {
			next:    models.SessionStatusResolved,
			effects: []transitionEffect{effectStampResolved, effectStopSession},
		},
		models.SessionStatusCancelled: {
			next:    models.SessionStatusCancelled,
			effects: []transitionEffect{effectStopSession},
		},
	},
}

// resolveTransition validates a requested status change against the
// transition table.
func resolveTransition(current, requested models.SessionStatus) (transition, error) {
	byTarget, ok := sessionTransitions[current]
	if !ok {
		return transition{}, utils.NewInvalidTransitionError(string(current), string(requested))
	}
	t, ok := byTarget[requested]
	if !ok {
		return transition{}, utils.NewInvalidTransitionError(string(current), string(requested))
	}
	return t, nil
}

// PriorityForType maps an emergency category to its dispatch priority. The
// mapping is fixed; unrecognized categories default to medium.
func PriorityForType(emergencyType string) models.Priority {
	switch emergencyType {
	case models.EmergencyTypeFire, models.EmergencyTypeMedical:
		return models.PriorityCritical
	case models.EmergencyTypeRobbery, models.EmergencyTypeAccident:
		return models.PriorityHigh
	default:
		return models.PriorityMedium
	}
}

// RequiresSMSSideChannel reports whether the category is severe enough to
// also page the responder channel over SMS.
func RequiresSMSSideChannel(emergencyType string) bool {
	switch emergencyType {
	case models.EmergencyTypeFire, models.EmergencyTypeMedical, models.EmergencyTypeRobbery:
		return true
	default:
		return false
	}
}
