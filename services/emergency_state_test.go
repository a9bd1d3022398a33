package services

import (
	"testing"

	"campusguard/models"
	"campusguard/utils"

	"github.com/stretchr/testify/require"
)

func TestPriorityForType(t *testing.T) {
	require.Equal(t, models.PriorityCritical, PriorityForType(models.EmergencyTypeFire))
	require.Equal(t, models.PriorityCritical, PriorityForType(models.EmergencyTypeMedical))
	require.Equal(t, models.PriorityHigh, PriorityForType(models.EmergencyTypeRobbery))
	require.Equal(t, models.PriorityHigh, PriorityForType(models.EmergencyTypeAccident))
	require.Equal(t, models.PriorityMedium, PriorityForType(models.EmergencyTypeOther))
	require.Equal(t, models.PriorityMedium, PriorityForType("SOMETHING_ELSE"))
}

func TestRequiresSMSSideChannel(t *testing.T) {
	require.True(t, RequiresSMSSideChannel(models.EmergencyTypeFire))
	require.True(t, RequiresSMSSideChannel(models.EmergencyTypeMedical))
	require.True(t, RequiresSMSSideChannel(models.EmergencyTypeRobbery))
	require.False(t, RequiresSMSSideChannel(models.EmergencyTypeAccident))
	require.False(t, RequiresSMSSideChannel(models.EmergencyTypeOther))
}

func TestResolveTransitionForwardPath(t *testing.T) {
	tr, err := resolveTransition(models.SessionStatusActive, models.SessionStatusAcknowledged)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusAcknowledged, tr.next)
	require.Contains(t, tr.effects, effectStampAcknowledged)

	tr, err = resolveTransition(models.SessionStatusAcknowledged, models.SessionStatusResponded)
	require.NoError(t, err)
	require.Empty(t, tr.effects)

	tr, err = resolveTransition(models.SessionStatusResponded, models.SessionStatusResolved)
	require.NoError(t, err)
	require.Contains(t, tr.effects, effectStampResolved)
	require.Contains(t, tr.effects, effectStopSession)
}

func TestResolveTransitionCancelFromAnyNonTerminal(t *testing.T) {
	for _, from := range []models.SessionStatus{
		models.SessionStatusActive,
		models.SessionStatusAcknowledged,
		models.SessionStatusResponded,
	} {
		tr, err := resolveTransition(from, models.SessionStatusCancelled)
		require.NoError(t, err, "cancel from %s", from)
		require.Contains(t, tr.effects, effectStopSession)
	}
}

func TestResolveTransitionRejectsBackward(t *testing.T) {
	cases := []struct {
		from, to models.SessionStatus
	}{
		{models.SessionStatusAcknowledged, models.SessionStatusActive},
		{models.SessionStatusResponded, models.SessionStatusAcknowledged},
		{models.SessionStatusResolved, models.SessionStatusActive},
		{models.SessionStatusResolved, models.SessionStatusCancelled},
		{models.SessionStatusCancelled, models.SessionStatusResolved},
		{models.SessionStatusActive, models.SessionStatusActive},
	}

	for _, tc := range cases {
		_, err := resolveTransition(tc.from, tc.to)
		require.Error(t, err, "%s -> %s", tc.from, tc.to)

		svcErr, ok := utils.GetServiceError(err)
		require.True(t, ok)
		require.Equal(t, utils.ErrCodeInvalidTransition, svcErr.Code)
	}
}
