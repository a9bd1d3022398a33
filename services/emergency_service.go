package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"campusguard/interfaces"
	"campusguard/models"
	"campusguard/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

// SessionPersistence is the slice of the emergency repository the
// coordinator depends on.
type SessionPersistence interface {
	Create(ctx context.Context, session *models.EmergencySession) error
	GetByID(ctx context.Context, id string) (*models.EmergencySession, error)
	Update(ctx context.Context, id string, updateFields bson.M) error
	AppendUpdate(ctx context.Context, id string, update models.EmergencyUpdate) error
	GetActiveByUser(ctx context.Context, userID string) (*models.EmergencySession, error)
	Watch(ctx context.Context, sessionID string, fn func(*models.EmergencySession)) error
}

// UserDirectory resolves reporter profiles.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// EmergencyNotifier is the fan-out surface the coordinator drives.
type EmergencyNotifier interface {
	NotifyEmergencyCreated(ctx context.Context, session *models.EmergencySession) error
	NotifyNearbyVolunteers(ctx context.Context, session *models.EmergencySession)
	NotifyEmergencyContacts(ctx context.Context, session *models.EmergencySession)
	NotifyStatusChanged(ctx context.Context, session *models.EmergencySession, previous models.SessionStatus) error
}

const systemActor = "system"

// EmergencyCoordinator owns the emergency state machine. It sequences the
// location tracker, audio capture, and notification fan-out around a single
// active session, and falls back to a local-only session when the document
// store is unreachable.
type EmergencyCoordinator struct {
	sessions     SessionPersistence
	users        UserDirectory
	tracker      *LocationTracker
	audio        *AudioCaptureService
	notifier     EmergencyNotifier
	offlineQueue *OfflineQueue
	connectivity interfaces.ConnectivityProbe
	broadcaster  interfaces.Broadcaster
	validator    *utils.ValidationService

	mu          sync.Mutex
	active      *models.EmergencySession
	watchCancel context.CancelFunc
}

func NewEmergencyCoordinator(
	sessions SessionPersistence,
	users UserDirectory,
	tracker *LocationTracker,
	audio *AudioCaptureService,
	notifier EmergencyNotifier,
	offlineQueue *OfflineQueue,
	connectivity interfaces.ConnectivityProbe,
	broadcaster interfaces.Broadcaster,
) *EmergencyCoordinator {
	return &EmergencyCoordinator{
		sessions:     sessions,
		users:        users,
		tracker:      tracker,
		audio:        audio,
		notifier:     notifier,
		offlineQueue: offlineQueue,
		connectivity: connectivity,
		broadcaster:  broadcaster,
		validator:    utils.NewValidationService(),
	}
}

// CreateEmergencySession opens a new emergency for the caller. When the
// document store is unreachable, or its write fails, creation falls back to
// a local-only session so device-side capture still runs; only the remote
// fan-out is deferred. A second session while one is active is rejected.
func (co *EmergencyCoordinator) CreateEmergencySession(ctx context.Context, userID string, req models.CreateEmergencyRequest) (string, error) {
	if validationErrors := co.validator.ValidateStruct(req); len(validationErrors) > 0 {
		return "", utils.NewBadRequestError(validationErrors[0].Message)
	}

	co.mu.Lock()
	if co.active != nil {
		co.mu.Unlock()
		return "", utils.NewActiveSessionExistsError()
	}
	co.mu.Unlock()

	if !co.connectivity.IsOnline(ctx) {
		return co.createOffline(ctx, userID, req)
	}

	if userID == "" {
		return "", utils.NewUnauthorizedError("Authentication required to report an emergency")
	}

	if existing, err := co.sessions.GetActiveByUser(ctx, userID); err == nil && existing != nil {
		return "", utils.NewActiveSessionExistsError()
	}

	session := co.buildSession(ctx, userID, req)

	if err := co.sessions.Create(ctx, session); err != nil {
		logrus.Warnf("Primary session write failed, falling back to offline capture: %v", err)
		return co.createOffline(ctx, userID, req)
	}

	co.mu.Lock()
	co.active = session
	co.mu.Unlock()

	co.runSideEffects(ctx, session)

	return session.ID, nil
}

func (co *EmergencyCoordinator) buildSession(ctx context.Context, userID string, req models.CreateEmergencyRequest) *models.EmergencySession {
	now := time.Now()

	// Profile snapshot is best-effort; a lookup failure never blocks
	// session creation.
	profile := &models.UserProfile{Name: "Anonymous"}
	if user, err := co.users.GetByID(ctx, userID); err == nil {
		profile = &models.UserProfile{
			Name:      user.DisplayName,
			Phone:     user.PhoneNumber,
			StudentID: user.StudentID,
		}
		if profile.Name == "" {
			profile.Name = "Anonymous"
		}
	} else {
		logrus.Debugf("Reporter profile lookup failed: %v", err)
	}

	seed := models.EmergencyUpdate{
		ID:        utils.GenerateUUID(),
		Type:      models.UpdateTypeStatusChange,
		Message:   "Emergency reported",
		Timestamp: now,
		UpdatedBy: userID,
	}

	return &models.EmergencySession{
		ID:            utils.GenerateUUID(),
		EmergencyType: req.EmergencyType,
		Status:        models.SessionStatusActive,
		Priority:      PriorityForType(req.EmergencyType),
		ReportedBy:    userID,
		UserProfile:   profile,
		Location:      req.Location.Point(),
		LocationData:  &req.Location,
		Description:   req.Description,
		Updates:       []models.EmergencyUpdate{seed},
		CreatedAt:     now,
		LastUpdated:   now,
		Metadata:      req.Metadata,
	}
}

func (co *EmergencyCoordinator) createOffline(ctx context.Context, userID string, req models.CreateEmergencyRequest) (string, error) {
	now := time.Now()

	reportedBy := userID
	if reportedBy == "" {
		reportedBy = "offline-user"
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	metadata["isOffline"] = true

	session := &models.EmergencySession{
		ID:            utils.GenerateOfflineSessionID(now),
		EmergencyType: req.EmergencyType,
		Status:        models.SessionStatusActive,
		Priority:      PriorityForType(req.EmergencyType),
		ReportedBy:    reportedBy,
		Location:      req.Location.Point(),
		LocationData:  &req.Location,
		Description:   req.Description,
		Updates: []models.EmergencyUpdate{{
			ID:        utils.GenerateUUID(),
			Type:      models.UpdateTypeStatusChange,
			Message:   "Emergency reported (offline)",
			Timestamp: now,
			UpdatedBy: reportedBy,
		}},
		CreatedAt:   now,
		LastUpdated: now,
		Metadata:    metadata,
	}

	co.mu.Lock()
	co.active = session
	co.mu.Unlock()

	if co.offlineQueue != nil {
		if err := co.offlineQueue.Enqueue(ctx, session); err != nil {
			logrus.Warnf("Failed to queue offline session for sync: %v", err)
		}
	}

	// Device-side capture still runs offline; only the remote fan-out is
	// deferred to the sync worker.
	co.startCapture(ctx, session)
	logrus.WithField("sessionId", session.ID).Info("Responder notification deferred until connectivity returns")

	return session.ID, nil
}

// runSideEffects performs the post-creation sequence. Each step is
// independently best-effort; one failing never stops the rest.
func (co *EmergencyCoordinator) runSideEffects(ctx context.Context, session *models.EmergencySession) {
	co.startCapture(ctx, session)

	if err := co.notifier.NotifyEmergencyCreated(ctx, session); err != nil {
		logrus.Warnf("Responder channel dispatch failed: %v", err)
	} else {
		if err := co.UpdateStatus(ctx, session.ID, models.SessionStatusAcknowledged, "Responders notified", systemActor); err != nil {
			logrus.Warnf("Failed to mark session acknowledged: %v", err)
		}
	}

	go co.notifier.NotifyNearbyVolunteers(context.WithoutCancel(ctx), session)
	go co.notifier.NotifyEmergencyContacts(context.WithoutCancel(ctx), session)

	co.attachLiveUpdates(session.ID)
}

func (co *EmergencyCoordinator) startCapture(ctx context.Context, session *models.EmergencySession) {
	if co.tracker.StartEmergencyTracking(ctx, session.ID) {
		co.appendUpdate(ctx, session, models.EmergencyUpdate{
			ID:        utils.GenerateUUID(),
			Type:      models.UpdateTypeLocationUpdate,
			Message:   "Location tracking started",
			Timestamp: time.Now(),
			UpdatedBy: systemActor,
		})
	}

	started, err := co.audio.StartEmergencyRecording(ctx, session.ID, session.EmergencyType)
	if err != nil {
		logrus.Warnf("Audio capture start rejected: %v", err)
	} else if started {
		co.appendUpdate(ctx, session, models.EmergencyUpdate{
			ID:        utils.GenerateUUID(),
			Type:      models.UpdateTypeMessage,
			Message:   "Audio recording started",
			Timestamp: time.Now(),
			UpdatedBy: systemActor,
		})
	}
}

// appendUpdate grows the session's audit trail in memory and, for online
// sessions, in the store.
func (co *EmergencyCoordinator) appendUpdate(ctx context.Context, session *models.EmergencySession, update models.EmergencyUpdate) {
	co.mu.Lock()
	session.Updates = append(session.Updates, update)
	session.LastUpdated = update.Timestamp
	co.mu.Unlock()

	if !session.IsOffline() {
		if err := co.sessions.AppendUpdate(ctx, session.ID, update); err != nil {
			logrus.Warnf("Failed to persist session update: %v", err)
		}
	}
}

// UpdateStatus drives the state machine. Illegal transitions are rejected;
// entering resolved or cancelled also tears the session down.
func (co *EmergencyCoordinator) UpdateStatus(ctx context.Context, id string, status models.SessionStatus, message, updatedBy string) error {
	session, err := co.loadSession(ctx, id)
	if err != nil {
		return err
	}

	previous := session.Status
	t, err := resolveTransition(previous, status)
	if err != nil {
		return err
	}

	now := time.Now()
	fields := bson.M{"status": t.next}

	co.mu.Lock()
	session.Status = t.next
	session.LastUpdated = now
	for _, effect := range t.effects {
		switch effect {
		case effectStampAcknowledged:
			session.AcknowledgedAt = &now
			fields["acknowledgedAt"] = now
		case effectStampResolved:
			session.ResolvedAt = &now
			fields["resolvedAt"] = now
		}
	}
	co.mu.Unlock()

	if !session.IsOffline() {
		if err := co.sessions.Update(ctx, id, fields); err != nil {
			return err
		}
	}

	if message != "" {
		co.appendUpdate(ctx, session, models.EmergencyUpdate{
			ID:        utils.GenerateUUID(),
			Type:      models.UpdateTypeStatusChange,
			Message:   message,
			Timestamp: now,
			UpdatedBy: updatedBy,
		})
	}

	if !session.IsOffline() {
		if err := co.notifier.NotifyStatusChanged(ctx, session, previous); err != nil {
			logrus.Warnf("Status change notification failed: %v", err)
		}
	}

	if co.broadcaster != nil {
		co.broadcaster.BroadcastSessionUpdate(models.WSSessionUpdate{
			SessionID: id,
			Status:    t.next,
			Timestamp: now,
		})
	}

	for _, effect := range t.effects {
		if effect == effectStopSession {
			if err := co.StopEmergencySession(ctx, id); err != nil {
				logrus.Warnf("Session teardown after %s failed: %v", t.next, err)
			}
		}
	}

	return nil
}

// AddUpdate appends a caller-supplied entry to the session's audit trail.
func (co *EmergencyCoordinator) AddUpdate(ctx context.Context, id string, req models.AddUpdateRequest, updatedBy string) (*models.EmergencyUpdate, error) {
	if validationErrors := co.validator.ValidateStruct(req); len(validationErrors) > 0 {
		return nil, utils.NewBadRequestError(validationErrors[0].Message)
	}

	session, err := co.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	update := models.EmergencyUpdate{
		ID:        utils.GenerateUUID(),
		Type:      req.Type,
		Message:   req.Message,
		Timestamp: time.Now(),
		UpdatedBy: updatedBy,
		Data:      req.Data,
	}

	co.appendUpdate(ctx, session, update)

	if co.broadcaster != nil {
		co.broadcaster.BroadcastSessionUpdate(models.WSSessionUpdate{
			SessionID: id,
			Status:    session.Status,
			Update:    &update,
			Timestamp: update.Timestamp,
		})
	}

	return &update, nil
}

// StopEmergencySession is the single teardown path: final audio upload,
// tracking stop, live-update detach, terminal audit entry. Idempotent; a
// second call for the same id is a no-op.
func (co *EmergencyCoordinator) StopEmergencySession(ctx context.Context, id string) error {
	co.mu.Lock()
	session := co.active
	if session == nil || session.ID != id {
		co.mu.Unlock()
		return nil
	}
	co.active = nil
	cancel := co.watchCancel
	co.watchCancel = nil
	co.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	recording, err := co.audio.StopEmergencyRecording(ctx, id, session.EmergencyType)
	if err != nil {
		logrus.Warnf("Final audio upload failed: %v", err)
	} else if recording != nil {
		co.updateEmergencyWithAudio(ctx, session, recording)
	}

	co.tracker.StopTracking()

	co.appendUpdate(ctx, session, models.EmergencyUpdate{
		ID:        utils.GenerateUUID(),
		Type:      models.UpdateTypeResolved,
		Message:   "Emergency session ended",
		Timestamp: time.Now(),
		UpdatedBy: systemActor,
	})

	logrus.WithField("sessionId", id).Info("Emergency session stopped")
	return nil
}

func (co *EmergencyCoordinator) updateEmergencyWithAudio(ctx context.Context, session *models.EmergencySession, recording *models.AudioRecording) {
	co.mu.Lock()
	session.AudioRecording = recording
	co.mu.Unlock()

	if !session.IsOffline() {
		if err := co.sessions.Update(ctx, session.ID, bson.M{"audioRecording": recording}); err != nil {
			logrus.Warnf("Failed to attach audio recording to session: %v", err)
		}
	}

	co.appendUpdate(ctx, session, models.EmergencyUpdate{
		ID:        utils.GenerateUUID(),
		Type:      models.UpdateTypeAudioReceived,
		Message:   "Audio recording uploaded",
		Timestamp: recording.UploadedAt,
		UpdatedBy: systemActor,
		Data:      map[string]interface{}{"fileName": recording.FileName},
	})
}

// CancelEmergency cancels a session with an optional reason.
func (co *EmergencyCoordinator) CancelEmergency(ctx context.Context, id, reason, updatedBy string) error {
	if reason == "" {
		reason = "Emergency cancelled by reporter"
	}
	return co.UpdateStatus(ctx, id, models.SessionStatusCancelled, reason, updatedBy)
}

// HasActiveEmergency reports whether the user owns any non-terminal session.
func (co *EmergencyCoordinator) HasActiveEmergency(ctx context.Context, userID string) (bool, error) {
	co.mu.Lock()
	if co.active != nil && co.active.ReportedBy == userID && !co.active.Status.Terminal() {
		co.mu.Unlock()
		return true, nil
	}
	co.mu.Unlock()

	session, err := co.sessions.GetActiveByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return session != nil, nil
}

// ActiveSession returns a snapshot of the in-memory active session, or nil.
func (co *EmergencyCoordinator) ActiveSession() *models.EmergencySession {
	co.mu.Lock()
	defer co.mu.Unlock()
	if co.active == nil {
		return nil
	}
	copied := *co.active
	return &copied
}

// GetSession resolves a session by id, preferring the in-memory copy.
func (co *EmergencyCoordinator) GetSession(ctx context.Context, id string) (*models.EmergencySession, error) {
	return co.loadSession(ctx, id)
}

func (co *EmergencyCoordinator) loadSession(ctx context.Context, id string) (*models.EmergencySession, error) {
	co.mu.Lock()
	if co.active != nil && co.active.ID == id {
		session := co.active
		co.mu.Unlock()
		return session, nil
	}
	co.mu.Unlock()

	session, err := co.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// attachLiveUpdates mirrors remote changes to the session record into the
// in-memory copy until the session stops.
func (co *EmergencyCoordinator) attachLiveUpdates(sessionID string) {
	watchCtx, cancel := context.WithCancel(context.Background())

	co.mu.Lock()
	co.watchCancel = cancel
	co.mu.Unlock()

	go func() {
		err := co.sessions.Watch(watchCtx, sessionID, func(remote *models.EmergencySession) {
			co.mergeRemote(sessionID, remote)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logrus.Warnf("Live-update subscription ended: %v", err)
		}
	}()
}

// mergeRemote applies a remote snapshot over the in-memory session.
// Whole-document fields are last-write-wins, but the updates sequence is
// append-only and never shrinks from a merge.
func (co *EmergencyCoordinator) mergeRemote(sessionID string, remote *models.EmergencySession) {
	co.mu.Lock()
	defer co.mu.Unlock()

	if co.active == nil || co.active.ID != sessionID {
		return
	}

	localUpdates := co.active.Updates
	merged := *remote
	if len(merged.Updates) < len(localUpdates) {
		merged.Updates = localUpdates
	}
	co.active = &merged
}

// Cleanup is the full shutdown path: stop the active session if any and
// cascade cleanup to the capture services.
func (co *EmergencyCoordinator) Cleanup(ctx context.Context) {
	co.mu.Lock()
	var activeID string
	if co.active != nil {
		activeID = co.active.ID
	}
	co.mu.Unlock()

	if activeID != "" {
		if err := co.StopEmergencySession(ctx, activeID); err != nil {
			logrus.Warnf("Cleanup session stop failed: %v", err)
		}
	}

	co.tracker.StopTracking()
	co.audio.Cleanup(ctx)
}
