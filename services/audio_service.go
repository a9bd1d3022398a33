package services

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"campusguard/interfaces"
	"campusguard/models"
	"campusguard/utils"

	"github.com/sirupsen/logrus"
)

const audioObjectPrefix = "emergency-audio"

// AudioSubscription is a disposable registration for audio-level readings.
type AudioSubscription struct {
	once sync.Once
	stop func()
}

func (s *AudioSubscription) Unsubscribe() {
	s.once.Do(s.stop)
}

// AudioCaptureService manages a single exclusive recording tied to an
// emergency session and uploads the result to blob storage on stop.
type AudioCaptureService struct {
	recorder interfaces.AudioRecorder
	storage  utils.BlobStorage

	mu           sync.Mutex
	recording    bool
	sessionID    string
	nextObserver int
	observers    map[int]func(level float64)
}

func NewAudioCaptureService(recorder interfaces.AudioRecorder, storage utils.BlobStorage) *AudioCaptureService {
	return &AudioCaptureService{
		recorder:  recorder,
		storage:   storage,
		observers: make(map[int]func(float64)),
	}
}

// StartEmergencyRecording begins the exclusive recording for a session.
// Returns false without error when microphone permission is denied. Starting
// while a recording is active is rejected.
func (as *AudioCaptureService) StartEmergencyRecording(ctx context.Context, sessionID, emergencyType string) (bool, error) {
	as.mu.Lock()
	if as.recording {
		as.mu.Unlock()
		return false, utils.NewRecordingActiveError()
	}
	as.mu.Unlock()

	granted, err := as.recorder.PermissionState(ctx)
	if err != nil {
		logrus.Warnf("Microphone permission check failed: %v", err)
		return false, nil
	}
	if !granted {
		logrus.Info("Microphone permission not granted, skipping audio capture")
		return false, nil
	}

	if err := as.recorder.Start(ctx); err != nil {
		logrus.Warnf("Failed to start audio recording: %v", err)
		return false, nil
	}

	as.mu.Lock()
	as.recording = true
	as.sessionID = sessionID
	as.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"sessionId":     sessionID,
		"emergencyType": emergencyType,
	}).Info("Emergency audio recording started")

	return true, nil
}

// StopEmergencyRecording finalizes the active recording and uploads it.
// Returns nil when no recording is active. An upload failure is reported as
// a typed error so the caller can distinguish it from the no-op case.
func (as *AudioCaptureService) StopEmergencyRecording(ctx context.Context, sessionID, emergencyType string) (*models.AudioRecording, error) {
	as.mu.Lock()
	if !as.recording {
		as.mu.Unlock()
		return nil, nil
	}
	as.recording = false
	as.sessionID = ""
	as.mu.Unlock()

	data, _, err := as.recorder.Stop(ctx)
	if err != nil {
		return nil, utils.NewStorageError("failed to finalize audio recording", err)
	}
	if len(data) == 0 {
		logrus.Warn("Audio recording produced no data, skipping upload")
		return nil, nil
	}
	if as.storage == nil {
		logrus.Warn("Blob storage not configured, discarding emergency audio")
		return nil, nil
	}

	fileName := fmt.Sprintf("%s-%d.m4a", sessionID, time.Now().UnixMilli())
	objectPath := fmt.Sprintf("%s/%s", audioObjectPrefix, fileName)

	downloadURL, err := as.storage.Upload(ctx, objectPath, "audio/m4a", bytes.NewReader(data))
	if err != nil {
		return nil, utils.NewUploadError("failed to upload emergency audio", err)
	}

	recording := &models.AudioRecording{
		URL:        downloadURL,
		FileName:   fileName,
		UploadedAt: time.Now(),
	}

	logrus.WithFields(logrus.Fields{
		"sessionId": sessionID,
		"fileName":  fileName,
	}).Info("Emergency audio uploaded")

	return recording, nil
}

// Recording reports whether a capture is in flight.
func (as *AudioCaptureService) Recording() bool {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.recording
}

// SubscribeLevels registers an observer for audio-level readings. Multiple
// observers may be active at once.
func (as *AudioCaptureService) SubscribeLevels(fn func(level float64)) *AudioSubscription {
	as.mu.Lock()
	id := as.nextObserver
	as.nextObserver++
	as.observers[id] = fn
	as.mu.Unlock()

	return &AudioSubscription{stop: func() {
		as.mu.Lock()
		delete(as.observers, id)
		as.mu.Unlock()
	}}
}

// ReportLevel forwards one metering reading to all registered observers.
func (as *AudioCaptureService) ReportLevel(level float64) {
	as.mu.Lock()
	observers := make([]func(float64), 0, len(as.observers))
	for _, fn := range as.observers {
		observers = append(observers, fn)
	}
	as.mu.Unlock()

	for _, fn := range observers {
		fn(level)
	}
}

// Cleanup stops any in-flight recording and clears observer state. Safe to
// call multiple times.
func (as *AudioCaptureService) Cleanup(ctx context.Context) {
	as.mu.Lock()
	wasRecording := as.recording
	as.recording = false
	as.sessionID = ""
	as.observers = make(map[int]func(float64))
	as.mu.Unlock()

	if wasRecording {
		if _, _, err := as.recorder.Stop(ctx); err != nil {
			logrus.Warnf("Failed to stop recording during cleanup: %v", err)
		}
	}
}
