package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"campusguard/interfaces"
	"campusguard/models"
	"campusguard/utils"

	"github.com/sirupsen/logrus"
)

const (
	sessionKey        = "campusguard:auth:session"
	sessionRelatedKey = "campusguard:auth:last_refresh"

	// Cached auth sessions older than this are discarded on read.
	sessionMaxAge = 7 * 24 * time.Hour
)

// SessionStore caches the authenticated user's session in the key-value
// store. Expiry is lazy: stale records are deleted on the read that finds
// them stale, not by a background job.
type SessionStore struct {
	kv  interfaces.KeyValueStore
	now func() time.Time
}

func NewSessionStore(kv interfaces.KeyValueStore) *SessionStore {
	return &SessionStore{
		kv:  kv,
		now: time.Now,
	}
}

// Store persists the session record, overwriting any prior value.
func (ss *SessionStore) Store(ctx context.Context, user models.UserSession, tokens models.AuthTokens) error {
	data := models.SessionData{
		User:      user,
		Tokens:    tokens,
		Timestamp: ss.now(),
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return utils.NewStorageError("failed to serialize session", err)
	}

	if err := ss.kv.Set(ctx, sessionKey, payload, 0); err != nil {
		return utils.NewStorageError("failed to persist session", err)
	}

	return nil
}

// Get returns the cached session, or nil when absent or expired. Reading an
// expired record deletes it.
func (ss *SessionStore) Get(ctx context.Context) (*models.SessionData, error) {
	payload, err := ss.kv.Get(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, utils.NewStorageError("failed to read session", err)
	}

	var data models.SessionData
	if err := json.Unmarshal(payload, &data); err != nil {
		// Unreadable records are dropped like expired ones.
		logrus.Warnf("Discarding corrupt session record: %v", err)
		ss.deleteQuietly(ctx)
		return nil, nil
	}

	if ss.now().Sub(data.Timestamp) > sessionMaxAge {
		ss.deleteQuietly(ctx)
		return nil, nil
	}

	return &data, nil
}

// GetUser returns just the embedded user record, or nil.
func (ss *SessionStore) GetUser(ctx context.Context) (*models.UserSession, error) {
	data, err := ss.Get(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	return &data.User, nil
}

// Clear deletes the session and related keys. Idempotent.
func (ss *SessionStore) Clear(ctx context.Context) error {
	if err := ss.kv.Delete(ctx, sessionKey); err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		return utils.NewStorageError("failed to clear session", err)
	}
	if err := ss.kv.Delete(ctx, sessionRelatedKey); err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		return utils.NewStorageError("failed to clear session refresh marker", err)
	}
	return nil
}

// HasValid reports whether a non-expired session exists.
func (ss *SessionStore) HasValid(ctx context.Context) (bool, error) {
	data, err := ss.Get(ctx)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}

func (ss *SessionStore) deleteQuietly(ctx context.Context) {
	if err := ss.kv.Delete(ctx, sessionKey); err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		logrus.Warnf("Failed to delete stale session record: %v", err)
	}
}
