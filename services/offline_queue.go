package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"campusguard/interfaces"
	"campusguard/models"
	"campusguard/utils"
)

const offlineQueuePrefix = "campusguard:offline:session:"

// OfflineQueue holds emergency sessions created while the document store was
// unreachable. Entries are keyed by their synthesized "offline-" ids and
// drained by the sync worker once connectivity returns.
type OfflineQueue struct {
	kv interfaces.KeyValueStore
}

func NewOfflineQueue(kv interfaces.KeyValueStore) *OfflineQueue {
	return &OfflineQueue{kv: kv}
}

func (oq *OfflineQueue) Enqueue(ctx context.Context, session *models.EmergencySession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return utils.NewStorageError("failed to serialize offline session", err)
	}

	if err := oq.kv.Set(ctx, offlineQueuePrefix+session.ID, payload, 0); err != nil {
		return utils.NewStorageError("failed to queue offline session", err)
	}

	return nil
}

// Pending returns queued sessions ordered by creation time.
func (oq *OfflineQueue) Pending(ctx context.Context) ([]models.EmergencySession, error) {
	keys, err := oq.kv.Keys(ctx, offlineQueuePrefix)
	if err != nil {
		return nil, utils.NewStorageError("failed to list offline sessions", err)
	}

	var sessions []models.EmergencySession
	for _, key := range keys {
		payload, err := oq.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, interfaces.ErrKeyNotFound) {
				continue
			}
			return nil, utils.NewStorageError("failed to read offline session", err)
		}

		var session models.EmergencySession
		if err := json.Unmarshal(payload, &session); err != nil {
			continue
		}
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	return sessions, nil
}

// Remove drops a queued session after it has been flushed. Idempotent.
func (oq *OfflineQueue) Remove(ctx context.Context, sessionID string) error {
	err := oq.kv.Delete(ctx, offlineQueuePrefix+sessionID)
	if err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		return utils.NewStorageError("failed to remove offline session", err)
	}
	return nil
}
