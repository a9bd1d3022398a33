package workers

import (
	"context"
	"sync"
	"time"

	"campusguard/interfaces"
	"campusguard/models"
	"campusguard/services"

	"github.com/sirupsen/logrus"
)

// OfflineSessionWriter persists a flushed offline session and fans out the
// deferred responder notification.
type OfflineSessionWriter interface {
	Create(ctx context.Context, session *models.EmergencySession) error
}

// SyncWorker drains the offline session queue once the document store is
// reachable again. Each queued session is written remotely exactly once,
// keeping its synthesized id and isOffline marker, then the deferred
// responder notification runs.
type SyncWorker struct {
	queue        *services.OfflineQueue
	sessions     OfflineSessionWriter
	notifier     services.EmergencyNotifier
	connectivity interfaces.ConnectivityProbe
	interval     time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSyncWorker(
	queue *services.OfflineQueue,
	sessions OfflineSessionWriter,
	notifier services.EmergencyNotifier,
	connectivity interfaces.ConnectivityProbe,
	interval time.Duration,
) *SyncWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncWorker{
		queue:        queue,
		sessions:     sessions,
		notifier:     notifier,
		connectivity: connectivity,
		interval:     interval,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (sw *SyncWorker) Start() {
	sw.wg.Add(1)
	go func() {
		defer sw.wg.Done()

		ticker := time.NewTicker(sw.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sw.FlushOnce(sw.ctx)
			case <-sw.ctx.Done():
				return
			}
		}
	}()

	logrus.Info("Offline sync worker started")
}

func (sw *SyncWorker) Stop() {
	sw.cancel()
	sw.wg.Wait()
}

// FlushOnce drains the queue if the store is reachable. Sessions are
// removed from the queue only after a successful remote write, so a crash
// mid-flush retries rather than drops.
func (sw *SyncWorker) FlushOnce(ctx context.Context) int {
	if !sw.connectivity.IsOnline(ctx) {
		return 0
	}

	pending, err := sw.queue.Pending(ctx)
	if err != nil {
		logrus.Warnf("Offline queue read failed: %v", err)
		return 0
	}

	flushed := 0
	for i := range pending {
		session := pending[i]

		if err := sw.sessions.Create(ctx, &session); err != nil {
			logrus.Warnf("Offline session %s flush failed: %v", session.ID, err)
			continue
		}

		if err := sw.queue.Remove(ctx, session.ID); err != nil {
			logrus.Warnf("Offline session %s dequeue failed: %v", session.ID, err)
		}

		if sw.notifier != nil {
			if err := sw.notifier.NotifyEmergencyCreated(ctx, &session); err != nil {
				logrus.Warnf("Deferred responder dispatch for %s failed: %v", session.ID, err)
			}
		}

		flushed++
		logrus.WithField("sessionId", session.ID).Info("Offline session synced")
	}

	return flushed
}
