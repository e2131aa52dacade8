package idempotency

import (
	"log/slog"
	"time"
)

// DefaultKeyExpiry is how long cached responses stay replayable. Mobile
// retry windows are short; a day is generous.
const DefaultKeyExpiry = 24 * time.Hour

// CleanupOldKeys removes keys older than expiry and returns the count.
func CleanupOldKeys(repo Repository, expiry time.Duration) (int64, error) {
	if expiry <= 0 {
		expiry = DefaultKeyExpiry
	}
	return repo.DeleteOlderThan(expiry)
}

// RunPeriodicCleanup deletes expired keys on an interval until stopChan
// closes. Intended to run in its own goroutine.
func RunPeriodicCleanup(repo Repository, interval, expiry time.Duration, stopChan <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deleted, err := CleanupOldKeys(repo, expiry)
			if err != nil {
				slog.Error("idempotency cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				slog.Info("idempotency cleanup removed expired keys", "deleted", deleted)
			}
		case <-stopChan:
			return
		}
	}
}
