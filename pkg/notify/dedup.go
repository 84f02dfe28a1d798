package notify

import (
	"crypto/md5"
	"encoding/hex"
	"sync"
	"time"
)

// dedupWindow is the trailing interval during which an identical error
// text is suppressed from re-notification.
const dedupWindow = 2 * time.Minute

type dedupEntry struct {
	at          time.Time
	fingerprint string
}

// deduplicator keeps a sliding-window history of recently sent error
// fingerprints. All access goes through the mutex: callers may raise
// errors from many goroutines against one notifier.
type deduplicator struct {
	mu      sync.Mutex
	history []dedupEntry
	now     func() time.Time
}

func newDeduplicator(now func() time.Time) *deduplicator {
	if now == nil {
		now = time.Now
	}
	return &deduplicator{now: now}
}

// checkAndRecord prunes expired entries, then reports whether the
// fingerprint was already sent within the window. A previously unseen
// fingerprint is recorded before returning.
func (d *deduplicator) checkAndRecord(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	cutoff := now.Add(-dedupWindow)

	kept := d.history[:0]
	for _, entry := range d.history {
		if entry.at.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	d.history = kept

	for _, entry := range d.history {
		if entry.fingerprint == fingerprint {
			return true
		}
	}

	d.history = append(d.history, dedupEntry{at: now, fingerprint: fingerprint})
	return false
}

// fingerprintText returns a stable hash of the full formatted error text
func fingerprintText(errorText string) string {
	sum := md5.Sum([]byte(errorText))
	return hex.EncodeToString(sum[:])
}
