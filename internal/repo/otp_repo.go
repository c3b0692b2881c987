package repo

import (
	"sync"
	"time"

	"github.com/tijzi/backend/internal/model"
)

// OtpRepo defines the interface for OTP entry storage
type OtpRepo interface {
	CreateOrReplace(identity string, entry model.OtpEntry)
	GetByIdentity(identity string) (model.OtpEntry, bool)
	DeleteIssuedBefore(cutoff time.Time) int
	Snapshot() map[string]model.OtpEntry
}

type otpRepo struct {
	mu      sync.RWMutex
	entries map[string]model.OtpEntry
}

// NewOtpRepo creates a new in-memory OtpRepo. State lives for the lifetime of the process.
func NewOtpRepo() OtpRepo {
	return &otpRepo{entries: make(map[string]model.OtpEntry)}
}

// CreateOrReplace stores entry as the only entry for identity, dropping any previous one.
func (r *otpRepo) CreateOrReplace(identity string, entry model.OtpEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[identity] = entry
}

// GetByIdentity returns the stored entry for identity, expired or not.
func (r *otpRepo) GetByIdentity(identity string) (model.OtpEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[identity]
	return e, ok
}

// DeleteIssuedBefore removes entries issued at or before cutoff and returns how many were removed.
func (r *otpRepo) DeleteIssuedBefore(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for identity, e := range r.entries {
		if !e.IssuedAt.After(cutoff) {
			delete(r.entries, identity)
			removed++
		}
	}
	return removed
}

// Snapshot returns a copy of all stored entries
func (r *otpRepo) Snapshot() map[string]model.OtpEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]model.OtpEntry, len(r.entries))
	for identity, e := range r.entries {
		out[identity] = e
	}
	return out
}
