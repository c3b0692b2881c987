package model

import "time"

// OtpEntry is the most recently issued code for an identity
type OtpEntry struct {
	Code     string
	IssuedAt time.Time
}

// ExpiredAt reports whether the entry is outside its validity window at now.
// The window is half-open: an entry is valid while now-IssuedAt < window.
func (e OtpEntry) ExpiredAt(now time.Time, window time.Duration) bool {
	return now.Sub(e.IssuedAt) >= window
}

// Session is returned to the client after a successful verification
type Session struct {
	Token  string
	UserID string
}
