package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/tijzi/backend/internal/model"
	"github.com/tijzi/backend/internal/repo"
)

const (
	defaultOTPLength = 6
	defaultOTPExpiry = 5 * time.Minute
)

// OtpManager implements OtpProvider on top of an OtpRepo.
// It keeps at most one code per identity; issuing a new code replaces the old one.
type OtpManager struct {
	otpRepo    repo.OtpRepo
	issuer     TokenIssuer
	now        func() time.Time
	random     io.Reader
	codeLength int
	expiry     time.Duration
}

// Option configures an OtpManager
type Option func(*OtpManager)

// WithClock overrides the time source (tests use a fixed clock)
func WithClock(now func() time.Time) Option {
	return func(m *OtpManager) { m.now = now }
}

// WithCodeLength sets the number of digits in generated codes
func WithCodeLength(n int) Option {
	return func(m *OtpManager) { m.codeLength = n }
}

// WithExpiry sets the validity window of a code
func WithExpiry(d time.Duration) Option {
	return func(m *OtpManager) { m.expiry = d }
}

// WithTokenIssuer replaces the default prefix token format
func WithTokenIssuer(issuer TokenIssuer) Option {
	return func(m *OtpManager) { m.issuer = issuer }
}

// WithRandom sets the randomness source used for codes
func WithRandom(r io.Reader) Option {
	return func(m *OtpManager) { m.random = r }
}

// NewOtpManager creates a new OTP lifecycle manager
func NewOtpManager(otpRepo repo.OtpRepo, opts ...Option) *OtpManager {
	m := &OtpManager{
		otpRepo:    otpRepo,
		issuer:     PrefixTokenIssuer{},
		now:        time.Now,
		random:     rand.Reader,
		codeLength: defaultOTPLength,
		expiry:     defaultOTPExpiry,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Expiry returns the configured validity window
func (m *OtpManager) Expiry() time.Duration {
	return m.expiry
}

// GenerateAndStore issues a fresh code for identity and replaces any previous entry.
// The returned code must only reach the user through a delivery channel, or a debug response.
func (m *OtpManager) GenerateAndStore(identity string) string {
	code, err := generateOTPCode(m.random, m.codeLength)
	if err != nil {
		// crypto/rand.Reader does not fail on supported platforms
		panic(fmt.Sprintf("otp: read random source: %v", err))
	}
	m.otpRepo.CreateOrReplace(identity, model.OtpEntry{Code: code, IssuedAt: m.now()})
	return code
}

// Verify reports whether code matches the live entry for identity.
// Verification does not consume the entry: it stays valid until it expires or is replaced.
func (m *OtpManager) Verify(identity, code string) bool {
	entry, ok := m.otpRepo.GetByIdentity(identity)
	if !ok {
		return false
	}
	if entry.Code != code {
		return false
	}
	return !entry.ExpiredAt(m.now(), m.expiry)
}

// GenerateToken mints a session token for identity using the configured issuer
func (m *OtpManager) GenerateToken(identity string) (string, error) {
	return m.issuer.Issue(identity, m.now())
}

// Snapshot returns a copy of the stored entries (debug only)
func (m *OtpManager) Snapshot() map[string]model.OtpEntry {
	return m.otpRepo.Snapshot()
}

// Sweep deletes entries that can no longer verify and returns how many were removed
func (m *OtpManager) Sweep() int {
	return m.otpRepo.DeleteIssuedBefore(m.now().Add(-m.expiry))
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
// Sweeping only reclaims memory; Verify already rejects expired entries on its own.
func (m *OtpManager) StartSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed := m.Sweep()
				if onSweep != nil {
					onSweep(removed)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// generateOTPCode samples uniformly from [10^(n-1), 10^n - 1], so codes never start with zero
// and always have exactly n digits.
func generateOTPCode(r io.Reader, length int) (string, error) {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))

	n, err := rand.Int(r, span)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Add(n, low).Int64(), 10), nil
}
