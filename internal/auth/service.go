package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tijzi/backend/internal/channel"
	"github.com/tijzi/backend/internal/metrics"
	"github.com/tijzi/backend/internal/model"
	"github.com/tijzi/backend/internal/phone"
)

var (
	// ErrInvalidCode covers a missing entry, a wrong code and an expired code alike
	ErrInvalidCode = errors.New("invalid or expired code")
	// ErrDeliveryFailed wraps the vendor error of a failed delivery
	ErrDeliveryFailed = errors.New("code delivery failed")
	ErrUnknownChannel = errors.New("unknown channel")
)

// AuthService orchestrates code delivery and verification
type AuthService struct {
	otpProvider OtpProvider
	channels    *channel.Registry
	metrics     metrics.Recorder
	logger      *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	otpProvider OtpProvider,
	channels *channel.Registry,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *AuthService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		otpProvider: otpProvider,
		channels:    channels,
		metrics:     recorder,
		logger:      logger,
	}
}

// SendCode issues a code for identity and delivers it through the named channel.
// The channel is resolved first so an unknown name never replaces a pending code.
// On delivery failure the new code stays stored; the caller just never sees it.
func (s *AuthService) SendCode(ctx context.Context, identity, channelName string) (string, error) {
	deliverer, ok := s.channels.Get(channelName)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, channelName)
	}

	code := s.otpProvider.GenerateAndStore(identity)
	s.metrics.RecordIssued()

	start := time.Now()
	err := deliverer.Deliver(ctx, identity, code)
	s.metrics.RecordDelivery(deliverer.Name(), err, time.Since(start))
	if err != nil {
		s.logger.ErrorContext(ctx, "code delivery failed",
			slog.String("channel", deliverer.Name()),
			slog.String("identity", phone.Mask(identity)),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w via %s: %w", ErrDeliveryFailed, deliverer.Name(), err)
	}

	s.logger.InfoContext(ctx, "code sent",
		slog.String("channel", deliverer.Name()),
		slog.String("identity", phone.Mask(identity)),
	)
	return code, nil
}

// VerifyCode checks code for identity and mints a session on success
func (s *AuthService) VerifyCode(ctx context.Context, identity, code string) (model.Session, error) {
	ok := s.otpProvider.Verify(identity, code)
	s.metrics.RecordVerification(ok)
	if !ok {
		s.logger.InfoContext(ctx, "code rejected", slog.String("identity", phone.Mask(identity)))
		return model.Session{}, ErrInvalidCode
	}

	token, err := s.otpProvider.GenerateToken(identity)
	if err != nil {
		return model.Session{}, fmt.Errorf("mint session token: %w", err)
	}

	s.logger.InfoContext(ctx, "session issued", slog.String("identity", phone.Mask(identity)))
	return model.Session{Token: token, UserID: identity}, nil
}

// Channels exposes the registry for status reporting
func (s *AuthService) Channels() *channel.Registry {
	return s.channels
}
