package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTService_IssueAndVerify(t *testing.T) {
	s := NewJWTService("test-secret", time.Hour)
	issuedAt := time.Now()

	tok, err := s.Issue("+573001234567", issuedAt)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("expected compact JWT, got %q", tok)
	}

	claims, err := s.VerifyToken(tok)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Identity != "+573001234567" || claims.Subject != "+573001234567" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if claims.ID == "" {
		t.Error("token should carry a jti")
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Errorf("ttl = %v, want 1h", got)
	}
}

func TestJWTService_UniqueIDs(t *testing.T) {
	s := NewJWTService("secret", 0)
	now := time.Now()
	a, _ := s.Issue("id", now)
	b, _ := s.Issue("id", now)
	if a == b {
		t.Error("tokens issued in the same second should still differ by jti")
	}
}

func TestJWTService_Expired(t *testing.T) {
	s := NewJWTService("secret", time.Minute)
	issuedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tok, err := s.Issue("id", issuedAt)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	s.now = func() time.Time { return issuedAt.Add(30 * time.Second) }
	if _, err := s.VerifyToken(tok); err != nil {
		t.Errorf("token should be valid inside ttl: %v", err)
	}

	s.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	if _, err := s.VerifyToken(tok); err == nil {
		t.Error("expired token should be rejected")
	}
}

func TestJWTService_WrongSecret(t *testing.T) {
	tok, _ := NewJWTService("one", time.Hour).Issue("id", time.Now())
	if _, err := NewJWTService("two", time.Hour).VerifyToken(tok); err == nil {
		t.Error("token signed with another secret should be rejected")
	}
}

func TestJWTService_RejectsNoneAlg(t *testing.T) {
	claims := &SessionClaims{
		Identity: "id",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := NewJWTService("secret", time.Hour).VerifyToken(tok); err == nil {
		t.Error("unsigned token should be rejected")
	}
}

func TestOtpManager_WithJWTIssuer(t *testing.T) {
	clock := newFakeClock()
	s := NewJWTService("secret", time.Hour)
	s.now = clock.Now
	m := newTestManager(clock, WithTokenIssuer(s))

	tok, err := m.GenerateToken("+49123")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := s.VerifyToken(tok)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Subject != "+49123" {
		t.Errorf("subject = %q", claims.Subject)
	}
	if !claims.IssuedAt.Time.Equal(clock.Now()) {
		t.Errorf("iat should come from the manager clock")
	}
}
