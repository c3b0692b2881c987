package auth

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tijzi/backend/internal/repo"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestManager(clock *fakeClock, opts ...Option) *OtpManager {
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewOtpManager(repo.NewOtpRepo(), opts...)
}

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestGenerateAndStore_CodeFormat(t *testing.T) {
	m := newTestManager(newFakeClock())
	for i := 0; i < 500; i++ {
		code := m.GenerateAndStore("+573001234567")
		if !sixDigits.MatchString(code) {
			t.Fatalf("code %q is not six digits", code)
		}
		n, _ := strconv.Atoi(code)
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d out of range", n)
		}
	}
}

func TestGenerateAndStore_CustomLength(t *testing.T) {
	m := newTestManager(newFakeClock(), WithCodeLength(4))
	code := m.GenerateAndStore("id")
	if len(code) != 4 || code[0] == '0' {
		t.Errorf("expected 4-digit code without leading zero, got %q", code)
	}
}

func TestGenerateOTPCode_Bounds(t *testing.T) {
	// an all-zero source yields the lowest value, never a zero-padded one
	low, err := generateOTPCode(bytes.NewReader(make([]byte, 64)), 6)
	if err != nil {
		t.Fatalf("generateOTPCode: %v", err)
	}
	if low != "100000" {
		t.Errorf("zero source should give 100000, got %q", low)
	}

	if _, err := generateOTPCode(bytes.NewReader(nil), 6); err == nil {
		t.Error("expected error from exhausted reader")
	}
}

func TestGenerateAndStore_PanicsOnBrokenRandom(t *testing.T) {
	m := newTestManager(newFakeClock(), WithRandom(bytes.NewReader(nil)))
	defer func() {
		if recover() == nil {
			t.Error("expected panic when the random source fails")
		}
	}()
	m.GenerateAndStore("id")
}

func TestVerify_MatchMismatchUnknown(t *testing.T) {
	m := newTestManager(newFakeClock())
	code := m.GenerateAndStore("+49123")

	if !m.Verify("+49123", code) {
		t.Error("issued code should verify")
	}
	if m.Verify("+49123", wrongCode(code)) {
		t.Error("different code should not verify")
	}
	if m.Verify("+49999", code) {
		t.Error("unknown identity should not verify")
	}
	if m.Verify("+49123", " "+code) {
		t.Error("submitted code is compared without trimming")
	}
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(clock)
	code := m.GenerateAndStore("+49123")

	clock.Advance(299 * time.Second)
	if !m.Verify("+49123", code) {
		t.Error("code should verify at 299s")
	}

	clock.Advance(time.Second)
	if m.Verify("+49123", code) {
		t.Error("code should not verify at exactly 300s")
	}

	clock.Advance(time.Hour)
	if m.Verify("+49123", code) {
		t.Error("code should not verify long after expiry")
	}
}

func TestVerify_NonConsuming(t *testing.T) {
	m := newTestManager(newFakeClock())
	code := m.GenerateAndStore("id")

	for i := 0; i < 3; i++ {
		if !m.Verify("id", code) {
			t.Fatalf("verification %d should still succeed", i+1)
		}
	}
}

func TestGenerateAndStore_ReplacesPrevious(t *testing.T) {
	m := newTestManager(newFakeClock())
	first := m.GenerateAndStore("id")
	var second string
	for second = m.GenerateAndStore("id"); second == first; second = m.GenerateAndStore("id") {
	}

	if m.Verify("id", first) {
		t.Error("previous code should be invalidated by a new one")
	}
	if !m.Verify("id", second) {
		t.Error("latest code should verify")
	}
}

func TestGenerateAndStore_RestartsWindow(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(clock)
	m.GenerateAndStore("id")

	clock.Advance(4 * time.Minute)
	code := m.GenerateAndStore("id")

	clock.Advance(4 * time.Minute)
	if !m.Verify("id", code) {
		t.Error("re-issued code should have a fresh window")
	}
}

func TestGenerateToken_PrefixFormat(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(clock)

	tok, err := m.GenerateToken("+573001234567")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	want := "tijzi-token-+573001234567-" + strconv.FormatInt(clock.Now().Unix(), 10)
	if tok != want {
		t.Errorf("token = %q, want %q", tok, want)
	}

	clock.Advance(time.Second)
	tok2, _ := m.GenerateToken("+573001234567")
	if tok2 == tok {
		t.Error("tokens minted in different seconds should differ")
	}
}

func TestScenario_PhoneLogin(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(clock)
	id := "+573001234567"

	code := m.GenerateAndStore(id)
	if !m.Verify(id, code) {
		t.Fatal("fresh code should verify")
	}
	if code != "000000" && m.Verify(id, "000000") {
		t.Error("000000 should not verify")
	}

	tok, err := m.GenerateToken(id)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if !strings.HasPrefix(tok, "tijzi-token-"+id+"-") || !strings.Contains(tok, id) {
		t.Errorf("unexpected token %q", tok)
	}
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(clock)

	m.GenerateAndStore("old")
	clock.Advance(3 * time.Minute)
	fresh := m.GenerateAndStore("fresh")
	clock.Advance(2 * time.Minute)

	if removed := m.Sweep(); removed != 1 {
		t.Errorf("expected 1 entry removed, got %d", removed)
	}
	snap := m.Snapshot()
	if _, ok := snap["old"]; ok {
		t.Error("expired entry should be gone")
	}
	if !m.Verify("fresh", fresh) {
		t.Error("sweep must not affect live entries")
	}
}

func TestStartSweeper_StopsWithContext(t *testing.T) {
	clock := newFakeClock()
	m := newTestManager(clock, WithExpiry(time.Second))
	m.GenerateAndStore("id")
	clock.Advance(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	swept := make(chan int, 1)
	m.StartSweeper(ctx, 5*time.Millisecond, func(removed int) {
		if removed > 0 {
			select {
			case swept <- removed:
			default:
			}
		}
	})

	select {
	case n := <-swept:
		if n != 1 {
			t.Errorf("expected 1 removed, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not run")
	}
}

func TestOtpManager_Concurrent(t *testing.T) {
	m := NewOtpManager(repo.NewOtpRepo())
	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "+57300" + strconv.Itoa(i)
			code := m.GenerateAndStore(id)
			if !m.Verify(id, code) {
				errs <- errors.New("own code failed to verify for " + id)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func wrongCode(code string) string {
	if code == "999999" {
		return "100000"
	}
	n, _ := strconv.Atoi(code)
	return strconv.Itoa(n + 1)
}
