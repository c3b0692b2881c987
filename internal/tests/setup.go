package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tijzi/backend/internal/auth"
	"github.com/tijzi/backend/internal/channel"
	httphandler "github.com/tijzi/backend/internal/http"
	"github.com/tijzi/backend/internal/http/handlers"
	"github.com/tijzi/backend/internal/metrics"
	"github.com/tijzi/backend/internal/repo"
)

// Clock is a manually advanced time source
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// RecordingChannel is a Deliverer that remembers the last code per identity
type RecordingChannel struct {
	name string

	mu   sync.Mutex
	err  error
	last map[string]string
}

// NewRecordingChannel creates a recording deliverer registered under name
func NewRecordingChannel(name string) *RecordingChannel {
	return &RecordingChannel{name: name, last: map[string]string{}}
}

func (c *RecordingChannel) Name() string     { return c.name }
func (c *RecordingChannel) Configured() bool { return true }

func (c *RecordingChannel) Deliver(_ context.Context, identity, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.last[identity] = code
	return nil
}

// Fail makes every following delivery return err (nil restores success)
func (c *RecordingChannel) Fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// LastCode returns the last code delivered to identity
func (c *RecordingChannel) LastCode(identity string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last[identity]
}

// Options tune the server built by NewTestServer
type Options struct {
	// JWTSecret switches session tokens to signed JWTs and mounts /me
	JWTSecret string
	Debug     bool
}

// TestServer is a fully wired API behind httptest.Server with a fake clock and recording channels
type TestServer struct {
	Server   *httptest.Server
	Manager  *auth.OtpManager
	Clock    *Clock
	WhatsApp *RecordingChannel
	SMS      *RecordingChannel
	Telegram *RecordingChannel
	Registry *prometheus.Registry
}

// NewTestServer wires repo, manager, channels, metrics and router the way main does
func NewTestServer(t *testing.T, opts Options) *TestServer {
	t.Helper()

	clock := &Clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	managerOpts := []auth.Option{auth.WithClock(clock.Now)}

	var verifier *auth.JWTService
	if opts.JWTSecret != "" {
		verifier = auth.NewJWTService(opts.JWTSecret, time.Hour)
		managerOpts = append(managerOpts, auth.WithTokenIssuer(verifier))
	}
	manager := auth.NewOtpManager(repo.NewOtpRepo(), managerOpts...)

	wa := NewRecordingChannel("whatsapp")
	sms := NewRecordingChannel("sms")
	tg := NewRecordingChannel("telegram")
	channels := channel.NewRegistry(wa, sms, tg)

	reg := prometheus.NewRegistry()
	svc := auth.NewAuthService(manager, channels, metrics.NewCollector(reg), nil)

	cfg := httphandler.RouterConfig{
		Auth:    handlers.NewAuthHandler(svc, "whatsapp", opts.Debug, nil),
		Metrics: metrics.Handler(reg),
	}
	if verifier != nil {
		cfg.Verifier = verifier
	}
	if opts.Debug {
		cfg.Debug = handlers.NewDebugHandler(manager, channels, nil)
	}

	srv := httptest.NewServer(httphandler.NewRouter(cfg))
	t.Cleanup(srv.Close)

	return &TestServer{
		Server:   srv,
		Manager:  manager,
		Clock:    clock,
		WhatsApp: wa,
		SMS:      sms,
		Telegram: tg,
		Registry: reg,
	}
}

// BaseURL returns the server root URL
func (s *TestServer) BaseURL() string { return s.Server.URL }

// PostJSON posts body as JSON and returns the status code and raw response body
func (s *TestServer) PostJSON(t *testing.T, path string, body any) (int, string) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := s.Server.Client().Post(s.BaseURL()+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, readBody(resp)
}

// Get performs a GET with an optional bearer token
func (s *TestServer) Get(t *testing.T, path, bearer string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.BaseURL()+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := s.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, readBody(resp)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}
