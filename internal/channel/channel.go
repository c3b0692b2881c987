// Package channel delivers one-time codes to users through third-party messaging APIs.
package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	// maxErrorBody caps how much of a vendor error response is kept in error messages
	maxErrorBody = 2048
)

// Deliverer sends a code to an identity over one vendor channel.
// Implementations report failure through the returned error and never retry.
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, identity, code string) error
	Configured() bool
}

// Registry maps channel names to deliverers
type Registry struct {
	channels map[string]Deliverer
}

// NewRegistry builds a registry from the given deliverers, keyed by Name()
func NewRegistry(deliverers ...Deliverer) *Registry {
	r := &Registry{channels: make(map[string]Deliverer, len(deliverers))}
	for _, d := range deliverers {
		r.channels[d.Name()] = d
	}
	return r
}

// Get returns the deliverer registered under name
func (r *Registry) Get(name string) (Deliverer, bool) {
	d, ok := r.channels[strings.ToLower(name)]
	return d, ok
}

// Names returns the registered channel names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status reports, per channel name, whether the channel has usable credentials
func (r *Registry) Status() map[string]bool {
	out := make(map[string]bool, len(r.channels))
	for name, d := range r.channels {
		out[name] = d.Configured()
	}
	return out
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// readErrorBody returns a truncated copy of the response body for error messages
func readErrorBody(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return strings.TrimSpace(string(b))
}

func statusError(vendor string, resp *http.Response) error {
	return fmt.Errorf("%s: request failed status=%d body=%s", vendor, resp.StatusCode, readErrorBody(resp))
}
