package channel

import (
	"context"
	"log/slog"
)

// LogChannel stands in for a vendor channel during local development.
// It never sends anything and never logs the code.
type LogChannel struct {
	name   string
	logger *slog.Logger
}

// NewLogChannel returns a deliverer registered under name
func NewLogChannel(name string, logger *slog.Logger) *LogChannel {
	return &LogChannel{name: name, logger: loggerOrDefault(logger)}
}

// Name implements Deliverer
func (c *LogChannel) Name() string { return c.name }

// Configured implements Deliverer; a log channel is always usable
func (c *LogChannel) Configured() bool { return true }

// Deliver records that a code would have been sent
func (c *LogChannel) Deliver(ctx context.Context, identity, code string) error {
	c.logger.InfoContext(ctx, "code delivery skipped (log channel)",
		slog.String("channel", c.name),
		slog.Int("code_length", len(code)),
	)
	return nil
}
