package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/tijzi/backend/internal/channel"
	"github.com/tijzi/backend/internal/model"
)

// OtpInspector exposes stored entries for the debug endpoint
type OtpInspector interface {
	Snapshot() map[string]model.OtpEntry
	Expiry() time.Duration
}

// BotInfoProvider reports the Telegram bot behind the telegram channel
type BotInfoProvider interface {
	BotInfo(ctx context.Context) (channel.BotInfo, error)
}

// DebugHandler serves development-only introspection endpoints.
// It must only be mounted when debug mode is on: it exposes live codes.
type DebugHandler struct {
	otps     OtpInspector
	channels *channel.Registry
	bot      BotInfoProvider
	now      func() time.Time
}

// NewDebugHandler creates a debug handler; bot may be nil
func NewDebugHandler(otps OtpInspector, channels *channel.Registry, bot BotInfoProvider) *DebugHandler {
	return &DebugHandler{otps: otps, channels: channels, bot: bot, now: time.Now}
}

type debugOtpEntry struct {
	Identity  string    `json:"identity"`
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
}

// HandleOtps handles GET /debug/otps
func (h *DebugHandler) HandleOtps(w http.ResponseWriter, r *http.Request) {
	snapshot := h.otps.Snapshot()
	expiry := h.otps.Expiry()
	now := h.now()

	entries := make([]debugOtpEntry, 0, len(snapshot))
	for identity, e := range snapshot {
		entries = append(entries, debugOtpEntry{
			Identity:  identity,
			Code:      e.Code,
			IssuedAt:  e.IssuedAt,
			ExpiresAt: e.IssuedAt.Add(expiry),
			Expired:   e.ExpiredAt(now, expiry),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Identity < entries[j].Identity })

	respondWithJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

// HandleChannels handles GET /debug/channels
func (h *DebugHandler) HandleChannels(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"channels": h.channels.Status(),
	}
	if h.bot != nil {
		info, err := h.bot.BotInfo(r.Context())
		if err != nil {
			body["telegram_bot_error"] = err.Error()
		} else {
			body["telegram_bot"] = info
		}
	}
	respondWithJSON(w, http.StatusOK, body)
}
