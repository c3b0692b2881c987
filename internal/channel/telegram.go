package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const telegramAPIURL = "https://api.telegram.org"

// TelegramClient sends codes through the Telegram Bot API.
// Identities are chat ids or @usernames; a username only resolves if the user has
// written to the bot recently enough to appear in getUpdates.
type TelegramClient struct {
	BotToken   string
	BaseURL    string
	HTTPClient *http.Client

	logger *slog.Logger
}

// BotInfo is the subset of getMe returned for diagnostics
type BotInfo struct {
	ID                      int64  `json:"id"`
	Username                string `json:"username"`
	FirstName               string `json:"first_name"`
	CanReadAllGroupMessages bool   `json:"can_read_all_group_messages"`
	SupportsInlineQueries   bool   `json:"supports_inline_queries"`
}

// NewTelegramClient returns a Bot API client
func NewTelegramClient(botToken string, timeout time.Duration, logger *slog.Logger) *TelegramClient {
	return &TelegramClient{
		BotToken:   botToken,
		BaseURL:    telegramAPIURL,
		HTTPClient: newHTTPClient(timeout),
		logger:     loggerOrDefault(logger),
	}
}

// Name implements Deliverer
func (c *TelegramClient) Name() string { return "telegram" }

// Configured implements Deliverer
func (c *TelegramClient) Configured() bool { return c.BotToken != "" }

type tgResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type tgUpdate struct {
	Message struct {
		From struct {
			Username string `json:"username"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type tgSendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

func (c *TelegramClient) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(c.BaseURL, "/"), c.BotToken, method)
}

func telegramText(code string) string {
	return fmt.Sprintf("🔐 *Código de Verificación Tijzi*\n\nTu código es: `%s`\n\n⏰ Válido por 5 minutos\n🔒 No compartas este código con nadie", code)
}

// Deliver resolves @username identities to a chat id when possible and sends the code.
func (c *TelegramClient) Deliver(ctx context.Context, identity, code string) error {
	if !c.Configured() {
		return fmt.Errorf("telegram: bot token not configured")
	}

	chatID := identity
	if strings.HasPrefix(identity, "@") {
		resolved, err := c.ResolveUsername(ctx, identity)
		if err != nil {
			c.logger.Warn("telegram username not resolved, sending to handle directly", slog.String("error", err.Error()))
		} else {
			chatID = resolved
		}
	}

	raw, err := json.Marshal(tgSendMessage{
		ChatID:                chatID,
		Text:                  telegramText(code),
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendMessage"), bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("telegram", resp)
	}

	var out tgResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("telegram: decode response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("telegram: api error: %s", out.Description)
	}
	return nil
}

// ResolveUsername looks up the chat id of username in the bot's recent updates
func (c *TelegramClient) ResolveUsername(ctx context.Context, username string) (string, error) {
	var updates []tgUpdate
	if err := c.call(ctx, "getUpdates", &updates); err != nil {
		return "", err
	}

	want := strings.ToLower(strings.TrimPrefix(username, "@"))
	for _, u := range updates {
		if strings.ToLower(u.Message.From.Username) == want && u.Message.Chat.ID != 0 {
			return strconv.FormatInt(u.Message.Chat.ID, 10), nil
		}
	}
	return "", fmt.Errorf("telegram: no recent chat with %s", username)
}

// BotInfo calls getMe to confirm the token is valid
func (c *TelegramClient) BotInfo(ctx context.Context) (BotInfo, error) {
	var info BotInfo
	if !c.Configured() {
		return info, fmt.Errorf("telegram: bot token not configured")
	}
	if err := c.call(ctx, "getMe", &info); err != nil {
		return BotInfo{}, err
	}
	return info, nil
}

// call performs a GET Bot API method and decodes its result into dst
func (c *TelegramClient) call(ctx context.Context, method string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL(method), nil)
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("telegram", resp)
	}

	var out tgResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("telegram: decode %s: %w", method, err)
	}
	if !out.OK {
		return fmt.Errorf("telegram: %s: %s", method, out.Description)
	}
	if err := json.Unmarshal(out.Result, dst); err != nil {
		return fmt.Errorf("telegram: decode %s result: %w", method, err)
	}
	return nil
}
