package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const whatsAppGraphURL = "https://graph.facebook.com"

// WhatsAppClient sends codes as WhatsApp Cloud API template messages.
// The template is expected to take the code as its single body parameter and
// to carry a copy-code button at index 0.
type WhatsAppClient struct {
	AccessToken      string
	PhoneNumberID    string
	TemplateName     string
	TemplateLanguage string
	APIVersion       string
	BaseURL          string
	HTTPClient       *http.Client

	configured bool
	logger     *slog.Logger
}

// WhatsAppOptions holds the credentials for NewWhatsAppClient
type WhatsAppOptions struct {
	AccessToken      string
	PhoneNumberID    string
	TemplateName     string
	TemplateLanguage string
	APIVersion       string
	Configured       bool
	Timeout          time.Duration
}

// NewWhatsAppClient returns a client for the Graph API messages endpoint
func NewWhatsAppClient(opts WhatsAppOptions, logger *slog.Logger) *WhatsAppClient {
	if opts.TemplateLanguage == "" {
		opts.TemplateLanguage = "es"
	}
	if opts.APIVersion == "" {
		opts.APIVersion = "v19.0"
	}
	return &WhatsAppClient{
		AccessToken:      opts.AccessToken,
		PhoneNumberID:    opts.PhoneNumberID,
		TemplateName:     opts.TemplateName,
		TemplateLanguage: opts.TemplateLanguage,
		APIVersion:       opts.APIVersion,
		BaseURL:          whatsAppGraphURL,
		HTTPClient:       newHTTPClient(opts.Timeout),
		configured:       opts.Configured,
		logger:           loggerOrDefault(logger),
	}
}

// Name implements Deliverer
func (c *WhatsAppClient) Name() string { return "whatsapp" }

// Configured implements Deliverer
func (c *WhatsAppClient) Configured() bool { return c.configured }

type waParameter struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	CopyCode string `json:"copy_code,omitempty"`
}

type waComponent struct {
	Type       string        `json:"type"`
	SubType    string        `json:"sub_type,omitempty"`
	Index      string        `json:"index,omitempty"`
	Parameters []waParameter `json:"parameters"`
}

type waTemplate struct {
	Name     string `json:"name"`
	Language struct {
		Code string `json:"code"`
	} `json:"language"`
	Components []waComponent `json:"components"`
}

type waMessage struct {
	MessagingProduct string     `json:"messaging_product"`
	To               string     `json:"to"`
	Type             string     `json:"type"`
	Template         waTemplate `json:"template"`
}

func (c *WhatsAppClient) messagesURL() string {
	return fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(c.BaseURL, "/"), c.APIVersion, c.PhoneNumberID)
}

// Deliver sends the OTP template to identity. The Graph API expects the number without '+'.
func (c *WhatsAppClient) Deliver(ctx context.Context, identity, code string) error {
	if c.AccessToken == "" || c.PhoneNumberID == "" {
		return fmt.Errorf("whatsapp: credentials not configured")
	}

	msg := waMessage{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(identity, "+"),
		Type:             "template",
	}
	msg.Template.Name = c.TemplateName
	msg.Template.Language.Code = c.TemplateLanguage
	msg.Template.Components = []waComponent{
		{
			Type:       "body",
			Parameters: []waParameter{{Type: "text", Text: code}},
		},
		{
			Type:       "button",
			SubType:    "copy_code",
			Index:      "0",
			Parameters: []waParameter{{Type: "copy_code", CopyCode: code}},
		},
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(), bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("whatsapp", resp)
	}

	c.logger.Debug("whatsapp template sent", slog.String("template", c.TemplateName))
	return nil
}
