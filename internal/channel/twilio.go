package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	twilioAPIURL    = "https://api.twilio.com/2010-04-01"
	twilioVerifyURL = "https://verify.twilio.com/v2"
)

// TwilioOptions holds credentials shared by the Twilio SMS and Verify clients
type TwilioOptions struct {
	AccountSID          string
	AuthToken           string
	SMSFrom             string
	MessagingServiceSID string
	VerifyServiceSID    string
	Timeout             time.Duration
}

// TwilioSMSClient sends the code as a plain SMS through the Twilio Messages API
type TwilioSMSClient struct {
	AccountSID          string
	AuthToken           string
	From                string
	MessagingServiceSID string
	BaseURL             string
	HTTPClient          *http.Client

	logger *slog.Logger
}

// NewTwilioSMSClient returns a Messages API client
func NewTwilioSMSClient(opts TwilioOptions, logger *slog.Logger) *TwilioSMSClient {
	return &TwilioSMSClient{
		AccountSID:          opts.AccountSID,
		AuthToken:           opts.AuthToken,
		From:                opts.SMSFrom,
		MessagingServiceSID: opts.MessagingServiceSID,
		BaseURL:             twilioAPIURL,
		HTTPClient:          newHTTPClient(opts.Timeout),
		logger:              loggerOrDefault(logger),
	}
}

// Name implements Deliverer
func (c *TwilioSMSClient) Name() string { return "sms" }

// Configured implements Deliverer
func (c *TwilioSMSClient) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && (c.From != "" || c.MessagingServiceSID != "")
}

// smsBody is the text sent to the user; the code is the only variable part
func smsBody(code string) string {
	return fmt.Sprintf("Your Tijzi verification code is %s. It expires in 5 minutes.", code)
}

// Deliver posts a message to Accounts/{sid}/Messages.json. A messaging service
// takes precedence over a fixed From number.
func (c *TwilioSMSClient) Deliver(ctx context.Context, identity, code string) error {
	if !c.Configured() {
		return fmt.Errorf("twilio sms: credentials not configured")
	}

	form := url.Values{}
	form.Set("To", identity)
	form.Set("Body", smsBody(code))
	if c.MessagingServiceSID != "" {
		form.Set("MessagingServiceSid", c.MessagingServiceSID)
	} else {
		form.Set("From", c.From)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", strings.TrimRight(c.BaseURL, "/"), c.AccountSID)
	resp, err := postForm(ctx, c.HTTPClient, endpoint, c.AccountSID, c.AuthToken, form)
	if err != nil {
		return fmt.Errorf("twilio sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError("twilio sms", resp)
	}

	c.logger.Debug("twilio sms sent")
	return nil
}

// TwilioVerifyClient delivers the code through Twilio Verify using CustomCode, so the code
// issued here stays the one that is checked here. The service must allow custom codes.
type TwilioVerifyClient struct {
	AccountSID       string
	AuthToken        string
	VerifyServiceSID string
	BaseURL          string
	HTTPClient       *http.Client

	logger *slog.Logger
}

// NewTwilioVerifyClient returns a Verify API client
func NewTwilioVerifyClient(opts TwilioOptions, logger *slog.Logger) *TwilioVerifyClient {
	return &TwilioVerifyClient{
		AccountSID:       opts.AccountSID,
		AuthToken:        opts.AuthToken,
		VerifyServiceSID: opts.VerifyServiceSID,
		BaseURL:          twilioVerifyURL,
		HTTPClient:       newHTTPClient(opts.Timeout),
		logger:           loggerOrDefault(logger),
	}
}

// Name implements Deliverer
func (c *TwilioVerifyClient) Name() string { return "sms_verify" }

// Configured implements Deliverer
func (c *TwilioVerifyClient) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.VerifyServiceSID != ""
}

// Deliver starts a verification on the sms channel. Twilio answers 201 Created on success.
func (c *TwilioVerifyClient) Deliver(ctx context.Context, identity, code string) error {
	if !c.Configured() {
		return fmt.Errorf("twilio verify: credentials not configured")
	}

	form := url.Values{}
	form.Set("To", identity)
	form.Set("Channel", "sms")
	form.Set("CustomCode", code)

	endpoint := fmt.Sprintf("%s/Services/%s/Verifications", strings.TrimRight(c.BaseURL, "/"), c.VerifyServiceSID)
	resp, err := postForm(ctx, c.HTTPClient, endpoint, c.AccountSID, c.AuthToken, form)
	if err != nil {
		return fmt.Errorf("twilio verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return statusError("twilio verify", resp)
	}

	c.logger.Debug("twilio verification started", slog.String("service_sid", c.VerifyServiceSID))
	return nil
}

func postForm(ctx context.Context, client *http.Client, endpoint, user, pass string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(user, pass)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	return resp, nil
}
