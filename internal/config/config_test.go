package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DEBUG_MODE", "LOG_LEVEL", "API_TIMEOUT", "OTP_LENGTH", "OTP_EXPIRY_MINUTES",
		"OTP_SWEEP_INTERVAL", "DEFAULT_CHANNEL", "CORS_ALLOWED_ORIGIN", "SESSION_JWT_SECRET",
		"SESSION_TOKEN_TTL", "TEMPLATE_NAME", "TEMPLATE_LANGUAGE", "WHATSAPP_API_VERSION",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DebugMode {
		t.Error("DebugMode should default to false")
	}
	if cfg.OTPLength != 6 {
		t.Errorf("OTPLength = %d, want 6", cfg.OTPLength)
	}
	if cfg.OTPExpiry != 5*time.Minute {
		t.Errorf("OTPExpiry = %v, want 5m", cfg.OTPExpiry)
	}
	if cfg.APITimeout != 30*time.Second {
		t.Errorf("APITimeout = %v, want 30s", cfg.APITimeout)
	}
	if cfg.DefaultChannel != "whatsapp" {
		t.Errorf("DefaultChannel = %q, want whatsapp", cfg.DefaultChannel)
	}
	if cfg.WhatsApp.TemplateName != "otp_login" || cfg.WhatsApp.TemplateLanguage != "es" || cfg.WhatsApp.APIVersion != "v19.0" {
		t.Errorf("unexpected WhatsApp defaults: %+v", cfg.WhatsApp)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG_MODE", "TRUE")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("API_TIMEOUT", "10")
	t.Setenv("OTP_LENGTH", "8")
	t.Setenv("OTP_EXPIRY_MINUTES", "2")
	t.Setenv("OTP_SWEEP_INTERVAL", "1m")
	t.Setenv("DEFAULT_CHANNEL", "Telegram")
	t.Setenv("SESSION_TOKEN_TTL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || !cfg.DebugMode || cfg.LogLevel != "DEBUG" {
		t.Errorf("unexpected server settings: %+v", cfg)
	}
	if cfg.APITimeout != 10*time.Second {
		t.Errorf("APITimeout = %v, want 10s", cfg.APITimeout)
	}
	if cfg.OTPLength != 8 || cfg.OTPExpiry != 2*time.Minute || cfg.OTPSweepInterval != time.Minute {
		t.Errorf("unexpected OTP settings: length=%d expiry=%v sweep=%v", cfg.OTPLength, cfg.OTPExpiry, cfg.OTPSweepInterval)
	}
	if cfg.DefaultChannel != "telegram" {
		t.Errorf("DefaultChannel = %q, want telegram", cfg.DefaultChannel)
	}
	if cfg.SessionTokenTTL != time.Hour {
		t.Errorf("SessionTokenTTL = %v, want 1h", cfg.SessionTokenTTL)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"API_TIMEOUT":        "abc",
		"OTP_LENGTH":         "3",
		"OTP_EXPIRY_MINUTES": "0",
		"OTP_SWEEP_INTERVAL": "soon",
		"SESSION_TOKEN_TTL":  "-1h",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("error %q should name %s", err.Error(), key)
			}
		})
	}
}

func TestWhatsAppConfigured(t *testing.T) {
	cfg := &Config{WhatsApp: WhatsAppConfig{
		AccessToken:   strings.Repeat("x", 51),
		PhoneNumberID: "465399596649912",
		TemplateName:  "otp_login",
	}}
	if !cfg.WhatsAppConfigured() {
		t.Error("expected WhatsApp to be configured")
	}

	cfg.WhatsApp.PhoneNumberID = "abc123"
	if cfg.WhatsAppConfigured() {
		t.Error("non-numeric phone number id should not be configured")
	}

	cfg.WhatsApp.PhoneNumberID = "465399596649912"
	cfg.WhatsApp.AccessToken = "short"
	if cfg.WhatsAppConfigured() {
		t.Error("short access token should not be configured")
	}
}

func TestTwilioConfigured(t *testing.T) {
	cfg := &Config{Twilio: TwilioConfig{AccountSID: "AC1", AuthToken: "tok"}}
	if cfg.TwilioSMSConfigured() || cfg.TwilioVerifyConfigured() {
		t.Error("Twilio should not be configured without a sender or verify service")
	}
	cfg.Twilio.MessagingServiceSID = "MG1"
	if !cfg.TwilioSMSConfigured() {
		t.Error("messaging service sid should be enough for SMS")
	}
	cfg.Twilio.VerifyServiceSID = "VA1"
	if !cfg.TwilioVerifyConfigured() {
		t.Error("verify service sid should enable Verify")
	}
}
