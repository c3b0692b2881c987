package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Port              string
	DebugMode         bool
	LogLevel          string
	APITimeout        time.Duration
	DefaultChannel    string
	CORSAllowedOrigin string

	OTPLength        int
	OTPExpiry        time.Duration
	OTPSweepInterval time.Duration

	// Session tokens are signed when SessionJWTSecret is set; otherwise the plain prefix format is used.
	SessionJWTSecret string
	SessionTokenTTL  time.Duration

	WhatsApp WhatsAppConfig
	Twilio   TwilioConfig
	Telegram TelegramConfig
}

// WhatsAppConfig holds WhatsApp Cloud API credentials
type WhatsAppConfig struct {
	AccessToken      string
	PhoneNumberID    string
	TemplateName     string
	TemplateLanguage string
	APIVersion       string
}

// TwilioConfig holds Twilio Messages and Verify credentials
type TwilioConfig struct {
	AccountSID          string
	AuthToken           string
	VerifyServiceSID    string
	SMSFrom             string
	MessagingServiceSID string
}

// TelegramConfig holds the Telegram bot token
type TelegramConfig struct {
	BotToken string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              "8080",
		LogLevel:          "INFO",
		APITimeout:        30 * time.Second,
		DefaultChannel:    "whatsapp",
		CORSAllowedOrigin: "*",
		OTPLength:         6,
		OTPExpiry:         5 * time.Minute,
		SessionTokenTTL:   24 * time.Hour,
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	cfg.DebugMode = strings.EqualFold(os.Getenv("DEBUG_MODE"), "true")

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToUpper(level)
	}

	if v := os.Getenv("API_TIMEOUT"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("API_TIMEOUT must be a positive number of seconds, got %q", v)
		}
		cfg.APITimeout = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("OTP_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 4 || n > 9 {
			return nil, fmt.Errorf("OTP_LENGTH must be between 4 and 9, got %q", v)
		}
		cfg.OTPLength = n
	}

	if v := os.Getenv("OTP_EXPIRY_MINUTES"); v != "" {
		mins, err := strconv.Atoi(v)
		if err != nil || mins <= 0 {
			return nil, fmt.Errorf("OTP_EXPIRY_MINUTES must be a positive integer, got %q", v)
		}
		cfg.OTPExpiry = time.Duration(mins) * time.Minute
	}

	// OTP_SWEEP_INTERVAL is optional; 0 or unset leaves expired entries in place until overwritten
	if v := os.Getenv("OTP_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("OTP_SWEEP_INTERVAL must be a non-negative duration, got %q", v)
		}
		cfg.OTPSweepInterval = d
	}

	if ch := os.Getenv("DEFAULT_CHANNEL"); ch != "" {
		cfg.DefaultChannel = strings.ToLower(ch)
	}

	if origin := os.Getenv("CORS_ALLOWED_ORIGIN"); origin != "" {
		cfg.CORSAllowedOrigin = origin
	}

	cfg.SessionJWTSecret = os.Getenv("SESSION_JWT_SECRET")
	if v := os.Getenv("SESSION_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("SESSION_TOKEN_TTL must be a positive duration, got %q", v)
		}
		cfg.SessionTokenTTL = d
	}

	cfg.WhatsApp = WhatsAppConfig{
		AccessToken:      os.Getenv("ACCESS_TOKEN"),
		PhoneNumberID:    os.Getenv("PHONE_NUMBER_ID"),
		TemplateName:     getEnv("TEMPLATE_NAME", "otp_login"),
		TemplateLanguage: getEnv("TEMPLATE_LANGUAGE", "es"),
		APIVersion:       getEnv("WHATSAPP_API_VERSION", "v19.0"),
	}

	cfg.Twilio = TwilioConfig{
		AccountSID:          os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:           os.Getenv("TWILIO_AUTH_TOKEN"),
		VerifyServiceSID:    os.Getenv("TWILIO_VERIFY_SERVICE_SID"),
		SMSFrom:             os.Getenv("TWILIO_SMS_FROM"),
		MessagingServiceSID: os.Getenv("TWILIO_MESSAGING_SERVICE_SID"),
	}

	cfg.Telegram = TelegramConfig{
		BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	return cfg, nil
}

// WhatsAppConfigured reports whether the WhatsApp credentials look usable:
// a long-lived access token, a numeric phone number id and a template name.
func (c *Config) WhatsAppConfigured() bool {
	w := c.WhatsApp
	return len(w.AccessToken) > 50 && isDigits(w.PhoneNumberID) && w.TemplateName != ""
}

// TwilioSMSConfigured reports whether the Twilio Messages API can be used
func (c *Config) TwilioSMSConfigured() bool {
	t := c.Twilio
	return t.AccountSID != "" && t.AuthToken != "" && (t.SMSFrom != "" || t.MessagingServiceSID != "")
}

// TwilioVerifyConfigured reports whether the Twilio Verify API can be used
func (c *Config) TwilioVerifyConfigured() bool {
	t := c.Twilio
	return t.AccountSID != "" && t.AuthToken != "" && t.VerifyServiceSID != ""
}

// TelegramConfigured reports whether a bot token is present
func (c *Config) TelegramConfigured() bool {
	return c.Telegram.BotToken != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
