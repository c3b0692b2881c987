package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tijzi/backend/internal/auth"
	"github.com/tijzi/backend/internal/channel"
	"github.com/tijzi/backend/internal/config"
	httphandler "github.com/tijzi/backend/internal/http"
	"github.com/tijzi/backend/internal/http/handlers"
	"github.com/tijzi/backend/internal/logger"
	"github.com/tijzi/backend/internal/metrics"
	"github.com/tijzi/backend/internal/repo"
)

func main() {
	// Environment variables win over .env
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.SetupDefault(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// OTP lifecycle
	managerOpts := []auth.Option{
		auth.WithCodeLength(cfg.OTPLength),
		auth.WithExpiry(cfg.OTPExpiry),
	}
	var jwtService *auth.JWTService
	if cfg.SessionJWTSecret != "" {
		jwtService = auth.NewJWTService(cfg.SessionJWTSecret, cfg.SessionTokenTTL)
		managerOpts = append(managerOpts, auth.WithTokenIssuer(jwtService))
	}
	otpManager := auth.NewOtpManager(repo.NewOtpRepo(), managerOpts...)
	otpManager.StartSweeper(ctx, cfg.OTPSweepInterval, func(removed int) {
		if removed > 0 {
			log.Debug("expired codes swept", slog.Int("removed", removed))
		}
	})

	// Delivery channels
	telegram := channel.NewTelegramClient(cfg.Telegram.BotToken, cfg.APITimeout, log)
	channels := channel.NewRegistry(buildChannels(cfg, telegram, log)...)
	log.Info("channel credentials",
		slog.Bool("whatsapp", cfg.WhatsAppConfigured()),
		slog.Bool("sms", cfg.TwilioSMSConfigured()),
		slog.Bool("sms_verify", cfg.TwilioVerifyConfigured()),
		slog.Bool("telegram", cfg.TelegramConfigured()),
	)
	for name, ok := range channels.Status() {
		if !ok {
			log.Warn("channel not configured", slog.String("channel", name))
		}
	}
	if _, ok := channels.Get(cfg.DefaultChannel); !ok {
		log.Error("default channel is not registered", slog.String("channel", cfg.DefaultChannel))
		os.Exit(1)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	authService := auth.NewAuthService(otpManager, channels, collector, log)

	routerCfg := httphandler.RouterConfig{
		Auth:          handlers.NewAuthHandler(authService, cfg.DefaultChannel, cfg.DebugMode, log),
		Logger:        log,
		AllowedOrigin: cfg.CORSAllowedOrigin,
		Metrics:       metrics.Handler(reg),
	}
	if jwtService != nil {
		routerCfg.Verifier = jwtService
	}
	if cfg.DebugMode {
		var bot handlers.BotInfoProvider
		if telegram.Configured() {
			bot = telegram
		}
		routerCfg.Debug = handlers.NewDebugHandler(otpManager, channels, bot)
		log.Warn("debug mode enabled: codes are returned by send-code and /debug/otps")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httphandler.NewRouter(routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Vendor calls run inside the request
		WriteTimeout: cfg.APITimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("default_channel", cfg.DefaultChannel),
			slog.Bool("signed_sessions", jwtService != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server exited")
}

// buildChannels registers every vendor channel. In debug mode an unconfigured
// channel is replaced by a log channel of the same name so the flow can be exercised locally.
func buildChannels(cfg *config.Config, telegram *channel.TelegramClient, log *slog.Logger) []channel.Deliverer {
	twilioOpts := channel.TwilioOptions{
		AccountSID:          cfg.Twilio.AccountSID,
		AuthToken:           cfg.Twilio.AuthToken,
		SMSFrom:             cfg.Twilio.SMSFrom,
		MessagingServiceSID: cfg.Twilio.MessagingServiceSID,
		VerifyServiceSID:    cfg.Twilio.VerifyServiceSID,
		Timeout:             cfg.APITimeout,
	}

	all := []channel.Deliverer{
		channel.NewWhatsAppClient(channel.WhatsAppOptions{
			AccessToken:      cfg.WhatsApp.AccessToken,
			PhoneNumberID:    cfg.WhatsApp.PhoneNumberID,
			TemplateName:     cfg.WhatsApp.TemplateName,
			TemplateLanguage: cfg.WhatsApp.TemplateLanguage,
			APIVersion:       cfg.WhatsApp.APIVersion,
			Configured:       cfg.WhatsAppConfigured(),
			Timeout:          cfg.APITimeout,
		}, log),
		channel.NewTwilioSMSClient(twilioOpts, log),
		channel.NewTwilioVerifyClient(twilioOpts, log),
		telegram,
	}

	if !cfg.DebugMode {
		return all
	}
	for i, d := range all {
		if !d.Configured() {
			all[i] = channel.NewLogChannel(d.Name(), log)
		}
	}
	return all
}
