package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tijzi/backend/internal/auth"
	"github.com/tijzi/backend/internal/middleware"
	"github.com/tijzi/backend/internal/phone"
)

// AuthHandler handles the code login endpoints
type AuthHandler struct {
	authService    *auth.AuthService
	defaultChannel string
	debugMode      bool
	logger         *slog.Logger
}

// NewAuthHandler creates a new auth handler.
// In debug mode send-code also returns the issued code as devCode.
func NewAuthHandler(authService *auth.AuthService, defaultChannel string, debugMode bool, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService:    authService,
		defaultChannel: defaultChannel,
		debugMode:      debugMode,
		logger:         logger,
	}
}

// sendCodeRequest is the request body for POST /auth/send-code
type sendCodeRequest struct {
	CountryCode  string `json:"countryCode"`
	PhoneNumber  string `json:"phoneNumber"`
	Channel      string `json:"channel"`
	TelegramUser string `json:"telegramUser"`
}

// sendCodeResponse is the JSON response for send-code
type sendCodeResponse struct {
	Message string `json:"message"`
	DevCode string `json:"devCode,omitempty"`
}

// verifyCodeRequest is the request body for POST /auth/verify-code
type verifyCodeRequest struct {
	sendCodeRequest
	OTP string `json:"otp"`
}

// verifyCodeResponse is the JSON response for verify-code
type verifyCodeResponse struct {
	SessionToken string `json:"session_token"`
	UserID       string `json:"user_id"`
}

type meResponse struct {
	UserID string `json:"user_id"`
}

// badRequest carries a client-facing validation message
type badRequest string

func (e badRequest) Error() string { return string(e) }

// resolve picks the channel and derives the identity the code is bound to
func (h *AuthHandler) resolve(req sendCodeRequest) (channelName, identity string, err error) {
	channelName = strings.ToLower(strings.TrimSpace(req.Channel))
	if channelName == "" {
		channelName = h.defaultChannel
	}

	if channelName == "telegram" {
		if strings.TrimSpace(req.TelegramUser) == "" {
			return "", "", badRequest("telegramUser is required for the telegram channel")
		}
		identity, err = phone.NormalizeHandle(req.TelegramUser)
		if err != nil {
			return "", "", badRequest("invalid telegramUser")
		}
		return channelName, identity, nil
	}

	if strings.TrimSpace(req.CountryCode) == "" || strings.TrimSpace(req.PhoneNumber) == "" {
		return "", "", badRequest("countryCode and phoneNumber are required")
	}
	identity, err = phone.Normalize(req.CountryCode, req.PhoneNumber)
	if err != nil {
		return "", "", badRequest("invalid phone number")
	}
	return channelName, identity, nil
}

// HandleSendCode handles POST /auth/send-code
func (h *AuthHandler) HandleSendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	channelName, identity, err := h.resolve(req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	code, err := h.authService.SendCode(r.Context(), identity, channelName)
	switch {
	case errors.Is(err, auth.ErrUnknownChannel):
		respondWithError(w, http.StatusBadRequest, "unknown channel: "+channelName)
		return
	case errors.Is(err, auth.ErrDeliveryFailed):
		respondWithError(w, http.StatusInternalServerError, "Failed to send verification code")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "send code failed", slog.String("identity", phone.Mask(identity)), slog.String("error", err.Error()))
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := sendCodeResponse{Message: "Code sent successfully"}
	if h.debugMode {
		response.DevCode = code
	}
	respondWithJSON(w, http.StatusOK, response)
}

// HandleVerifyCode handles POST /auth/verify-code
func (h *AuthHandler) HandleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The submitted code is compared as sent; only presence is checked here.
	if req.OTP == "" {
		respondWithError(w, http.StatusBadRequest, "otp is required")
		return
	}

	_, identity, err := h.resolve(req.sendCodeRequest)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.authService.VerifyCode(r.Context(), identity, req.OTP)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCode) {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired code")
			return
		}
		h.logger.ErrorContext(r.Context(), "verify code failed", slog.String("identity", phone.Mask(identity)), slog.String("error", err.Error()))
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, verifyCodeResponse{
		SessionToken: session.Token,
		UserID:       session.UserID,
	})
}

// HandleMe handles GET /me (protected). Returns the identity bound to the session token.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondWithJSON(w, http.StatusOK, meResponse{UserID: identity})
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
