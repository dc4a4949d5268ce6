package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Varun5711/tokenqueue/internal/commands"
	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/middleware"
	"github.com/go-playground/validator/v10"
)

type AuthHandler struct {
	login    LoginService
	tokens   TokenValidator
	commands CommandPublisher
	validate *validator.Validate
	timeout  time.Duration
	log      *logger.Logger
}

func NewAuthHandler(login LoginService, tokens TokenValidator, authCommands CommandPublisher, timeout time.Duration, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		login:    login,
		tokens:   tokens,
		commands: authCommands,
		validate: validator.New(),
		timeout:  timeout,
		log:      log,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
	OTP      string `json:"otp,omitempty" validate:"omitempty,max=16"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type ValidateTokenRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	accessToken, err := h.login.Handle(ctx, commands.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
		OTP:      req.OTP,
	})
	if err != nil {
		respondAppError(w, h.log, "login", err, http.StatusUnauthorized)
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{AccessToken: accessToken, TokenType: "Bearer"})
}

// ValidateToken always answers 200; an unusable token yields
// {"is_valid": false}.
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req ValidateTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "access_token is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.tokens.Handle(ctx, req.AccessToken)
	if err != nil {
		respondAppError(w, h.log, "validate token", err, http.StatusBadRequest)
		return
	}
	if result == nil {
		respondJSON(w, http.StatusOK, map[string]bool{"is_valid": false})
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// RevokeToken queues deletion of the bearer token that authenticated the
// request and answers 202. Callers can only revoke their own token.
func (h *AuthHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	tokenID := middleware.GetTokenID(r.Context())
	userID := middleware.GetUserID(r.Context())
	if tokenID == "" || userID == "" {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	err := h.commands.Publish(ctx, commands.TypeRevokeToken, commands.RevokeTokenCommand{
		TokenID: tokenID,
		UserID:  userID,
	})
	if err != nil {
		respondAppError(w, h.log, "publish revoke token", err, http.StatusBadRequest)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "processing"})
}
