package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Varun5711/tokenqueue/internal/apperr"
	"github.com/Varun5711/tokenqueue/internal/commands"
	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/models/token"
	"github.com/Varun5711/tokenqueue/internal/storage"
)

var errEmptyToken = errors.New("generator returned an empty token")

type TokenValidation struct {
	IsValid   bool   `json:"is_valid"`
	UserID    string `json:"user_id"`
	ExpiresAt string `json:"expires_at"`
	// TokenID stays server-side; revocation uses it.
	TokenID string `json:"-"`
}

type ValidateTokenHandler struct {
	tokens storage.TokenRepository
	now    func() time.Time
}

func NewValidateTokenHandler(tokens storage.TokenRepository) *ValidateTokenHandler {
	return &ValidateTokenHandler{tokens: tokens, now: time.Now}
}

// Handle returns nil for an unknown, expired or empty token. It never
// modifies storage.
func (h *ValidateTokenHandler) Handle(ctx context.Context, accessToken string) (*TokenValidation, error) {
	if accessToken == "" {
		return nil, nil
	}

	tok, err := h.tokens.FindByAccessToken(ctx, accessToken)
	if err != nil {
		return nil, apperr.NewInfrastructure("find token", err)
	}
	if tok == nil || tok.IsExpiredAt(h.now()) {
		return nil, nil
	}

	return &TokenValidation{
		IsValid:   true,
		UserID:    tok.UserID,
		ExpiresAt: token.FormatTimestamp(tok.ExpiresAt),
		TokenID:   tok.ID,
	}, nil
}

type RevokeTokenHandler struct {
	tokens storage.TokenRepository
	log    *logger.Logger
}

func NewRevokeTokenHandler(tokens storage.TokenRepository, log *logger.Logger) *RevokeTokenHandler {
	return &RevokeTokenHandler{tokens: tokens, log: log}
}

// Handle deletes the token. Revoking a token that does not exist succeeds.
func (h *RevokeTokenHandler) Handle(ctx context.Context, cmd commands.RevokeTokenCommand) error {
	id := strings.TrimSpace(cmd.TokenID)
	if id == "" {
		return apperr.NewValidation("token id is required")
	}

	deleted, err := h.tokens.Delete(ctx, id)
	if err != nil {
		return apperr.NewInfrastructure("delete token", err)
	}

	if deleted {
		h.log.Info("Revoked token %s of user %s", id, cmd.UserID)
	} else {
		h.log.Debug("Token %s already gone", id)
	}
	return nil
}
