package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/chamatrack/chama-service/internal/auth"
	"github.com/chamatrack/chama-service/internal/config"
	apperrors "github.com/chamatrack/chama-service/pkg/util/errorutil"
)

// AuthService authenticates the single administrator.
type AuthService struct {
	username     string
	passwordHash string
	tokenMgr     *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig) *AuthService {
	return &AuthService{
		username:     cfg.AdminUsername,
		passwordHash: cfg.AdminPasswordHash,
		tokenMgr:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// Enabled reports whether an administrator password is configured.
func (s *AuthService) Enabled() bool {
	return s.passwordHash != ""
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(_ context.Context, username, password string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, apperrors.NewForbidden("admin login is not configured")
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passErr := auth.ComparePassword(s.passwordHash, password)
	if !userOK || passErr != nil {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(s.username, auth.RoleAdmin)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, exp, nil
}

// TokenManager exposes token manager for middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
