package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// ErrDevAuthDisabled is returned by DevAuthenticate when development
// authentication is turned off.
var ErrDevAuthDisabled = errors.New("development authentication is disabled")

var userIDPattern = regexp.MustCompile(`^usr_[A-Za-z0-9-]{1,40}$`)

// Service provides authentication operations.
type Service struct {
	jwtService     *JWTService
	refreshRepo    RefreshTokenRepository
	devAuthEnabled bool
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWTService  *JWTService
	RefreshRepo RefreshTokenRepository

	// DevAuthEnabled allows minting tokens without an identity provider.
	// Never enable in production.
	DevAuthEnabled bool
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	refreshRepo := cfg.RefreshRepo
	if refreshRepo == nil {
		refreshRepo = NewInMemoryRefreshTokenRepository()
	}

	return &Service{
		jwtService:     cfg.JWTService,
		refreshRepo:    refreshRepo,
		devAuthEnabled: cfg.DevAuthEnabled,
	}
}

// DevAuthEnabled reports whether development authentication is on.
func (s *Service) DevAuthEnabled() bool {
	return s.devAuthEnabled
}

// DevAuthenticate issues tokens for the requested user, or for a freshly
// minted user ID when none is given.
func (s *Service) DevAuthenticate(ctx context.Context, req *DevAuthenticateRequest) (*TokenResponse, error) {
	if !s.devAuthEnabled {
		return nil, ErrDevAuthDisabled
	}
	if errs := req.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validation error: %s", errs[0].Message)
	}

	userID := req.UserID
	if userID == "" {
		userID = generateUserID()
	}

	return s.generateTokens(ctx, userID)
}

// RefreshAccessToken rotates a refresh token and issues a new token pair.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshTokenStr string) (*TokenResponse, error) {
	refreshToken, err := s.refreshRepo.FindByToken(ctx, refreshTokenStr)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	if refreshToken.RevokedAt != nil {
		return nil, ErrInvalidRefreshToken
	}

	if time.Now().After(refreshToken.ExpiresAt) {
		return nil, ErrRefreshTokenExpired
	}

	if err := s.refreshRepo.Revoke(ctx, refreshTokenStr); err != nil {
		return nil, fmt.Errorf("revoking old refresh token: %w", err)
	}

	return s.generateTokens(ctx, refreshToken.UserID)
}

// ValidateAccessToken validates an access token and returns the user ID.
func (s *Service) ValidateAccessToken(tokenString string) (string, error) {
	claims, err := s.jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// RevokeRefreshToken revokes a specific refresh token.
func (s *Service) RevokeRefreshToken(ctx context.Context, refreshTokenStr string) error {
	return s.refreshRepo.Revoke(ctx, refreshTokenStr)
}

// RevokeAllTokens revokes all refresh tokens for a user (logout everywhere).
func (s *Service) RevokeAllTokens(ctx context.Context, userID string) error {
	return s.refreshRepo.RevokeAllForUser(ctx, userID)
}

func (s *Service) generateTokens(ctx context.Context, userID string) (*TokenResponse, error) {
	accessToken, expiresAt, err := s.jwtService.GenerateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}

	refreshTokenStr, err := GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	now := time.Now()
	refreshToken := &RefreshToken{
		ID:        uuid.New().String(),
		Token:     refreshTokenStr,
		UserID:    userID,
		ExpiresAt: now.Add(RefreshTokenExpiry),
		CreatedAt: now,
	}

	if err := s.refreshRepo.Create(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(expiresAt).Seconds()),
		RefreshToken: refreshTokenStr,
		UserID:       userID,
	}, nil
}

func generateUserID() string {
	return "usr_" + uuid.New().String()[:22]
}
