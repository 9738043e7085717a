// Package auth issues and validates the bearer tokens that protect the
// guardian and SOS endpoints.
package auth

import "github.com/saferoute/saferoute/internal/api/models"

// TokenResponse represents the response after successful authentication.
type TokenResponse struct {
	// AccessToken is the JWT access token for API authentication.
	AccessToken string `json:"accessToken"`

	// TokenType is always "Bearer".
	TokenType string `json:"tokenType"`

	// ExpiresIn is the number of seconds until the access token expires.
	ExpiresIn int64 `json:"expiresIn"`

	// RefreshToken is the opaque token used to obtain new access tokens.
	RefreshToken string `json:"refreshToken,omitempty"`

	// UserID is the authenticated user.
	UserID string `json:"userId"`
}

// DevAuthenticateRequest is the request for development authentication.
type DevAuthenticateRequest struct {
	// UserID is an optional user ID. If not provided, a new one is minted.
	UserID string `json:"userId,omitempty"`
}

// Validate validates the dev authentication request.
func (r *DevAuthenticateRequest) Validate() []models.FieldError {
	var errs []models.FieldError

	if r.UserID != "" && !userIDPattern.MatchString(r.UserID) {
		errs = append(errs, models.FieldError{
			Field:   "userId",
			Message: "userId must look like usr_<id>",
			Code:    "INVALID_FORMAT",
		})
	}

	return errs
}

// RefreshTokenRequest represents the request to refresh an access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Validate validates the refresh token request.
func (r *RefreshTokenRequest) Validate() []models.FieldError {
	var errs []models.FieldError

	if r.RefreshToken == "" {
		errs = append(errs, models.FieldError{
			Field:   "refreshToken",
			Message: "refresh token is required",
			Code:    "REQUIRED",
		})
	}

	return errs
}
