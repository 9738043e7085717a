package handler

import (
	"context"

	"github.com/saferoute/saferoute/internal/api/middleware"
)

// GetUserID retrieves the authenticated user ID from the context.
func GetUserID(ctx context.Context) string {
	return middleware.GetUserID(ctx)
}
