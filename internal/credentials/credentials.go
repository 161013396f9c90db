// Package credentials keeps each user's delegated Google access token.
package credentials

import (
	"context"

	"cashbook/internal/core"
)

// Store persists one token per user. Get of a missing token returns an error
// wrapping core.ErrNotFound; Clear of a missing token succeeds.
type Store interface {
	SaveCredential(ctx context.Context, c core.Credential) error
	GetCredential(ctx context.Context, userID string) (core.Credential, error)
	ClearCredential(ctx context.Context, userID string) error
}
