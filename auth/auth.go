// Package auth provides credential retrieval and validation for agent backends.
//
// Credentials are opaque to the rest of the system: adapters hand them to
// their vendor SDK without inspecting the contents. Every adapter validates
// credentials through a Provider during Initialize.
package auth

import (
	"context"
	"fmt"
	"time"
)

// Credentials holds an opaque credential set for one agent backend.
type Credentials struct {
	// Token is the primary credential value (API key, OAuth token, ...).
	Token string

	// Expiry is the time after which the credentials are stale.
	// Zero means the credentials do not expire.
	Expiry time.Time

	// Extra carries vendor-specific fields (org id, refresh token, ...).
	Extra map[string]string
}

// Expired reports whether the credentials are past their expiry.
func (c Credentials) Expired(now time.Time) bool {
	return !c.Expiry.IsZero() && now.After(c.Expiry)
}

// Provider retrieves and refreshes credentials for one agent backend.
type Provider interface {
	// GetCredentials returns the current credentials.
	GetCredentials(ctx context.Context) (Credentials, error)

	// RefreshCredentials obtains a fresh credential set and returns it.
	RefreshCredentials(ctx context.Context) (Credentials, error)

	// ValidateCredentials reports whether the given credentials are usable.
	ValidateCredentials(ctx context.Context, c Credentials) bool

	// ClearCredentials discards any stored credentials.
	ClearCredentials(ctx context.Context) error
}

// AuthError indicates invalid or expired credentials. It is surfaced to the
// caller and never retried automatically.
type AuthError struct {
	Cause     error
	AgentType string
	Reason    string
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error for %s: %s: %v", e.AgentType, e.Reason, e.Cause)
	}
	return fmt.Sprintf("auth error for %s: %s", e.AgentType, e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}
