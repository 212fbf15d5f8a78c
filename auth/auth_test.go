package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()
	p := NewStaticProvider(Credentials{Token: "tok-1"})

	creds, err := p.GetCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", creds.Token)
	assert.True(t, p.ValidateCredentials(ctx, creds))

	require.NoError(t, p.ClearCredentials(ctx))
	_, err = p.GetCredentials(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestStaticProviderRejectsExpired(t *testing.T) {
	ctx := context.Background()
	p := NewStaticProvider(Credentials{Token: "tok-1"})

	expired := Credentials{Token: "tok-1", Expiry: time.Now().Add(-time.Hour)}
	assert.False(t, p.ValidateCredentials(ctx, expired))

	empty := Credentials{}
	assert.False(t, p.ValidateCredentials(ctx, empty))
}

func TestEnvProvider(t *testing.T) {
	ctx := context.Background()
	p := &EnvProvider{Var: "DEVTEAM_TEST_TOKEN"}

	t.Setenv("DEVTEAM_TEST_TOKEN", "env-tok")
	creds, err := p.GetCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "env-tok", creds.Token)

	// Rotation is picked up on the next Get.
	t.Setenv("DEVTEAM_TEST_TOKEN", "env-tok-2")
	creds, err = p.RefreshCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "env-tok-2", creds.Token)

	t.Setenv("DEVTEAM_TEST_TOKEN", "")
	_, err = p.GetCredentials(ctx)
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestAuthErrorUnwrap(t *testing.T) {
	err := &AuthError{AgentType: "claude", Reason: "invalid credentials", Cause: ErrNoCredentials}
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Contains(t, err.Error(), "claude")
}
