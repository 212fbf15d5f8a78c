package auth

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"
)

// ErrNoCredentials is returned when a provider has nothing to hand out.
var ErrNoCredentials = errors.New("no credentials available")

// StaticProvider serves a fixed credential set. Refresh returns the same
// credentials; Clear makes subsequent Get calls fail.
type StaticProvider struct {
	mu      sync.Mutex
	creds   Credentials
	cleared bool
}

// NewStaticProvider creates a provider around a fixed credential set.
func NewStaticProvider(creds Credentials) *StaticProvider {
	return &StaticProvider{creds: creds}
}

func (p *StaticProvider) GetCredentials(ctx context.Context) (Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cleared {
		return Credentials{}, ErrNoCredentials
	}
	return p.creds, nil
}

func (p *StaticProvider) RefreshCredentials(ctx context.Context) (Credentials, error) {
	return p.GetCredentials(ctx)
}

func (p *StaticProvider) ValidateCredentials(ctx context.Context, c Credentials) bool {
	return c.Token != "" && !c.Expired(time.Now())
}

func (p *StaticProvider) ClearCredentials(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared = true
	p.creds = Credentials{}
	return nil
}

// EnvProvider reads the credential token from an environment variable on
// every Get, so rotated values are picked up without a process restart.
type EnvProvider struct {
	// Var is the environment variable holding the token.
	Var string
}

func (p *EnvProvider) GetCredentials(ctx context.Context) (Credentials, error) {
	token := os.Getenv(p.Var)
	if token == "" {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials{Token: token}, nil
}

func (p *EnvProvider) RefreshCredentials(ctx context.Context) (Credentials, error) {
	return p.GetCredentials(ctx)
}

func (p *EnvProvider) ValidateCredentials(ctx context.Context, c Credentials) bool {
	return c.Token != "" && !c.Expired(time.Now())
}

// ClearCredentials unsets the environment variable.
func (p *EnvProvider) ClearCredentials(ctx context.Context) error {
	return os.Unsetenv(p.Var)
}
