// Package identity turns a completed third-party sign-in into the
// domain.Identity used to seed a local user.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/pilab-dev/reelsync/domain"
	"golang.org/x/oauth2"
)

// Provider resolves an access token to an identity.
type Provider interface {
	Name() string
	Identity(ctx context.Context, token *oauth2.Token) (*domain.Identity, error)
}

// OAuthConfig is the client registration of an OAuth2 provider.
type OAuthConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

type baseProvider struct {
	cfg      OAuthConfig
	endpoint oauth2.Endpoint
}

func (b *baseProvider) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     b.cfg.ClientID,
		ClientSecret: b.cfg.ClientSecret,
		Scopes:       b.cfg.Scopes,
		Endpoint:     b.endpoint,
	}
}

// httpClient returns a client that sends token as a bearer credential.
func (b *baseProvider) httpClient(ctx context.Context, token *oauth2.Token) *http.Client {
	return b.oauth2Config().Client(ctx, token)
}

// UserKey qualifies a provider-local subject id.
func UserKey(provider, subject string) string {
	return provider + ":" + subject
}

// Registry looks providers up by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry registers ps under their Name.
func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(ps))}
	for _, p := range ps {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns ErrProviderNotFound for unknown names.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
