package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pilab-dev/reelsync/domain"
	"golang.org/x/oauth2"
	facebookOAuth2 "golang.org/x/oauth2/facebook"
)

var FacebookUserInfoEndpoint = "https://graph.facebook.com/me?fields=id,name,email,picture"

// FacebookProvider reads the Graph API /me object.
type FacebookProvider struct {
	baseProvider
}

func NewFacebookProvider(cfg OAuthConfig) *FacebookProvider {
	cfg.Scopes = withScopes(cfg.Scopes, "public_profile", "email")

	return &FacebookProvider{baseProvider{cfg: cfg, endpoint: facebookOAuth2.Endpoint}}
}

func (f *FacebookProvider) Name() string { return domain.ProviderFacebook }

func (f *FacebookProvider) Identity(ctx context.Context, token *oauth2.Token) (*domain.Identity, error) {
	resp, err := f.httpClient(ctx, token).Get(FacebookUserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: facebook: %v", ErrFetchUserInfoFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("facebook: read user info body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: facebook: status %d, body: %s", ErrFetchUserInfoFailed, resp.StatusCode, string(body))
	}

	var info struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL          string `json:"url"`
				IsSilhouette bool   `json:"is_silhouette"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("facebook: unmarshal user info: %w", err)
	}
	if info.ID == "" {
		return nil, ErrMissingSubject
	}

	// the default silhouette is not a real photo
	avatar := ""
	if !info.Picture.Data.IsSilhouette {
		avatar = info.Picture.Data.URL
	}

	return &domain.Identity{
		UserKey:     UserKey(domain.ProviderFacebook, info.ID),
		Provider:    domain.ProviderFacebook,
		DisplayName: info.Name,
		Email:       info.Email,
		AvatarURL:   avatar,
	}, nil
}

var _ Provider = (*FacebookProvider)(nil)
