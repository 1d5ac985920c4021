package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/presstronic/kalsumed/internal/auth/domain"
)

type GitHubConfig struct {
	ClientID     string `env:"GITHUB_CLIENT_ID"`
	ClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	RedirectURL  string `env:"GITHUB_REDIRECT_URL"`
}

func (c GitHubConfig) Enabled() bool { return c.ClientID != "" }

// GitHub is plain OAuth 2.0 without an id_token, so the profile comes from
// the REST API after the code exchange.
type GitHub struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	apiBaseURL string
}

func NewGitHub(cfg GitHubConfig) (*GitHub, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("provider: github config missing required fields")
	}

	return &GitHub{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBaseURL: "https://api.github.com",
	}, nil
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) AuthCodeURL(state, _ string) string {
	return g.oauth.AuthCodeURL(state)
}

func (g *GitHub) Exchange(ctx context.Context, code, _ string) (*domain.SocialProfile, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: github: %v", ErrExchange, err)
	}

	user, err := g.fetchUser(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	profile := &domain.SocialProfile{
		Provider:          g.Name(),
		ProviderAccountID: strconv.FormatInt(user.ID, 10),
		GivenName:         user.Name,
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		profile.ExpiresIn = time.Until(token.Expiry)
	}

	// The user endpoint only exposes an email when it is public and verified.
	if user.Email != "" {
		profile.Emails = []string{user.Email}
		profile.EmailVerified = true
		return profile, nil
	}

	emails, err := g.fetchEmails(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			profile.Emails = append([]string{e.Email}, profile.Emails...)
			profile.EmailVerified = true
		} else if e.Verified {
			profile.Emails = append(profile.Emails, e.Email)
		}
	}
	if len(profile.Emails) > 0 && !profile.EmailVerified {
		profile.EmailVerified = true
	}
	return profile, nil
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *GitHub) fetchUser(ctx context.Context, accessToken string) (*githubUser, error) {
	var user githubUser
	if err := g.getJSON(ctx, "/user", accessToken, &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("%w: github: user endpoint returned no id", ErrExchange)
	}
	return &user, nil
}

func (g *GitHub) fetchEmails(ctx context.Context, accessToken string) ([]githubEmail, error) {
	var emails []githubEmail
	if err := g.getJSON(ctx, "/user/emails", accessToken, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

func (g *GitHub) getJSON(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: github: %v", ErrExchange, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: github: api status %d for %s", ErrExchange, resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
