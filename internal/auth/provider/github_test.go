package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newFakeGitHub wires a GitHub provider against local token and API servers.
func newFakeGitHub(t *testing.T, user map[string]any, emails []map[string]any) *GitHub {
	t.Helper()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer gh-access", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/user":
			_ = json.NewEncoder(w).Encode(user)
		case "/user/emails":
			_ = json.NewEncoder(w).Encode(emails)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(api.Close)

	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gh-access","token_type":"bearer"}`))
	}))
	t.Cleanup(tokens.Close)

	g, err := NewGitHub(GitHubConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
	})
	require.NoError(t, err)

	g.oauth.Endpoint = oauth2.Endpoint{TokenURL: tokens.URL + "/token"}
	g.apiBaseURL = api.URL
	return g
}

func TestGitHub_ExchangePublicEmail(t *testing.T) {
	g := newFakeGitHub(t, map[string]any{
		"id":    int64(42),
		"login": "octocat",
		"name":  "Octo Cat",
		"email": "octo@example.com",
	}, nil)

	profile, err := g.Exchange(context.Background(), "code", "")
	require.NoError(t, err)

	require.Equal(t, "github", profile.Provider)
	require.Equal(t, "42", profile.ProviderAccountID)
	require.Equal(t, "octo@example.com", profile.Email())
	require.True(t, profile.EmailVerified)
	require.Equal(t, "gh-access", profile.AccessToken)
}

func TestGitHub_ExchangePrivateEmailUsesEmailsEndpoint(t *testing.T) {
	g := newFakeGitHub(t, map[string]any{
		"id":    int64(7),
		"login": "shy",
	}, []map[string]any{
		{"email": "secondary@example.com", "primary": false, "verified": true},
		{"email": "primary@example.com", "primary": true, "verified": true},
		{"email": "unverified@example.com", "primary": false, "verified": false},
	})

	profile, err := g.Exchange(context.Background(), "code", "")
	require.NoError(t, err)

	require.Equal(t, "primary@example.com", profile.Email())
	require.True(t, profile.EmailVerified)
	require.NotContains(t, profile.Emails, "unverified@example.com")
}

func TestGitHub_ExchangeNoEmails(t *testing.T) {
	g := newFakeGitHub(t, map[string]any{"id": int64(9)}, nil)

	profile, err := g.Exchange(context.Background(), "code", "")
	require.NoError(t, err)

	require.Empty(t, profile.Email())
	require.False(t, profile.EmailVerified)
}

func TestRegistry_Lookup(t *testing.T) {
	g, err := NewGitHub(GitHubConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
	})
	require.NoError(t, err)

	r := NewRegistry(g)

	got, err := r.Get("github")
	require.NoError(t, err)
	require.Equal(t, "github", got.Name())

	_, err = r.Get("gitlab")
	require.ErrorIs(t, err, ErrUnknownProvider)

	require.ElementsMatch(t, []string{"github"}, r.Names())
}
