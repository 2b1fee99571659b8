package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// GoogleVerifier checks a federated username's standing and group
// memberships against a directory API, authenticating with OAuth2 client
// credentials.
type GoogleVerifier struct {
	endpoint string
	client   *http.Client
}

// GoogleVerifierConfig configures the verifier client.
type GoogleVerifierConfig struct {
	// Endpoint is the group-membership API, called as
	// GET <Endpoint>?username=<username>.
	Endpoint string

	// OAuth2 client-credentials settings for the API.
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string

	Timeout time.Duration
}

// NewGoogleVerifier creates a verifier whose HTTP client injects
// client-credentials bearer tokens.
func NewGoogleVerifier(cfg GoogleVerifierConfig) *GoogleVerifier {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// oauth2 builds its transport from the base client in context.
	ctx := context.Background()
	client := cc.Client(ctx)
	client.Timeout = timeout

	return &GoogleVerifier{
		endpoint: cfg.Endpoint,
		client:   client,
	}
}

// Verify implements sso.GroupVerifier.
func (v *GoogleVerifier) Verify(ctx context.Context, username string) (bool, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		v.endpoint+"?username="+url.QueryEscape(username), nil)
	if err != nil {
		return false, nil, fmt.Errorf("failed to build group request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return false, nil, fmt.Errorf("group verifier request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
		return false, nil, nil
	default:
		return false, nil, fmt.Errorf("group verifier returned status %d", resp.StatusCode)
	}

	var data struct {
		Valid  bool     `json:"valid"`
		Groups []string `json:"groups"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return false, nil, fmt.Errorf("failed to decode group response: %w", err)
	}

	return data.Valid, data.Groups, nil
}
