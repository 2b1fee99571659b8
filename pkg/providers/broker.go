package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/gatekeeper/pkg/sso"
)

const defaultTimeout = 15 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// BrokerClient talks to the external identity broker that hosts the
// provider-side of each handshake.
type BrokerClient struct {
	baseURL string
	client  *http.Client
}

// NewBrokerClient creates a broker client for the given base URL.
func NewBrokerClient(baseURL string, timeout time.Duration) *BrokerClient {
	return &BrokerClient{
		baseURL: baseURL,
		client:  newHTTPClient(timeout),
	}
}

// Request implements sso.Broker. A 401 from the broker means the
// operator's subscription is inactive; any other non-200 maps to
// upstream-unavailable.
func (c *BrokerClient) Request(ctx context.Context, req *sso.BrokerRequest) (*sso.BrokerResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal broker request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/request/"+string(req.Family), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build broker request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: broker request failed: %v", sso.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: broker returned 401", sso.ErrSubscriptionRequired)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: broker returned status %d", sso.ErrUpstreamUnavailable, resp.StatusCode)
	}

	// The SAML family answers with provider-hosted HTML that is relayed to
	// the browser verbatim; the other families answer with a redirect URL.
	if req.Family == sso.KindSAML {
		content, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read broker response: %v", sso.ErrUpstreamUnavailable, err)
		}
		return &sso.BrokerResponse{Content: content}, nil
	}

	var data struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode broker response: %v", sso.ErrUpstreamUnavailable, err)
	}
	if data.URL == "" {
		return nil, fmt.Errorf("%w: broker response missing url", sso.ErrUpstreamUnavailable)
	}
	return &sso.BrokerResponse{RedirectURL: data.URL}, nil
}
