package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatekeeper/pkg/sso"
)

func TestBrokerClient_RedirectFamilies(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{
			"url": "https://accounts.example.com/signin",
		})
	}))
	defer server.Close()

	client := NewBrokerClient(server.URL, time.Second)
	resp, err := client.Request(context.Background(), &sso.BrokerRequest{
		Family:   sso.KindGoogle,
		License:  "license-key",
		Callback: "https://vpn.example.com/sso/callback",
		State:    "state-token",
		Secret:   "secret-token",
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/request/google", gotPath)
	assert.Equal(t, "https://accounts.example.com/signin", resp.RedirectURL)
	assert.Empty(t, resp.Content)

	assert.Equal(t, "license-key", gotBody["license"])
	assert.Equal(t, "state-token", gotBody["state"])
	assert.Equal(t, "secret-token", gotBody["secret"])
	_, hasFamily := gotBody["Family"]
	assert.False(t, hasFamily)
}

func TestBrokerClient_SAMLContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/request/saml", r.URL.Path)
		w.Write([]byte("<html>saml form</html>"))
	}))
	defer server.Close()

	client := NewBrokerClient(server.URL, time.Second)
	resp, err := client.Request(context.Background(), &sso.BrokerRequest{
		Family:  sso.KindSAML,
		SAMLURL: "https://idp.example.com/saml",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>saml form</html>"), resp.Content)
	assert.Empty(t, resp.RedirectURL)
}

func TestBrokerClient_SubscriptionRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewBrokerClient(server.URL, time.Second)
	_, err := client.Request(context.Background(), &sso.BrokerRequest{Family: sso.KindGoogle})
	assert.ErrorIs(t, err, sso.ErrSubscriptionRequired)
}

func TestBrokerClient_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
		{
			name: "missing url",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{}"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewBrokerClient(server.URL, time.Second)
			_, err := client.Request(context.Background(), &sso.BrokerRequest{Family: sso.KindSlack})
			assert.ErrorIs(t, err, sso.ErrUpstreamUnavailable)
		})
	}
}

func TestBrokerClient_ConnectionRefused(t *testing.T) {
	client := NewBrokerClient("http://127.0.0.1:1", time.Second)
	_, err := client.Request(context.Background(), &sso.BrokerRequest{Family: sso.KindGoogle})
	assert.ErrorIs(t, err, sso.ErrUpstreamUnavailable)
}
