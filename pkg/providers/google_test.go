package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGoogleVerifier wires a verifier against a fake group API and a
// fake token endpoint.
func newTestGoogleVerifier(t *testing.T, handler http.HandlerFunc) *GoogleVerifier {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/groups", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewGoogleVerifier(GoogleVerifierConfig{
		Endpoint:     server.URL + "/groups",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     server.URL + "/token",
		Timeout:      time.Second,
	})
}

func TestGoogleVerifier_Valid(t *testing.T) {
	var gotUsername, gotAuth string
	v := newTestGoogleVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		gotUsername = r.URL.Query().Get("username")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"valid":  true,
			"groups": []string{"eng", "ops"},
		})
	})

	valid, groups, err := v.Verify(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, []string{"eng", "ops"}, groups)
	assert.Equal(t, "alice@example.com", gotUsername)
	assert.True(t, strings.EqualFold(gotAuth, "Bearer test-token"))
}

func TestGoogleVerifier_NotValid(t *testing.T) {
	v := newTestGoogleVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"valid": false})
	})

	valid, groups, err := v.Verify(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Empty(t, groups)
}

func TestGoogleVerifier_RejectionStatuses(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden} {
		v := newTestGoogleVerifier(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		valid, _, err := v.Verify(context.Background(), "ghost@example.com")
		require.NoError(t, err)
		assert.False(t, valid)
	}
}

func TestGoogleVerifier_ServerError(t *testing.T) {
	v := newTestGoogleVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, _, err := v.Verify(context.Background(), "alice@example.com")
	assert.Error(t, err)
}
