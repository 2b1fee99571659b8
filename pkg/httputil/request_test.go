package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginRequest struct {
	Username string `json:"username"`
	Passcode string `json:"passcode"`
}

func TestParseJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"username": "alice", "passcode": "123456"}`))

	var dst loginRequest
	require.NoError(t, ParseJSON(req, &dst))
	assert.Equal(t, "alice", dst.Username)
	assert.Equal(t, "123456", dst.Passcode)
}

func TestParseJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", "{not json"},
		{"unknown field", `{"username": "alice", "shoe_size": 9}`},
		{"wrong type", `{"username": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var dst loginRequest
			err := ParseJSON(req, &dst)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid JSON body")
		})
	}
}

func TestParseJSONOrError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"username": "alice"}`))
	rec := httptest.NewRecorder()

	var dst loginRequest
	assert.True(t, ParseJSONOrError(rec, req, &dst))
	assert.Equal(t, "alice", dst.Username)
}

func TestParseJSONOrError_WritesBadRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("oops"))
	rec := httptest.NewRecorder()

	var dst loginRequest
	assert.False(t, ParseJSONOrError(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
