package providers

import (
	"bufio"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// yubicoPublicIDLen is the length of the public identity prefix of an OTP.
const yubicoPublicIDLen = 12

// YubicoClient validates one-time passwords against a YubiCloud-style
// verification service and extracts the key's public identity.
type YubicoClient struct {
	baseURL  string
	clientID string
	apiKey   []byte
	client   *http.Client
}

// NewYubicoClient creates a verifier client. apiKey is the base64-encoded
// shared secret used to sign requests and verify response signatures; it
// may be empty, in which case signatures are not exchanged.
func NewYubicoClient(baseURL, clientID, apiKey string, timeout time.Duration) (*YubicoClient, error) {
	var key []byte
	if apiKey != "" {
		var err error
		key, err = base64.StdEncoding.DecodeString(apiKey)
		if err != nil {
			return nil, fmt.Errorf("invalid yubico api key: %w", err)
		}
	}
	return &YubicoClient{
		baseURL:  baseURL,
		clientID: clientID,
		apiKey:   key,
		client:   newHTTPClient(timeout),
	}, nil
}

// Verify implements sso.KeyVerifier. A valid OTP yields the key's 12
// character public identity.
func (c *YubicoClient) Verify(ctx context.Context, key string) (bool, string, error) {
	if len(key) <= yubicoPublicIDLen {
		return false, "", nil
	}

	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return false, "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)

	params := url.Values{}
	params.Set("id", c.clientID)
	params.Set("otp", key)
	params.Set("nonce", nonce)
	if len(c.apiKey) > 0 {
		params.Set("h", c.signParams(params))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/wsapi/2.0/verify?"+params.Encode(), nil)
	if err != nil {
		return false, "", fmt.Errorf("failed to build yubico request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("yubico request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("yubico returned status %d", resp.StatusCode)
	}

	fields, err := parseYubicoResponse(resp.Body)
	if err != nil {
		return false, "", err
	}

	// The echoed otp and nonce must match the request, or the response is
	// a replay.
	if fields["otp"] != key || fields["nonce"] != nonce {
		return false, "", nil
	}
	if fields["status"] != "OK" {
		return false, "", nil
	}

	return true, key[:yubicoPublicIDLen], nil
}

// signParams computes the request signature: base64(HMAC-SHA1(apiKey,
// sorted key=value pairs joined by &)).
func (c *YubicoClient) signParams(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k != "h" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params.Get(k))
	}

	mac := hmac.New(sha1.New, c.apiKey)
	mac.Write([]byte(strings.Join(pairs, "&")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func parseYubicoResponse(body io.Reader) (map[string]string, error) {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		fields[line[:idx]] = line[idx+1:]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read yubico response: %w", err)
	}
	return fields, nil
}
