package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/platinummonkey/gatekeeper/pkg/sso"
)

// Duo API error code for an unenrolled username.
const duoCodeInvalidUser = 40002

// DuoClient is the push/phone/passcode factor service. Requests are signed
// with HMAC-SHA1 over the canonical request per the Duo Auth API.
type DuoClient struct {
	host   string
	ikey   string
	skey   string
	client *http.Client

	// now is injectable for signature tests.
	now func() time.Time
}

// NewDuoClient creates a factor client for the given API hostname and
// integration/secret key pair.
func NewDuoClient(host, ikey, skey string, timeout time.Duration) *DuoClient {
	return &DuoClient{
		host:   host,
		ikey:   ikey,
		skey:   skey,
		client: newHTTPClient(timeout),
		now:    time.Now,
	}
}

// Authenticate implements sso.FactorService. The factor argument selects
// push, phone, or passcode confirmation; passcode is only consulted for
// the passcode factor. An unenrolled username maps to
// sso.ErrUnknownUsername.
func (c *DuoClient) Authenticate(ctx context.Context, username string, factor sso.DuoFactor, remoteIP, passcode string) (bool, error) {
	params := url.Values{}
	params.Set("username", username)
	params.Set("ipaddr", remoteIP)

	switch factor {
	case sso.DuoFactorPasscode:
		params.Set("factor", "passcode")
		params.Set("passcode", passcode)
	case sso.DuoFactorPhone:
		params.Set("factor", "phone")
		params.Set("device", "auto")
	default:
		params.Set("factor", "push")
		params.Set("device", "auto")
		params.Set("type", "Key")
	}

	resp, err := c.call(ctx, params)
	if err != nil {
		return false, err
	}

	if resp.Stat != "OK" {
		if resp.Code == duoCodeInvalidUser {
			return false, sso.ErrUnknownUsername
		}
		return false, fmt.Errorf("duo returned %s (code %d): %s",
			resp.Stat, resp.Code, resp.Message)
	}

	return resp.Response.Result == "allow", nil
}

// sign produces the Duo Authorization header value for the canonical
// request.
func (c *DuoClient) sign(date, method, path string, params url.Values) string {
	canon := strings.Join([]string{
		date,
		strings.ToUpper(method),
		strings.ToLower(c.host),
		path,
		params.Encode(),
	}, "\n")

	mac := hmac.New(sha1.New, []byte(c.skey))
	mac.Write([]byte(canon))
	sig := hex.EncodeToString(mac.Sum(nil))

	cred := c.ikey + ":" + sig
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(cred))
}

type duoResponse struct {
	Stat     string `json:"stat"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Response struct {
		Result string `json:"result"`
		Status string `json:"status"`
	} `json:"response"`
}

func (c *DuoClient) call(ctx context.Context, params url.Values) (*duoResponse, error) {
	const path = "/auth/v2/auth"
	date := c.now().UTC().Format(time.RFC1123Z)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://"+c.host+path, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build duo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Date", date)
	req.Header.Set("Authorization", c.sign(date, http.MethodPost, path, params))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duo request failed: %w", err)
	}
	defer resp.Body.Close()

	var out duoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode duo response: %w", err)
	}
	return &out, nil
}
