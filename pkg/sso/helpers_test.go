package sso

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"io"
	"net/url"

	"github.com/platinummonkey/gatekeeper/pkg/directory"
	"github.com/platinummonkey/gatekeeper/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

// signQuery builds a callback query string signed the way the identity
// broker signs it: HMAC-SHA512 over the query without the trailing sig
// parameter, base64 url-safe encoded.
func signQuery(secret string, values url.Values) string {
	canonical := values.Encode()
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonical))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))
	return canonical + "&sig=" + url.QueryEscape(sig)
}

type fakeBroker struct {
	resp    *BrokerResponse
	err     error
	lastReq *BrokerRequest
}

func (b *fakeBroker) Request(_ context.Context, req *BrokerRequest) (*BrokerResponse, error) {
	b.lastReq = req
	if b.err != nil {
		return nil, b.err
	}
	return b.resp, nil
}

type fakeGroupVerifier struct {
	valid  bool
	groups []string
	err    error
}

func (v *fakeGroupVerifier) Verify(context.Context, string) (bool, []string, error) {
	return v.valid, v.groups, v.err
}

type factorCall struct {
	username string
	factor   DuoFactor
	passcode string
}

type fakeFactor struct {
	valid bool
	err   error

	// errFor fails specific usernames with the given error.
	errFor map[string]error

	calls []factorCall
}

func (f *fakeFactor) Authenticate(_ context.Context, username string, factor DuoFactor,
	_ string, passcode string) (bool, error) {
	f.calls = append(f.calls, factorCall{username, factor, passcode})
	if err, ok := f.errFor[username]; ok {
		return false, err
	}
	return f.valid, f.err
}

type fakeKeys struct {
	valid bool
	keyID string
	err   error
}

func (k *fakeKeys) Verify(context.Context, string) (bool, string, error) {
	return k.valid, k.keyID, k.err
}

type fakePlugin struct {
	result       *PluginResult
	err          error
	lastSSOType  string
	lastOrgNames []string
}

func (p *fakePlugin) Authenticate(_ context.Context, ssoType, _, _, _ string,
	orgNames []string) (*PluginResult, error) {
	p.lastSSOType = ssoType
	p.lastOrgNames = orgNames
	if p.err != nil {
		return nil, p.err
	}
	if p.result != nil {
		return p.result, nil
	}
	return &PluginResult{Valid: true}, nil
}

type recordNotifier struct {
	orgs    int
	servers int
	users   []string
}

func (n *recordNotifier) OrgsUpdated(context.Context) { n.orgs++ }

func (n *recordNotifier) UsersUpdated(_ context.Context, orgID string) {
	n.users = append(n.users, orgID)
}

func (n *recordNotifier) ServersUpdated(context.Context) { n.servers++ }

// newTestReconciler wires a Reconciler over an in-memory directory with a
// default organization already present.
func newTestReconciler(dir *directory.Memory) *Reconciler {
	return NewReconciler(dir, nil, nil, testLogger())
}
