package sso

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatekeeper/pkg/directory"
)

// callbackFixture wires the full callback path over in-memory collaborators.
type callbackFixture struct {
	settings *Settings
	store    *MemoryStore
	dir      *directory.Memory
	verifier *Verifier
	stepup   *StepUp
	factor   *fakeFactor
	keys     *fakeKeys
	groups   *fakeGroupVerifier
}

func newCallbackFixture(t *testing.T, settings *Settings) *callbackFixture {
	t.Helper()

	f := &callbackFixture{
		settings: settings,
		store:    NewMemoryStore(time.Minute),
		dir:      directory.NewMemory(),
		factor:   &fakeFactor{valid: true},
		keys:     &fakeKeys{valid: true, keyID: "ccccccdefghi"},
		groups:   &fakeGroupVerifier{valid: true},
	}
	t.Cleanup(f.store.Close)

	logger := testLogger()
	reconciler := NewReconciler(f.dir, nil, nil, logger)
	f.stepup = NewStepUp(settings, f.store, f.factor, f.keys, NopPlugin{}, reconciler, logger)
	resolvers := map[Kind]Resolver{
		KindGoogle: NewGoogleResolver(settings, f.groups, NopPlugin{}, f.dir, logger),
		KindSAML:   NewSAMLResolver(settings, NopPlugin{}, f.dir, logger),
		KindSlack:  NewSlackResolver(settings, NopPlugin{}, f.dir, logger),
	}
	f.verifier = NewVerifier(settings, f.store, resolvers, f.stepup, reconciler, logger)
	return f
}

// issueState stores a phase-1 exchange and returns its state and secret.
func (f *callbackFixture) issueState(t *testing.T, kind Kind) (string, string) {
	t.Helper()
	state, err := GenerateToken()
	require.NoError(t, err)
	secret, err := GenerateToken()
	require.NoError(t, err)
	require.NoError(t, f.store.Put(context.Background(), state, &PendingExchange{
		Kind:   kind,
		Secret: secret,
	}))
	return state, secret
}

func TestVerifier_GoogleEndToEnd(t *testing.T) {
	settings := &Settings{Mode: ModeGoogle, DefaultOrgID: "fallback", GoogleMode: "orgs"}
	f := newCallbackFixture(t, settings)
	org := f.dir.AddOrg("engineering")
	f.groups.groups = []string{"engineering"}

	state, secret := f.issueState(t, KindGoogle)
	query := signQuery(secret, url.Values{
		"state":    {state},
		"username": {"alice@example.com"},
	})

	out, err := f.verifier.Handle(context.Background(), query, "10.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Nil(t, out.Challenge)
	assert.True(t, out.Result.Created)
	assert.Equal(t, org.ID, out.Result.User.OrgID)
	assert.Equal(t, "google", out.Result.User.AuthType)
	assert.True(t, strings.HasPrefix(out.Result.ViewURL, "/key/"))
}

func TestVerifier_SAMLMultiOrgEndToEnd(t *testing.T) {
	settings := &Settings{Mode: ModeSAML, DefaultOrgID: "fallback"}
	f := newCallbackFixture(t, settings)
	org := f.dir.AddOrg("finance")

	state, secret := f.issueState(t, KindSAML)
	query := signQuery(secret, url.Values{
		"state":    {state},
		"username": {"bob"},
		"email":    {"bob@example.com"},
		"org":      {"zeta;finance"},
		"groups":   {"auditors"},
	})

	out, err := f.verifier.Handle(context.Background(), query, "10.0.0.2")
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, org.ID, out.Result.User.OrgID)
	assert.Equal(t, []string{"auditors"}, out.Result.User.Groups)
}

func TestVerifier_DuoChallengeThenRedeem(t *testing.T) {
	settings := &Settings{Mode: ModeSAMLDuo, DefaultOrgID: "fallback", DuoMode: DuoFactorPasscode}
	f := newCallbackFixture(t, settings)
	org := f.dir.AddOrg("engineering")

	state, secret := f.issueState(t, KindSAML)
	query := signQuery(secret, url.Values{
		"state":    {state},
		"username": {"alice"},
		"org":      {"engineering"},
	})

	out, err := f.verifier.Handle(context.Background(), query, "10.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, out.Challenge)
	assert.Nil(t, out.Result)
	assert.Equal(t, PageDuo, out.Challenge.Page)

	res, err := f.stepup.RedeemDuo(context.Background(), out.Challenge.Token, "123456", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, org.ID, res.User.OrgID)
	assert.Equal(t, "saml_duo", res.User.AuthType)
}

func TestVerifier_YubicoChallenge(t *testing.T) {
	settings := &Settings{Mode: ModeSlackYubico, SlackTeam: "acme", DefaultOrgID: "fallback"}
	f := newCallbackFixture(t, settings)
	f.dir.AddOrg("support")

	state, secret := f.issueState(t, KindSlack)
	query := signQuery(secret, url.Values{
		"state":    {state},
		"username": {"carol"},
		"team":     {"acme"},
		"orgs":     {"support"},
	})

	out, err := f.verifier.Handle(context.Background(), query, "")
	require.NoError(t, err)
	require.NotNil(t, out.Challenge)
	assert.Equal(t, PageYubico, out.Challenge.Page)
}

func TestVerifier_SignatureBitFlip(t *testing.T) {
	settings := &Settings{Mode: ModeSAML, DefaultOrgID: "fallback"}
	f := newCallbackFixture(t, settings)

	state, secret := f.issueState(t, KindSAML)
	query := signQuery(secret, url.Values{
		"state":    {state},
		"username": {"alice"},
	})

	// Flip one character of the signature.
	idx := strings.Index(query, "&sig=") + len("&sig=")
	flipped := byte('A')
	if query[idx] == 'A' {
		flipped = 'B'
	}
	tampered := query[:idx] + string(flipped) + query[idx+1:]

	_, err := f.verifier.Handle(context.Background(), tampered, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifier_TamperedFieldRejected(t *testing.T) {
	settings := &Settings{Mode: ModeSAML, DefaultOrgID: "fallback"}
	f := newCallbackFixture(t, settings)

	state, secret := f.issueState(t, KindSAML)
	query := signQuery(secret, url.Values{
		"state":    {state},
		"username": {"alice"},
	})

	tampered := strings.Replace(query, "username=alice", "username=mallory", 1)

	_, err := f.verifier.Handle(context.Background(), tampered, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifier_UnknownState(t *testing.T) {
	settings := &Settings{Mode: ModeSAML}
	f := newCallbackFixture(t, settings)

	query := signQuery("some-secret", url.Values{
		"state":    {"never-issued"},
		"username": {"alice"},
	})

	_, err := f.verifier.Handle(context.Background(), query, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestVerifier_ReplayRejected(t *testing.T) {
	settings := &Settings{Mode: ModeSAML, DefaultOrgID: "fallback"}
	f := newCallbackFixture(t, settings)
	f.dir.AddOrg("engineering")

	state, secret := f.issueState(t, KindSAML)
	query := signQuery(secret, url.Values{
		"state":    {state},
		"username": {"alice"},
		"org":      {"engineering"},
	})

	_, err := f.verifier.Handle(context.Background(), query, "")
	require.NoError(t, err)

	// The identical, correctly signed query must fail the second time.
	_, err = f.verifier.Handle(context.Background(), query, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestVerifier_FailedSignatureBurnsState(t *testing.T) {
	settings := &Settings{Mode: ModeSAML, DefaultOrgID: "fallback"}
	f := newCallbackFixture(t, settings)

	state, _ := f.issueState(t, KindSAML)
	forged := signQuery("wrong-secret", url.Values{
		"state":    {state},
		"username": {"mallory"},
	})

	_, err := f.verifier.Handle(context.Background(), forged, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// The forgery attempt consumed the state.
	_, err = f.store.Consume(context.Background(), state)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifier_MissingParameters(t *testing.T) {
	settings := &Settings{Mode: ModeSAML}
	f := newCallbackFixture(t, settings)

	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"no sig", "state=abc"},
		{"no state", "sig=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.verifier.Handle(context.Background(), tt.query, "")
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}

func TestVerifier_ModeWithoutCallback(t *testing.T) {
	settings := &Settings{Mode: ModeDuo}
	f := newCallbackFixture(t, settings)

	_, err := f.verifier.Handle(context.Background(), "state=abc&sig=def", "")
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestInitiator_Start(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	broker := &fakeBroker{resp: &BrokerResponse{RedirectURL: "https://idp.example.com/auth"}}
	settings := &Settings{
		Mode:               ModeGoogle,
		License:            "license-key",
		CallbackURL:        "https://vpn.example.com/sso/callback",
		SubscriptionActive: true,
	}
	initiator := NewInitiator(settings, store, broker, testLogger())

	res, err := initiator.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://idp.example.com/auth", res.RedirectURL)

	require.NotNil(t, broker.lastReq)
	assert.Equal(t, KindGoogle, broker.lastReq.Family)
	assert.Equal(t, "license-key", broker.lastReq.License)
	assert.Len(t, broker.lastReq.State, TokenLength)
	assert.Len(t, broker.lastReq.Secret, TokenLength)

	rec, err := store.Consume(context.Background(), broker.lastReq.State)
	require.NoError(t, err)
	assert.Equal(t, KindGoogle, rec.Kind)
	assert.Equal(t, broker.lastReq.Secret, rec.Secret)
}

func TestInitiator_SAMLForwardsIdPSettings(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	broker := &fakeBroker{resp: &BrokerResponse{Content: []byte("<html>form</html>")}}
	settings := &Settings{
		Mode:               ModeSAMLDuo,
		SubscriptionActive: true,
		SAMLURL:            "https://idp.example.com/saml",
		SAMLIssuerURL:      "https://vpn.example.com",
		SAMLCert:           "cert-pem",
	}
	initiator := NewInitiator(settings, store, broker, testLogger())

	res, err := initiator.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>form</html>"), res.Content)
	assert.Equal(t, "https://idp.example.com/saml", broker.lastReq.SAMLURL)
	assert.Equal(t, "https://vpn.example.com", broker.lastReq.SAMLIssuerURL)
	assert.Equal(t, "cert-pem", broker.lastReq.SAMLCert)
}

func TestInitiator_ModeWithoutFamily(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	initiator := NewInitiator(&Settings{Mode: ModeDuo, SubscriptionActive: true},
		store, &fakeBroker{}, testLogger())

	_, err := initiator.Start(context.Background())
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestInitiator_InactiveSubscription(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	initiator := NewInitiator(&Settings{Mode: ModeGoogle}, store, &fakeBroker{}, testLogger())

	_, err := initiator.Start(context.Background())
	assert.ErrorIs(t, err, ErrSubscriptionRequired)
}

func TestInitiator_BrokerFailure(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	broker := &fakeBroker{err: ErrUpstreamUnavailable}
	initiator := NewInitiator(&Settings{Mode: ModeGoogle, SubscriptionActive: true},
		store, broker, testLogger())

	_, err := initiator.Start(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 0, store.Len())
}
