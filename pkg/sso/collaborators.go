package sso

import "context"

// BrokerRequest carries everything the external identity broker needs to
// start a provider handshake.
type BrokerRequest struct {
	Family   Kind   `json:"-"`
	License  string `json:"license"`
	Callback string `json:"callback"`
	State    string `json:"state"`
	Secret   string `json:"secret"`

	// SAML-family settings, empty for other families.
	SAMLURL       string `json:"sso_url,omitempty"`
	SAMLIssuerURL string `json:"issuer_url,omitempty"`
	SAMLCert      string `json:"cert,omitempty"`
}

// BrokerResponse is the broker's answer: a redirect URL for the google and
// slack families, or raw provider-hosted HTML for the SAML family.
type BrokerResponse struct {
	RedirectURL string
	Content     []byte
}

// Broker starts a handshake with the external identity broker.
// Implementations map a 401 to ErrSubscriptionRequired and any other
// non-200 to ErrUpstreamUnavailable.
type Broker interface {
	Request(ctx context.Context, req *BrokerRequest) (*BrokerResponse, error)
}

// GroupVerifier checks a federated (google-family) username and returns its
// group memberships.
type GroupVerifier interface {
	Verify(ctx context.Context, username string) (valid bool, groups []string, err error)
}

// FactorService is the Duo-style push/phone/passcode verifier.
type FactorService interface {
	Authenticate(ctx context.Context, username string, factor DuoFactor, remoteIP, passcode string) (valid bool, err error)
}

// KeyVerifier validates hardware-key material and extracts the key's public
// identity.
type KeyVerifier interface {
	Verify(ctx context.Context, key string) (valid bool, keyID string, err error)
}

// PluginResult is what a policy plugin contributes to a resolution: an
// organization override and additional groups. A returned OrgID takes
// precedence over the provisional one; Groups union into the derived set.
type PluginResult struct {
	Valid  bool
	OrgID  string
	Groups []string
}

// PolicyPlugin is the external policy hook consulted after every resolver
// and Duo redemption.
type PolicyPlugin interface {
	Authenticate(ctx context.Context, ssoType, username, email, remoteIP string, orgNames []string) (*PluginResult, error)
}

// NopPlugin accepts every identity without contributing anything.
type NopPlugin struct{}

// Authenticate implements PolicyPlugin.
func (NopPlugin) Authenticate(context.Context, string, string, string, string, []string) (*PluginResult, error) {
	return &PluginResult{Valid: true}, nil
}

// Notifier receives the change notifications the reconciler emits.
type Notifier interface {
	OrgsUpdated(ctx context.Context)
	UsersUpdated(ctx context.Context, orgID string)
	ServersUpdated(ctx context.Context)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

// OrgsUpdated implements Notifier.
func (NopNotifier) OrgsUpdated(context.Context) {}

// UsersUpdated implements Notifier.
func (NopNotifier) UsersUpdated(context.Context, string) {}

// ServersUpdated implements Notifier.
func (NopNotifier) ServersUpdated(context.Context) {}
