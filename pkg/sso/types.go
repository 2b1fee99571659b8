package sso

import (
	"time"

	"github.com/platinummonkey/gatekeeper/pkg/directory"
)

// PendingExchange is the ephemeral record behind an exchange token. Phase-1
// records (awaiting a broker callback) carry only the signing secret;
// step-up records carry the already-resolved identity.
type PendingExchange struct {
	Kind      Kind      `json:"kind"`
	Secret    string    `json:"secret,omitempty"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email,omitempty"`
	OrgID     string    `json:"org_id,omitempty"`
	Groups    []string  `json:"groups,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ResolvedIdentity is the canonical output of a provider resolver or
// step-up redemption, ready for reconciliation. Groups is treated as a set;
// duplicates are harmless.
type ResolvedIdentity struct {
	Username string
	Email    string
	OrgID    string
	Groups   []string
	YubicoID string
}

// GroupSet returns the identity's groups as a set.
func (id *ResolvedIdentity) GroupSet() map[string]struct{} {
	set := make(map[string]struct{}, len(id.Groups))
	for _, g := range id.Groups {
		if g != "" {
			set[g] = struct{}{}
		}
	}
	return set
}

// Challenge is handed to the caller when the active mode requires a second
// factor: a fresh single-use token plus the interactive page to present.
type Challenge struct {
	Token     string    `json:"token"`
	Page      string    `json:"page"`
	DuoFactor DuoFactor `json:"factor_mode,omitempty"`
}

// Result is the terminal success payload: the reconciled user and the
// one-time login link minted for it.
type Result struct {
	User    *directory.User `json:"-"`
	ViewURL string          `json:"redirect"`
	Created bool            `json:"-"`
}

// Outcome is what a callback or step-up redemption produces: exactly one of
// Challenge (a factor round-trip is still required) or Result.
type Outcome struct {
	Challenge *Challenge
	Result    *Result
}

// Settings is the immutable process-wide SSO configuration injected into
// each component.
type Settings struct {
	Mode               Mode
	License            string
	CallbackURL        string
	DefaultOrgID       string
	SubscriptionActive bool

	// GoogleMode selects the federated group policy: "groups" attaches the
	// verifier's group names to the identity, anything else probes them as
	// organization names.
	GoogleMode string

	// DuoMode is the configured factor for Duo step-up challenges. Values
	// other than "passcode" and "phone" render as push.
	DuoMode DuoFactor

	// SlackTeam is the exact team name the team-restricted resolver
	// requires.
	SlackTeam string

	// SAML identity-provider settings forwarded to the broker.
	SAMLURL       string
	SAMLIssuerURL string
	SAMLCert      string
}

// FactorFor normalizes the configured Duo mode into a challenge factor.
func (s *Settings) FactorFor() DuoFactor {
	switch s.DuoMode {
	case DuoFactorPasscode, DuoFactorPhone:
		return s.DuoMode
	}
	return DuoFactorPush
}
