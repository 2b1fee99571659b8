package sso

import (
	"context"
	"fmt"

	"github.com/platinummonkey/gatekeeper/pkg/observability"
)

// Initiator starts a broker handshake: it mints the state/secret pair,
// registers the handshake with the identity broker, and persists the
// phase-1 pending exchange under the state.
type Initiator struct {
	settings *Settings
	store    ExchangeStore
	broker   Broker
	logger   *observability.Logger
}

// NewInitiator creates an Initiator.
func NewInitiator(settings *Settings, store ExchangeStore, broker Broker, logger *observability.Logger) *Initiator {
	return &Initiator{
		settings: settings,
		store:    store,
		broker:   broker,
		logger:   logger,
	}
}

// StartResult is the broker's answer to a started handshake: a redirect URL
// for the google and slack families, or raw provider-hosted HTML for SAML.
type StartResult struct {
	RedirectURL string
	Content     []byte
}

// Start begins a handshake for the active mode. Returns ErrNotSupported
// when the mode has no broker-initiated family, ErrSubscriptionRequired
// when the operator's subscription is inactive (locally or per the
// broker), and ErrUpstreamUnavailable on any other broker failure.
func (i *Initiator) Start(ctx context.Context) (*StartResult, error) {
	family := i.settings.Mode.Family()
	if family == "" {
		return nil, ErrNotSupported
	}

	if !i.settings.SubscriptionActive {
		i.logger.Error("Subscription must be active for single sign-on")
		return nil, ErrSubscriptionRequired
	}

	state, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	secret, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	req := &BrokerRequest{
		Family:   family,
		License:  i.settings.License,
		Callback: i.settings.CallbackURL,
		State:    state,
		Secret:   secret,
	}
	if family == KindSAML {
		req.SAMLURL = i.settings.SAMLURL
		req.SAMLIssuerURL = i.settings.SAMLIssuerURL
		req.SAMLCert = i.settings.SAMLCert
	}

	resp, err := i.broker.Request(ctx, req)
	if err != nil {
		i.logger.WithError(err).WithField("family", string(family)).
			Error("Identity broker request failed")
		return nil, err
	}

	if err := i.store.Put(ctx, state, &PendingExchange{
		Kind:   family,
		Secret: secret,
	}); err != nil {
		return nil, fmt.Errorf("failed to store pending exchange: %w", err)
	}

	return &StartResult{
		RedirectURL: resp.RedirectURL,
		Content:     resp.Content,
	}, nil
}
