package sso

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/platinummonkey/gatekeeper/pkg/observability"
)

// Verifier validates broker callbacks and drives the flow to its next
// stage: a step-up challenge or final reconciliation.
type Verifier struct {
	settings   *Settings
	store      ExchangeStore
	resolvers  map[Kind]Resolver
	stepup     *StepUp
	reconciler *Reconciler
	logger     *observability.Logger
}

// NewVerifier creates a Verifier dispatching to the given resolvers.
func NewVerifier(settings *Settings, store ExchangeStore, resolvers map[Kind]Resolver,
	stepup *StepUp, reconciler *Reconciler, logger *observability.Logger) *Verifier {
	return &Verifier{
		settings:   settings,
		store:      store,
		resolvers:  resolvers,
		stepup:     stepup,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Handle processes a callback query string. The pending exchange is
// consumed before the signature is checked: even under concurrent replay
// with a stolen signature, at most one verification of an issued state can
// succeed. A consumed exchange whose signature fails is simply dead; the
// caller must start a fresh handshake.
func (v *Verifier) Handle(ctx context.Context, rawQuery, remoteAddr string) (*Outcome, error) {
	mode := v.settings.Mode
	if !mode.AcceptsRequest() {
		return nil, ErrNotSupported
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, ErrInvalidState
	}
	state := values.Get("state")
	sig := values.Get("sig")
	if state == "" || sig == "" {
		return nil, ErrInvalidState
	}

	rec, err := v.store.Consume(ctx, state)
	if err == ErrNotFound {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume exchange state: %w", err)
	}

	// The signature covers the query exactly as sent, up to the trailing
	// &sig= segment.
	canonical := rawQuery
	if idx := strings.Index(rawQuery, "&sig="); idx >= 0 {
		canonical = rawQuery[:idx]
	}

	mac := hmac.New(sha512.New, []byte(rec.Secret))
	mac.Write([]byte(canonical))
	expected := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(sig), []byte(expected)) {
		v.logger.WithField("state", state).Warn("Callback signature mismatch")
		return nil, ErrInvalidSignature
	}

	fields, err := url.ParseQuery(canonical)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	resolver, ok := v.resolvers[rec.Kind]
	if !ok {
		v.logger.WithField("sso_type", string(rec.Kind)).
			Error("Unknown exchange kind")
		return nil, ErrUnauthorized
	}

	identity, err := resolver.Resolve(ctx, fields, remoteAddr)
	if err != nil {
		return nil, err
	}

	switch {
	case mode.RequiresDuo():
		return v.stepup.Challenge(ctx, KindDuo, identity)
	case mode.RequiresYubico():
		return v.stepup.Challenge(ctx, KindYubico, identity)
	}

	result, err := v.reconciler.Reconcile(ctx, identity, mode, remoteAddr)
	if err != nil {
		return nil, err
	}
	return &Outcome{Result: result}, nil
}
