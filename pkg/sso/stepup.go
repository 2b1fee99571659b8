package sso

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/gatekeeper/pkg/observability"
)

// Step-up pages presented to the browser alongside the challenge token.
const (
	PageDuo    = "duo.html"
	PageYubico = "yubico.html"
)

// StepUp issues and redeems the single-use tokens of the second-factor
// sub-protocols. A challenge never reuses the phase-1 state; every factor
// round-trip gets a fresh token.
type StepUp struct {
	settings   *Settings
	store      ExchangeStore
	factor     FactorService
	keys       KeyVerifier
	plugin     PolicyPlugin
	reconciler *Reconciler
	logger     *observability.Logger
}

// NewStepUp creates a StepUp controller.
func NewStepUp(settings *Settings, store ExchangeStore, factor FactorService,
	keys KeyVerifier, plugin PolicyPlugin, reconciler *Reconciler,
	logger *observability.Logger) *StepUp {
	return &StepUp{
		settings:   settings,
		store:      store,
		factor:     factor,
		keys:       keys,
		plugin:     plugin,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Challenge stores the resolved identity under a fresh single-use token and
// returns the interactive challenge for the requested factor kind.
func (s *StepUp) Challenge(ctx context.Context, kind Kind, identity *ResolvedIdentity) (*Outcome, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, token, &PendingExchange{
		Kind:     kind,
		Username: identity.Username,
		Email:    identity.Email,
		OrgID:    identity.OrgID,
		Groups:   identity.Groups,
	}); err != nil {
		return nil, fmt.Errorf("failed to store factor token: %w", err)
	}

	ch := &Challenge{Token: token}
	if kind == KindDuo {
		ch.Page = PageDuo
		ch.DuoFactor = s.settings.FactorFor()
	} else {
		ch.Page = PageYubico
	}
	return &Outcome{Challenge: ch}, nil
}

// RedeemDuo redeems a Duo challenge token. The token is consumed before the
// factor call, so a failed attempt cannot be retried with the same token.
func (s *StepUp) RedeemDuo(ctx context.Context, token, passcode, remoteAddr string) (*Result, error) {
	if !s.settings.Mode.RequiresDuo() {
		return nil, ErrNotSupported
	}
	if token == "" {
		return nil, ErrInvalidToken
	}

	rec, err := s.store.Consume(ctx, token)
	if err == ErrNotFound {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume factor token: %w", err)
	}
	if rec.Kind != KindDuo {
		return nil, ErrInvalidToken
	}

	factorMode := s.settings.FactorFor()
	valid, err := s.factor.Authenticate(ctx, rec.Username, factorMode, remoteAddr, passcode)
	if err != nil && !errors.Is(err, ErrUnknownUsername) {
		return nil, fmt.Errorf("%w: factor service: %v", ErrUpstreamUnavailable, err)
	}
	if err != nil || !valid {
		s.logger.WithField("username", rec.Username).
			Warn("Duo authentication not valid")
		if factorMode == DuoFactorPasscode {
			return nil, ErrInvalidPasscode
		}
		return nil, ErrFactorFailed
	}

	groups := make(map[string]struct{})
	for _, g := range rec.Groups {
		groups[g] = struct{}{}
	}
	orgID, err := applyPlugin(ctx, s.plugin, "duo", rec.Username, rec.Email,
		remoteAddr, nil, rec.OrgID, groups, s.logger)
	if err != nil {
		return nil, err
	}

	return s.reconciler.Reconcile(ctx, &ResolvedIdentity{
		Username: rec.Username,
		Email:    rec.Email,
		OrgID:    orgID,
		Groups:   groupList(groups),
	}, s.settings.Mode, remoteAddr)
}

// RedeemYubico redeems a hardware-key challenge token with the supplied OTP
// material.
func (s *StepUp) RedeemYubico(ctx context.Context, token, key, remoteAddr string) (*Result, error) {
	if !s.settings.Mode.RequiresYubico() {
		return nil, ErrNotSupported
	}
	if token == "" || key == "" {
		return nil, ErrInvalidToken
	}

	rec, err := s.store.Consume(ctx, token)
	if err == ErrNotFound {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume factor token: %w", err)
	}
	if rec.Kind != KindYubico {
		return nil, ErrInvalidToken
	}

	valid, keyID, err := s.keys.Verify(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: key verifier: %v", ErrUpstreamUnavailable, err)
	}
	if !valid || keyID == "" {
		return nil, ErrKeyInvalid
	}

	return s.reconciler.Reconcile(ctx, &ResolvedIdentity{
		Username: rec.Username,
		Email:    rec.Email,
		OrgID:    rec.OrgID,
		Groups:   rec.Groups,
		YubicoID: keyID,
	}, s.settings.Mode, remoteAddr)
}

// AuthenticateDuo is the direct Duo flow: no broker handshake, just a
// username and an out-of-band push or phone confirmation. Only valid when
// Duo is the primary mode and not configured for passcodes. An
// email-shaped username is retried with its local part when the factor
// service has no enrollment for the full address.
func (s *StepUp) AuthenticateDuo(ctx context.Context, username, remoteAddr string) (*Result, error) {
	if s.settings.Mode != ModeDuo || s.settings.FactorFor() == DuoFactorPasscode {
		return nil, ErrNotSupported
	}
	if username == "" {
		return nil, ErrUnauthorized
	}

	email := ""
	usernames := []string{username}
	if at := strings.Index(username, "@"); at >= 0 {
		email = username
		usernames = append(usernames, username[:at])
	}

	factorMode := s.settings.FactorFor()
	valid := false
	matched := username
	for i, candidate := range usernames {
		var err error
		valid, err = s.factor.Authenticate(ctx, candidate, factorMode, remoteAddr, "")
		if errors.Is(err, ErrUnknownUsername) {
			if i == len(usernames)-1 {
				s.logger.WithField("username", candidate).
					Warn("Invalid duo username")
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: factor service: %v", ErrUpstreamUnavailable, err)
		}
		matched = candidate
		break
	}
	if !valid {
		s.logger.WithField("username", matched).
			Warn("Duo authentication not valid")
		return nil, ErrUnauthorized
	}

	groups := make(map[string]struct{})
	orgID, err := applyPlugin(ctx, s.plugin, "duo", matched, email,
		remoteAddr, nil, "", groups, s.logger)
	if err != nil {
		return nil, err
	}
	if orgID == "" {
		orgID = s.settings.DefaultOrgID
	}

	return s.reconciler.Reconcile(ctx, &ResolvedIdentity{
		Username: matched,
		Email:    email,
		OrgID:    orgID,
		Groups:   groupList(groups),
	}, ModeDuo, remoteAddr)
}
