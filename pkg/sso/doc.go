// Package sso implements the single sign-on orchestration core: the
// two-phase state/token exchange with the external identity broker, callback
// signature verification, per-provider identity resolution, optional
// second-factor step-up, and reconciliation of the verified identity against
// the local user directory.
//
// # Flow
//
// A login starts with Initiator.Start, which mints a state/secret pair,
// registers the handshake with the identity broker, and stores a pending
// exchange under the state. The browser returns through Verifier.Handle,
// which consumes the pending exchange, checks the HMAC-SHA512 signature over
// the callback query, and dispatches to the resolver for the provider
// family. When the active mode requires a second factor the StepUp
// controller issues a fresh single-use token and the flow completes through
// RedeemDuo or RedeemYubico. Every path terminates in Reconciler.Reconcile,
// which creates or updates the local user and returns a one-time login
// link.
//
// # Tokens
//
// Exchange tokens are 64-character random identifiers with strict
// single-use semantics: ExchangeStore.Consume atomically retrieves and
// deletes, so a second redemption of the same token observes ErrNotFound.
// Consuming before verifying the signature is deliberate: it guarantees at
// most one successful verification per issued state even under concurrent
// replay attempts.
//
// External collaborators (broker, factor services, policy plugin, user
// directory) are consumed through the interfaces in this package; concrete
// clients live in pkg/providers and pkg/directory.
package sso
