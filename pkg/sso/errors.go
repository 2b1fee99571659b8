package sso

import "errors"

// Failure taxonomy. Every orchestration failure wraps one of these
// sentinels; callers map them to transport-level responses with
// errors.Is.
var (
	// ErrNotSupported means the active mode does not accept the requested
	// operation. Terminal for the request, not for the service.
	ErrNotSupported = errors.New("sso: not supported for active mode")

	// ErrSubscriptionRequired means the broker rejected the handshake
	// because the operator's subscription is inactive.
	ErrSubscriptionRequired = errors.New("sso: active subscription required")

	// ErrUpstreamUnavailable means the broker or an external provider
	// failed with a network error or unexpected status.
	ErrUpstreamUnavailable = errors.New("sso: upstream unavailable")

	// ErrInvalidState means the callback state was absent at consume time:
	// already consumed, expired, or never issued.
	ErrInvalidState = errors.New("sso: invalid or expired state")

	// ErrInvalidToken is the step-up analogue of ErrInvalidState.
	ErrInvalidToken = errors.New("sso: invalid or expired token")

	// ErrInvalidSignature means the callback query did not match the
	// HMAC-SHA512 signature under the stored secret.
	ErrInvalidSignature = errors.New("sso: callback signature mismatch")

	// ErrUnauthorized means a provider, policy plugin, or factor service
	// rejected the identity.
	ErrUnauthorized = errors.New("sso: identity rejected")

	// ErrFactorFailed means the Duo factor service declined a push or
	// phone confirmation.
	ErrFactorFailed = errors.New("sso: second factor failed")

	// ErrUnknownUsername means the factor service has no enrollment for
	// the username. The direct Duo flow uses it to fall back to the local
	// part of an email-shaped username.
	ErrUnknownUsername = errors.New("sso: username not enrolled with factor service")

	// ErrInvalidPasscode means the supplied passcode was rejected.
	ErrInvalidPasscode = errors.New("sso: passcode invalid")

	// ErrKeyInvalid means the hardware key material failed verification.
	ErrKeyInvalid = errors.New("sso: security key invalid")

	// ErrYubikeyMismatch means the verified key differs from the key
	// already bound to the user. The stored binding is never overwritten.
	ErrYubikeyMismatch = errors.New("sso: security key does not match enrolled key")

	// ErrForbidden means the local user is disabled.
	ErrForbidden = errors.New("sso: user disabled")

	// ErrOrgNotFound means the resolved organization does not exist in the
	// directory.
	ErrOrgNotFound = errors.New("sso: organization not found")
)

// Exchange store sentinels.
var (
	// ErrConflict is returned by Put when the identifier already exists.
	ErrConflict = errors.New("sso: exchange identifier already exists")

	// ErrNotFound is returned by Consume when no record exists under the
	// identifier.
	ErrNotFound = errors.New("sso: exchange record not found")
)
