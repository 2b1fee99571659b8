package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/gatekeeper/pkg/httputil"
	"github.com/platinummonkey/gatekeeper/pkg/sso"
)

// Error codes returned in the JSON error document.
const (
	codeTokenInvalid    = "token_invalid"
	codePasscodeInvalid = "passcode_invalid"
	codeDuoFailed       = "duo_failed"
	codeYubikeyInvalid  = "yubikey_invalid"
	codeUnauthorized    = "unauthorized"
	codeUserDisabled    = "user_disabled"
)

// errorDoc is the JSON error body for the factor redemption routes.
type errorDoc struct {
	Error    string `json:"error"`
	ErrorMsg string `json:"error_msg"`
}

// statusForError maps the sso error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, sso.ErrNotSupported),
		errors.Is(err, sso.ErrSubscriptionRequired),
		errors.Is(err, sso.ErrOrgNotFound):
		return http.StatusMethodNotAllowed
	case errors.Is(err, sso.ErrInvalidState):
		return http.StatusNotFound
	case errors.Is(err, sso.ErrInvalidSignature),
		errors.Is(err, sso.ErrUnauthorized),
		errors.Is(err, sso.ErrInvalidToken),
		errors.Is(err, sso.ErrInvalidPasscode),
		errors.Is(err, sso.ErrFactorFailed),
		errors.Is(err, sso.ErrKeyInvalid),
		errors.Is(err, sso.ErrYubikeyMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, sso.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// docForError maps a factor-route error onto its JSON error document, or
// nil when the error should be reported as a bare HTTP status instead.
func docForError(err error) *errorDoc {
	switch {
	case errors.Is(err, sso.ErrInvalidToken):
		return &errorDoc{codeTokenInvalid, "Token is invalid"}
	case errors.Is(err, sso.ErrInvalidPasscode):
		return &errorDoc{codePasscodeInvalid, "Passcode is invalid"}
	case errors.Is(err, sso.ErrFactorFailed):
		return &errorDoc{codeDuoFailed, "Duo authentication failed"}
	case errors.Is(err, sso.ErrKeyInvalid),
		errors.Is(err, sso.ErrYubikeyMismatch):
		return &errorDoc{codeYubikeyInvalid, "YubiKey is invalid"}
	case errors.Is(err, sso.ErrUnauthorized):
		return &errorDoc{codeUnauthorized, "Authentication failed"}
	case errors.Is(err, sso.ErrForbidden):
		return &errorDoc{codeUserDisabled, "User is disabled"}
	default:
		return nil
	}
}

// writeFlowError answers a redirect-flow failure with a bare HTTP error.
func writeFlowError(w http.ResponseWriter, err error) {
	http.Error(w, http.StatusText(statusForError(err)), statusForError(err))
}

// writeAPIError answers a JSON-flow failure with the error document when
// the taxonomy defines one, or a bare status otherwise.
func writeAPIError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if doc := docForError(err); doc != nil {
		httputil.WriteJSON(w, status, doc)
		return
	}
	httputil.WriteErrorMessage(w, status, http.StatusText(status))
}
