// Package api provides the HTTP surface of the single sign-on
// orchestrator: the browser-facing request and callback routes, the
// second-factor redemption routes, and the direct Duo authentication
// route. Handlers translate the sso package's error taxonomy into HTTP
// statuses; redirect flows answer with plain HTTP errors while the
// JSON routes answer with an {error, error_msg} document.
package api
