package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/gatekeeper/pkg/httputil"
	"github.com/platinummonkey/gatekeeper/pkg/observability"
	"github.com/platinummonkey/gatekeeper/pkg/sso"
)

// SSOHandlers handles the single sign-on HTTP routes
type SSOHandlers struct {
	settings  *sso.Settings
	initiator *sso.Initiator
	verifier  *sso.Verifier
	stepUp    *sso.StepUp
	metrics   *observability.Metrics
	logger    *observability.Logger
}

// NewSSOHandlers creates a new SSO handlers instance
func NewSSOHandlers(settings *sso.Settings, initiator *sso.Initiator,
	verifier *sso.Verifier, stepUp *sso.StepUp,
	metrics *observability.Metrics, logger *observability.Logger) *SSOHandlers {
	return &SSOHandlers{
		settings:  settings,
		initiator: initiator,
		verifier:  verifier,
		stepUp:    stepUp,
		metrics:   metrics,
		logger:    logger,
	}
}

// RegisterRoutes registers the SSO routes
func (h *SSOHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/sso/request", h.handleRequest).Methods("GET")
	router.HandleFunc("/sso/callback", h.handleCallback).Methods("GET")
	router.HandleFunc("/sso/duo", h.handleDuo).Methods("POST")
	router.HandleFunc("/sso/yubico", h.handleYubico).Methods("POST")
	router.HandleFunc("/sso/authenticate", h.handleAuthenticate).Methods("POST")
}

// familyLabel is the metric label for the active provider family.
func (h *SSOHandlers) familyLabel() string {
	family := h.settings.Mode.Family()
	if family == "" {
		return "none"
	}
	return string(family)
}

// handleRequest handles GET /sso/request
func (h *SSOHandlers) handleRequest(w http.ResponseWriter, r *http.Request) {
	res, err := h.initiator.Start(r.Context())
	if err != nil {
		h.metrics.RequestsInitiated.WithLabelValues(h.familyLabel(), "error").Inc()
		writeFlowError(w, err)
		return
	}
	h.metrics.RequestsInitiated.WithLabelValues(h.familyLabel(), "success").Inc()

	if len(res.Content) > 0 {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(res.Content)
		return
	}
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

// handleCallback handles GET /sso/callback
func (h *SSOHandlers) handleCallback(w http.ResponseWriter, r *http.Request) {
	out, err := h.verifier.Handle(r.Context(), r.URL.RawQuery, remoteIP(r))
	if err != nil {
		h.metrics.CallbacksTotal.WithLabelValues(h.familyLabel(), "error").Inc()
		writeFlowError(w, err)
		return
	}
	h.metrics.CallbacksTotal.WithLabelValues(h.familyLabel(), "success").Inc()

	if out.Challenge != nil {
		h.renderChallenge(w, out.Challenge)
		return
	}
	h.recordResult(out.Result)
	http.Redirect(w, r, out.Result.ViewURL, http.StatusFound)
}

// handleDuo handles POST /sso/duo
func (h *SSOHandlers) handleDuo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Passcode string `json:"passcode"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	res, err := h.stepUp.RedeemDuo(r.Context(), req.Token, req.Passcode, remoteIP(r))
	if err != nil {
		h.metrics.FactorAttempts.WithLabelValues("duo", "error").Inc()
		writeAPIError(w, err)
		return
	}
	h.metrics.FactorAttempts.WithLabelValues("duo", "success").Inc()
	h.recordResult(res)
	httputil.WriteSuccess(w, res)
}

// handleYubico handles POST /sso/yubico
func (h *SSOHandlers) handleYubico(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
		Key   string `json:"key"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	res, err := h.stepUp.RedeemYubico(r.Context(), req.Token, req.Key, remoteIP(r))
	if err != nil {
		h.metrics.FactorAttempts.WithLabelValues("yubico", "error").Inc()
		writeAPIError(w, err)
		return
	}
	h.metrics.FactorAttempts.WithLabelValues("yubico", "success").Inc()
	h.recordResult(res)
	httputil.WriteSuccess(w, res)
}

// handleAuthenticate handles POST /sso/authenticate
func (h *SSOHandlers) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	res, err := h.stepUp.AuthenticateDuo(r.Context(), req.Username, remoteIP(r))
	if err != nil {
		h.metrics.FactorAttempts.WithLabelValues("duo", "error").Inc()
		writeAPIError(w, err)
		return
	}
	h.metrics.FactorAttempts.WithLabelValues("duo", "success").Inc()
	h.recordResult(res)
	httputil.WriteSuccess(w, res)
}

// recordResult updates the reconciliation metrics for a terminal result.
func (h *SSOHandlers) recordResult(res *sso.Result) {
	if res.Created {
		h.metrics.ReconcileTotal.WithLabelValues("created").Inc()
		h.metrics.UsersCreated.Inc()
		return
	}
	h.metrics.ReconcileTotal.WithLabelValues("updated").Inc()
}

// remoteIP extracts the client address, honoring X-Forwarded-For.
func remoteIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
