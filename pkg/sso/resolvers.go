package sso

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/platinummonkey/gatekeeper/pkg/directory"
	"github.com/platinummonkey/gatekeeper/pkg/observability"
)

// Resolver turns the verified callback fields of one provider family into
// a canonical identity.
type Resolver interface {
	Resolve(ctx context.Context, fields url.Values, remoteAddr string) (*ResolvedIdentity, error)
}

// applyPlugin runs the policy plugin hook and folds its result into the
// provisional resolution: an invalid verdict fails the login, a returned
// org id overrides the provisional one, and returned groups union into the
// set.
func applyPlugin(ctx context.Context, plugin PolicyPlugin, ssoType, username, email,
	remoteAddr string, orgNames []string, orgID string, groups map[string]struct{},
	logger *observability.Logger) (string, error) {

	res, err := plugin.Authenticate(ctx, ssoType, username, email, remoteAddr, orgNames)
	if err != nil {
		return "", fmt.Errorf("%w: policy plugin: %v", ErrUpstreamUnavailable, err)
	}
	if !res.Valid {
		logger.WithFields(map[string]interface{}{
			"sso_type": ssoType,
			"username": username,
		}).Warn("Plugin authentication not valid")
		return "", ErrUnauthorized
	}

	if res.OrgID != "" {
		orgID = res.OrgID
	}
	for _, g := range res.Groups {
		if g != "" {
			groups[g] = struct{}{}
		}
	}
	return orgID, nil
}

func groupList(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for g := range set {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// GoogleModeGroups attaches the verifier's group names directly to the
// identity; any other value probes them as organization names.
const GoogleModeGroups = "groups"

// GoogleResolver handles the federated-identity family: the username is an
// email address verified against an external group-membership service.
type GoogleResolver struct {
	settings *Settings
	verifier GroupVerifier
	plugin   PolicyPlugin
	dir      directory.Directory
	logger   *observability.Logger
}

// NewGoogleResolver creates a GoogleResolver.
func NewGoogleResolver(settings *Settings, verifier GroupVerifier, plugin PolicyPlugin,
	dir directory.Directory, logger *observability.Logger) *GoogleResolver {
	return &GoogleResolver{
		settings: settings,
		verifier: verifier,
		plugin:   plugin,
		dir:      dir,
		logger:   logger,
	}
}

// Resolve implements Resolver.
func (r *GoogleResolver) Resolve(ctx context.Context, fields url.Values, remoteAddr string) (*ResolvedIdentity, error) {
	username := fields.Get("username")
	if username == "" {
		return nil, ErrUnauthorized
	}
	email := username

	valid, verifierGroups, err := r.verifier.Verify(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: group verifier: %v", ErrUpstreamUnavailable, err)
	}
	if !valid {
		return nil, ErrUnauthorized
	}

	orgID := r.settings.DefaultOrgID
	groups := make(map[string]struct{})

	orgID, err = applyPlugin(ctx, r.plugin, "google", username, email,
		remoteAddr, nil, orgID, groups, r.logger)
	if err != nil {
		return nil, err
	}

	if r.settings.GoogleMode == GoogleModeGroups {
		for _, g := range verifierGroups {
			if g != "" {
				groups[g] = struct{}{}
			}
		}
	} else {
		orgID, err = probeOrgs(ctx, r.dir, orgID, verifierGroups,
			r.logger, "google", username, email)
		if err != nil {
			return nil, err
		}
	}

	return &ResolvedIdentity{
		Username: username,
		Email:    email,
		OrgID:    orgID,
		Groups:   groupList(groups),
	}, nil
}

// SAMLResolver handles the SAML family: username and email come straight
// from fields, organization candidates from the "org" field, groups from
// the "groups" field.
type SAMLResolver struct {
	settings *Settings
	plugin   PolicyPlugin
	dir      directory.Directory
	logger   *observability.Logger
}

// NewSAMLResolver creates a SAMLResolver.
func NewSAMLResolver(settings *Settings, plugin PolicyPlugin, dir directory.Directory,
	logger *observability.Logger) *SAMLResolver {
	return &SAMLResolver{
		settings: settings,
		plugin:   plugin,
		dir:      dir,
		logger:   logger,
	}
}

// Resolve implements Resolver.
func (r *SAMLResolver) Resolve(ctx context.Context, fields url.Values, remoteAddr string) (*ResolvedIdentity, error) {
	username := fields.Get("username")
	if username == "" {
		return nil, ErrUnauthorized
	}
	email := fields.Get("email")

	orgNames := splitNames(fields.Get("org"))

	groups := make(map[string]struct{})
	for _, g := range splitNames(fields.Get("groups")) {
		groups[g] = struct{}{}
	}

	orgID, err := probeOrgs(ctx, r.dir, r.settings.DefaultOrgID, orgNames,
		r.logger, "saml", username, email)
	if err != nil {
		return nil, err
	}

	orgID, err = applyPlugin(ctx, r.plugin, "saml", username, email,
		remoteAddr, orgNames, orgID, groups, r.logger)
	if err != nil {
		return nil, err
	}

	return &ResolvedIdentity{
		Username: username,
		Email:    email,
		OrgID:    orgID,
		Groups:   groupList(groups),
	}, nil
}

// SlackResolver handles the team-restricted family: the callback's "team"
// must exactly match the configured team, and organization candidates come
// comma-separated from the "orgs" field.
type SlackResolver struct {
	settings *Settings
	plugin   PolicyPlugin
	dir      directory.Directory
	logger   *observability.Logger
}

// NewSlackResolver creates a SlackResolver.
func NewSlackResolver(settings *Settings, plugin PolicyPlugin, dir directory.Directory,
	logger *observability.Logger) *SlackResolver {
	return &SlackResolver{
		settings: settings,
		plugin:   plugin,
		dir:      dir,
		logger:   logger,
	}
}

// Resolve implements Resolver.
func (r *SlackResolver) Resolve(ctx context.Context, fields url.Values, remoteAddr string) (*ResolvedIdentity, error) {
	username := fields.Get("username")
	if username == "" {
		return nil, ErrUnauthorized
	}

	if fields.Get("team") != r.settings.SlackTeam {
		r.logger.WithField("username", username).
			Warn("Slack team does not match configured team")
		return nil, ErrUnauthorized
	}

	orgNames := splitNames(fields.Get("orgs"))

	orgID, err := probeOrgs(ctx, r.dir, r.settings.DefaultOrgID, orgNames,
		r.logger, "slack", username, "")
	if err != nil {
		return nil, err
	}

	groups := make(map[string]struct{})
	orgID, err = applyPlugin(ctx, r.plugin, "slack", username, "",
		remoteAddr, orgNames, orgID, groups, r.logger)
	if err != nil {
		return nil, err
	}

	return &ResolvedIdentity{
		Username: username,
		OrgID:    orgID,
		Groups:   groupList(groups),
	}, nil
}
