package sso

import (
	"context"
	"sort"
	"strings"

	"github.com/platinummonkey/gatekeeper/pkg/directory"
	"github.com/platinummonkey/gatekeeper/pkg/observability"
)

// probeOrgs resolves a list of candidate organization names to an
// organization id: blanks are dropped, the remainder is sorted ascending,
// and each name is tried in order against the directory. The first match
// wins. When no name matches, the fallback id is kept and a warning is
// logged; a missing organization is never fatal here.
func probeOrgs(ctx context.Context, dir directory.Directory, fallbackOrgID string,
	names []string, logger *observability.Logger, ssoType, username, email string) (string, error) {

	candidates := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" {
			candidates = append(candidates, name)
		}
	}
	sort.Strings(candidates)

	if len(candidates) == 0 {
		return fallbackOrgID, nil
	}

	for _, name := range candidates {
		org, err := dir.FindOrgByName(ctx, name)
		if err != nil {
			return "", err
		}
		if org != nil {
			return org.ID, nil
		}
	}

	logger.WithFields(map[string]interface{}{
		"sso_type":   ssoType,
		"user_name":  username,
		"user_email": email,
		"org_names":  candidates,
	}).Warn("Supplied organization names do not exist")

	return fallbackOrgID, nil
}

// splitNames splits a multi-valued callback field on ";" when present,
// otherwise on ",", dropping blank entries.
func splitNames(raw string) []string {
	if raw == "" {
		return nil
	}
	sep := ","
	if strings.Contains(raw, ";") {
		sep = ";"
	}
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
