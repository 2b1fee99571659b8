package sso

import (
	"context"
	"fmt"
	"sort"

	"github.com/platinummonkey/gatekeeper/pkg/audit"
	"github.com/platinummonkey/gatekeeper/pkg/directory"
	"github.com/platinummonkey/gatekeeper/pkg/observability"
)

// Reconciler maps a verified external identity onto a create-or-update
// decision against the local user directory and mints the one-time login
// link that completes the flow.
type Reconciler struct {
	dir      directory.Directory
	notifier Notifier
	auditLog audit.Logger
	logger   *observability.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(dir directory.Directory, notifier Notifier, auditLog audit.Logger,
	logger *observability.Logger) *Reconciler {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	return &Reconciler{
		dir:      dir,
		notifier: notifier,
		auditLog: auditLog,
		logger:   logger,
	}
}

// Reconcile turns a resolved identity into a local user and a single-use
// login link. Repeat calls with an identical identity and no new groups or
// key produce no additional commits or notifications.
func (r *Reconciler) Reconcile(ctx context.Context, identity *ResolvedIdentity,
	mode Mode, remoteAddr string) (*Result, error) {

	authType := string(mode)

	usr, err := r.dir.FindUser(ctx, identity.Username, authType)
	if err != nil {
		return nil, fmt.Errorf("directory lookup failed: %w", err)
	}

	if usr == nil {
		org, err := r.dir.FindOrgByID(ctx, identity.OrgID)
		if err != nil {
			return nil, fmt.Errorf("directory lookup failed: %w", err)
		}
		if org == nil {
			r.logger.WithField("org_id", identity.OrgID).
				Error("Organization for single sign-on does not exist")
			return nil, ErrOrgNotFound
		}

		usr, err = r.dir.FindUserInOrg(ctx, org.ID, identity.Username)
		if err != nil {
			return nil, fmt.Errorf("directory lookup failed: %w", err)
		}

		if usr == nil {
			return r.create(ctx, identity, org, authType, remoteAddr)
		}
	}

	return r.update(ctx, identity, usr, authType, remoteAddr)
}

func (r *Reconciler) create(ctx context.Context, identity *ResolvedIdentity,
	org *directory.Organization, authType, remoteAddr string) (*Result, error) {

	usr, err := r.dir.CreateUser(ctx, org.ID, &directory.User{
		Name:     identity.Username,
		Email:    identity.Email,
		Type:     directory.UserTypeClient,
		AuthType: authType,
		Groups:   identity.Groups,
		YubicoID: identity.YubicoID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	event := audit.NewEvent(audit.EventUserCreated, "User created with single sign-on")
	event.Username = usr.Name
	event.UserID = usr.ID
	event.OrgID = usr.OrgID
	event.RemoteAddr = remoteAddr
	r.auditLog.Log(ctx, event)

	r.notifier.OrgsUpdated(ctx)
	r.notifier.UsersUpdated(ctx, usr.OrgID)
	r.notifier.ServersUpdated(ctx)

	return r.finish(ctx, usr, remoteAddr, true)
}

func (r *Reconciler) update(ctx context.Context, identity *ResolvedIdentity,
	usr *directory.User, authType, remoteAddr string) (*Result, error) {

	if identity.YubicoID != "" && usr.YubicoID != "" && identity.YubicoID != usr.YubicoID {
		return nil, r.reject(ctx, usr, remoteAddr,
			"Login rejected, yubikey does not match bound key", ErrYubikeyMismatch)
	}

	if usr.Disabled {
		return nil, r.reject(ctx, usr, remoteAddr,
			"Login rejected, user is disabled", ErrForbidden)
	}

	changed := false

	if identity.YubicoID != "" && usr.YubicoID == "" {
		usr.YubicoID = identity.YubicoID
		if err := r.dir.Commit(ctx, usr, "yubico_id"); err != nil {
			return nil, fmt.Errorf("failed to commit yubico_id: %w", err)
		}
		changed = true
	}

	if newGroups := missingGroups(identity.Groups, usr.Groups); len(newGroups) > 0 {
		usr.Groups = unionGroups(usr.Groups, newGroups)
		if err := r.dir.Commit(ctx, usr, "groups"); err != nil {
			return nil, fmt.Errorf("failed to commit groups: %w", err)
		}
		changed = true
	}

	if usr.AuthType != authType {
		usr.AuthType = authType
		if err := r.dir.Commit(ctx, usr, "auth_type"); err != nil {
			return nil, fmt.Errorf("failed to commit auth_type: %w", err)
		}
		changed = true
	}

	if changed {
		r.notifier.UsersUpdated(ctx, usr.OrgID)
	}

	return r.finish(ctx, usr, remoteAddr, false)
}

func (r *Reconciler) reject(ctx context.Context, usr *directory.User,
	remoteAddr, message string, cause error) error {

	event := audit.NewEvent(audit.EventLoginRejected, message)
	event.Username = usr.Name
	event.UserID = usr.ID
	event.OrgID = usr.OrgID
	event.RemoteAddr = remoteAddr
	r.auditLog.Log(ctx, event)
	return cause
}

func (r *Reconciler) finish(ctx context.Context, usr *directory.User,
	remoteAddr string, created bool) (*Result, error) {

	link, err := r.dir.CreateOneTimeLink(ctx, usr)
	if err != nil {
		return nil, fmt.Errorf("failed to create login link: %w", err)
	}

	event := audit.NewEvent(audit.EventUserProfile, "User profile viewed from single sign-on")
	event.Username = usr.Name
	event.UserID = usr.ID
	event.OrgID = usr.OrgID
	event.RemoteAddr = remoteAddr
	r.auditLog.Log(ctx, event)

	return &Result{
		User:    usr,
		ViewURL: link.ViewURL,
		Created: created,
	}, nil
}

// missingGroups returns the groups present in resolved but absent from
// existing.
func missingGroups(resolved, existing []string) []string {
	have := make(map[string]struct{}, len(existing))
	for _, g := range existing {
		have[g] = struct{}{}
	}
	var missing []string
	for _, g := range resolved {
		if g == "" {
			continue
		}
		if _, ok := have[g]; !ok {
			missing = append(missing, g)
		}
	}
	return missing
}

func unionGroups(existing, add []string) []string {
	out := append(append([]string(nil), existing...), add...)
	sort.Strings(out)
	return out
}
