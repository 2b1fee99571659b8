package directory

import "time"

// User is a local directory identity. The orchestrator reads and mutates
// only the fields below, always through Directory.Commit.
type User struct {
	ID       string    `json:"id"`
	OrgID    string    `json:"org_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email,omitempty"`
	Type     string    `json:"type"`
	AuthType string    `json:"auth_type"`
	Groups   []string  `json:"groups,omitempty"`
	YubicoID string    `json:"yubico_id,omitempty"`
	Disabled bool      `json:"disabled"`
	Created  time.Time `json:"created_at"`
}

// UserTypeClient is the user type assigned to SSO-provisioned users.
const UserTypeClient = "client"

// Organization is the entity new users attach to.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Link is a single-use login link scoped to a user. Redemption semantics
// belong to the directory; the orchestrator only propagates ViewURL.
type Link struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	OneTime bool   `json:"one_time"`
	ViewURL string `json:"view_url"`
}
