package directory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Postgres implements Directory on a PostgreSQL database.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres directory over an existing connection
// pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(url string) (*Postgres, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return NewPostgres(db), nil
}

// DB exposes the underlying pool for health checks.
func (p *Postgres) DB() *sql.DB {
	return p.db
}

const userColumns = `id, org_id, name, COALESCE(email, ''), type, auth_type,
	COALESCE(groups, '{}'), COALESCE(yubico_id, ''), disabled, created_at`

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	var groups pq.StringArray
	err := row.Scan(&u.ID, &u.OrgID, &u.Name, &u.Email, &u.Type, &u.AuthType,
		&groups, &u.YubicoID, &u.Disabled, &u.Created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.Groups = []string(groups)
	return u, nil
}

// FindUser implements Directory.
func (p *Postgres) FindUser(ctx context.Context, name, authType string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE name = $1 AND auth_type = $2`, userColumns)
	return scanUser(p.db.QueryRowContext(ctx, query, name, authType))
}

// FindUserInOrg implements Directory.
func (p *Postgres) FindUserInOrg(ctx context.Context, orgID, name string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE org_id = $1 AND name = $2`, userColumns)
	return scanUser(p.db.QueryRowContext(ctx, query, orgID, name))
}

// CreateUser implements Directory.
func (p *Postgres) CreateUser(ctx context.Context, orgID string, u *User) (*User, error) {
	cp := *u
	cp.ID = uuid.NewString()
	cp.OrgID = orgID
	if cp.Type == "" {
		cp.Type = UserTypeClient
	}

	query := `
		INSERT INTO users (id, org_id, name, email, type, auth_type, groups, yubico_id, disabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false)
		RETURNING created_at
	`
	err := p.db.QueryRowContext(ctx, query, cp.ID, cp.OrgID, cp.Name, cp.Email,
		cp.Type, cp.AuthType, pq.Array(cp.Groups), cp.YubicoID).Scan(&cp.Created)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &cp, nil
}

// Commit implements Directory. Unknown field names are rejected rather than
// silently dropped.
func (p *Postgres) Commit(ctx context.Context, u *User, fields ...string) error {
	for _, field := range fields {
		var value interface{}
		switch field {
		case "email":
			value = u.Email
		case "groups":
			value = pq.Array(u.Groups)
		case "auth_type":
			value = u.AuthType
		case "yubico_id":
			value = u.YubicoID
		default:
			return fmt.Errorf("directory: unknown commit field %q", field)
		}

		query := fmt.Sprintf(`UPDATE users SET %s = $1 WHERE id = $2`, field)
		res, err := p.db.ExecContext(ctx, query, value, u.ID)
		if err != nil {
			return fmt.Errorf("failed to commit %s: %w", field, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// FindOrgByID implements Directory.
func (p *Postgres) FindOrgByID(ctx context.Context, id string) (*Organization, error) {
	org := &Organization{}
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name FROM organizations WHERE id = $1`, id).
		Scan(&org.ID, &org.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// FindOrgByName implements Directory.
func (p *Postgres) FindOrgByName(ctx context.Context, name string) (*Organization, error) {
	org := &Organization{}
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name FROM organizations WHERE name = $1`, name).
		Scan(&org.ID, &org.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// CreateOneTimeLink implements Directory. The link id doubles as the
// redemption token; redemption itself is handled by the key-view service,
// not here.
func (p *Postgres) CreateOneTimeLink(ctx context.Context, u *User) (*Link, error) {
	link := &Link{
		ID:      uuid.NewString(),
		UserID:  u.ID,
		OneTime: true,
	}
	link.ViewURL = "/key/" + link.ID

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO user_links (id, user_id, one_time, view_url)
		VALUES ($1, $2, $3, $4)
	`, link.ID, link.UserID, link.OneTime, link.ViewURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create login link: %w", err)
	}
	return link, nil
}
