// Package directory is the local user/organization collaborator of the SSO
// orchestrator. The Directory interface covers exactly the operations the
// reconciler invokes: user lookup by name and auth type, lookup within an
// organization, creation, per-field commit, organization resolution by id
// or name, and minting of single-use login links.
//
// Postgres is the production implementation (database/sql + lib/pq). Memory
// is an in-process double for tests and single-node development. Cached
// wraps any Directory with an LRU over FindOrgByName, since the ordered
// organization probe hits the same small name set on every login.
package directory
