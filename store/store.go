// Package store defines the persistence contracts bitguard consumes: principal records with
// their single refresh-token slot, per-module grants, and module metadata. Backends live in
// subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/bitguard/permission"
)

var (
	// ErrNotFound is returned when a principal or grant does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrUnavailable wraps backend failures (network, driver, script errors).
	ErrUnavailable = errors.New("store: backend unavailable")
	// ErrConflict is returned when a unique identifier is already taken.
	ErrConflict = errors.New("store: conflict")
)

// Principal is the persisted identity record. RefreshToken is the single live refresh slot;
// an empty value means no refresh chain is active.
type Principal struct {
	ID                    int64
	Identifier            string
	PasswordHash          string
	Active                bool
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// HasRefreshSlot reports whether a refresh token is currently stored.
func (p Principal) HasRefreshSlot() bool {
	return p.RefreshToken != ""
}

// PrincipalStore reads principals and mutates their refresh slot.
type PrincipalStore interface {
	FindPrincipalByID(ctx context.Context, id int64) (Principal, error)
	FindPrincipalByIdentifier(ctx context.Context, identifier string) (Principal, error)

	// SetRefreshToken unconditionally replaces the slot.
	SetRefreshToken(ctx context.Context, id int64, refreshToken string, expiresAt time.Time) error

	// SwapRefreshToken atomically replaces the slot with next only if it currently equals
	// current. It reports false, with a nil error, when the slot held a different value or
	// was empty, and ErrNotFound when the principal does not exist.
	SwapRefreshToken(ctx context.Context, id int64, current, next string, expiresAt time.Time) (bool, error)

	// ClearRefreshToken empties the slot and its expiry. Clearing an empty slot is not an error.
	ClearRefreshToken(ctx context.Context, id int64) error
}

// PrincipalDirectory provisions principals. Engines do not need it; servers and tooling do.
type PrincipalDirectory interface {
	CreatePrincipal(ctx context.Context, identifier, passwordHash string, active bool) (Principal, error)
	SetPrincipalActive(ctx context.Context, id int64, active bool) error
}

// GrantStore persists (principal, module) -> bits rows with upsert semantics.
type GrantStore interface {
	// FindGrant reports found=false when no row exists, which is distinct from a zero row.
	FindGrant(ctx context.Context, principalID int64, module string) (bits permission.Bits, found bool, err error)
	UpsertGrant(ctx context.Context, principalID int64, module string, bits permission.Bits) error

	// ModifyGrant atomically applies (current | set) &^ clear to the row, creating it from
	// None when absent, and returns the bits written. ErrNotFound means the principal does
	// not exist.
	ModifyGrant(ctx context.Context, principalID int64, module string, set, clear permission.Bits) (permission.Bits, error)
	DeleteGrant(ctx context.Context, principalID int64, module string) (bool, error)
	// ListGrants fails with ErrUnavailable on a corrupt row, the same as FindGrant.
	ListGrants(ctx context.Context, principalID int64) (permission.Set, error)
}

// ModuleCatalog answers module metadata questions.
type ModuleCatalog interface {
	IsAdminOnly(ctx context.Context, module string) (bool, error)
}

// StaticCatalog is an in-memory ModuleCatalog listing admin-only modules.
type StaticCatalog map[string]struct{}

// NewStaticCatalog returns a catalog flagging the given modules as admin-only.
func NewStaticCatalog(adminOnly ...string) StaticCatalog {
	c := make(StaticCatalog, len(adminOnly))
	for _, m := range adminOnly {
		if m != "" {
			c[m] = struct{}{}
		}
	}
	return c
}

// IsAdminOnly implements ModuleCatalog.
func (c StaticCatalog) IsAdminOnly(_ context.Context, module string) (bool, error) {
	_, ok := c[module]
	return ok, nil
}
