package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/bitguard/permission"
	"github.com/MrEthical07/bitguard/store"
)

// DefaultPrefix namespaces keys when New is given an empty prefix.
const DefaultPrefix = "bitguard"

const (
	fieldIdentifier   = "identifier"
	fieldPasswordHash = "password_hash"
	fieldActive       = "active"
	fieldRefreshToken = "refresh_token"
	fieldRefreshExp   = "refresh_expires_at"
)

// Store implements store.PrincipalStore, store.PrincipalDirectory, store.GrantStore and
// store.ModuleCatalog.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

var (
	_ store.PrincipalStore     = (*Store)(nil)
	_ store.PrincipalDirectory = (*Store)(nil)
	_ store.GrantStore         = (*Store)(nil)
	_ store.ModuleCatalog      = (*Store)(nil)
)

// New returns a Store using client and the given key prefix.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) principalKey(id int64) string {
	return s.principalKeyPrefix() + strconv.FormatInt(id, 10)
}

func (s *Store) principalKeyPrefix() string {
	return s.prefix + ":p:"
}

func (s *Store) identifierKey(identifier string) string {
	return s.prefix + ":pi:" + identifier
}

func (s *Store) sequenceKey() string {
	return s.prefix + ":pseq"
}

func (s *Store) grantsKey(id int64) string {
	return s.prefix + ":g:" + strconv.FormatInt(id, 10)
}

func (s *Store) adminModulesKey() string {
	return s.prefix + ":admin_modules"
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

// FindPrincipalByID loads the principal hash.
func (s *Store) FindPrincipalByID(ctx context.Context, id int64) (store.Principal, error) {
	fields, err := s.redis.HGetAll(ctx, s.principalKey(id)).Result()
	if err != nil {
		return store.Principal{}, unavailable(err)
	}
	if len(fields) == 0 {
		return store.Principal{}, store.ErrNotFound
	}
	return decodePrincipal(id, fields)
}

// FindPrincipalByIdentifier resolves the identifier index then loads the principal.
func (s *Store) FindPrincipalByIdentifier(ctx context.Context, identifier string) (store.Principal, error) {
	id, err := s.redis.Get(ctx, s.identifierKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.Principal{}, store.ErrNotFound
		}
		return store.Principal{}, unavailable(err)
	}
	return s.FindPrincipalByID(ctx, id)
}

func decodePrincipal(id int64, fields map[string]string) (store.Principal, error) {
	p := store.Principal{
		ID:           id,
		Identifier:   fields[fieldIdentifier],
		PasswordHash: fields[fieldPasswordHash],
		Active:       fields[fieldActive] == "1",
		RefreshToken: fields[fieldRefreshToken],
	}
	if raw := fields[fieldRefreshExp]; raw != "" && raw != "0" {
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return store.Principal{}, fmt.Errorf("%w: corrupt refresh expiry for principal %d", store.ErrUnavailable, id)
		}
		p.RefreshTokenExpiresAt = time.Unix(unix, 0)
	}
	return p, nil
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func expiryField(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.Unix(), 10)
}

// SetRefreshToken replaces the refresh slot unconditionally.
func (s *Store) SetRefreshToken(ctx context.Context, id int64, refreshToken string, expiresAt time.Time) error {
	res, err := setRefreshLua.Run(ctx, s.redis, []string{s.principalKey(id)}, refreshToken, expiryField(expiresAt)).Int64()
	if err != nil {
		return unavailable(err)
	}
	if res == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SwapRefreshToken replaces the slot only if it equals current.
func (s *Store) SwapRefreshToken(ctx context.Context, id int64, current, next string, expiresAt time.Time) (bool, error) {
	res, err := swapRefreshLua.Run(ctx, s.redis, []string{s.principalKey(id)}, current, next, expiryField(expiresAt)).Int64()
	if err != nil {
		return false, unavailable(err)
	}
	switch res {
	case swapStatusSwapped:
		return true, nil
	case swapStatusMismatch:
		return false, nil
	case swapStatusMissing:
		return false, store.ErrNotFound
	default:
		return false, fmt.Errorf("%w: unknown swap script status %d", store.ErrUnavailable, res)
	}
}

// ClearRefreshToken empties the slot and its expiry.
func (s *Store) ClearRefreshToken(ctx context.Context, id int64) error {
	res, err := setRefreshLua.Run(ctx, s.redis, []string{s.principalKey(id)}, "", "0").Int64()
	if err != nil {
		return unavailable(err)
	}
	if res == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CreatePrincipal allocates an id and writes the principal and its identifier index.
func (s *Store) CreatePrincipal(ctx context.Context, identifier, passwordHash string, active bool) (store.Principal, error) {
	if identifier == "" {
		return store.Principal{}, fmt.Errorf("%w: empty identifier", store.ErrConflict)
	}
	id, err := createPrincipalLua.Run(
		ctx,
		s.redis,
		[]string{s.identifierKey(identifier), s.sequenceKey()},
		s.principalKeyPrefix(),
		identifier,
		passwordHash,
		boolFlag(active),
	).Int64()
	if err != nil {
		return store.Principal{}, unavailable(err)
	}
	if id == 0 {
		return store.Principal{}, store.ErrConflict
	}
	return store.Principal{ID: id, Identifier: identifier, PasswordHash: passwordHash, Active: active}, nil
}

// SetPrincipalActive flips the active flag.
func (s *Store) SetPrincipalActive(ctx context.Context, id int64, active bool) error {
	res, err := setFieldLua.Run(ctx, s.redis, []string{s.principalKey(id)}, fieldActive, boolFlag(active)).Int64()
	if err != nil {
		return unavailable(err)
	}
	if res == 0 {
		return store.ErrNotFound
	}
	return nil
}

// FindGrant reads one module mask.
func (s *Store) FindGrant(ctx context.Context, principalID int64, module string) (permission.Bits, bool, error) {
	raw, err := s.redis.HGet(ctx, s.grantsKey(principalID), module).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return permission.None, false, nil
		}
		return permission.None, false, unavailable(err)
	}
	bits, err := permission.FromInt(raw)
	if err != nil {
		return permission.None, false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return bits, true, nil
}

// UpsertGrant writes one module mask for an existing principal.
func (s *Store) UpsertGrant(ctx context.Context, principalID int64, module string, bits permission.Bits) error {
	res, err := upsertGrantLua.Run(
		ctx,
		s.redis,
		[]string{s.principalKey(principalID), s.grantsKey(principalID)},
		module,
		bits.Raw(),
	).Int64()
	if err != nil {
		return unavailable(err)
	}
	if res == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ModifyGrant ORs set into and clears clear from one module mask in a single script run.
func (s *Store) ModifyGrant(ctx context.Context, principalID int64, module string, set, clear permission.Bits) (permission.Bits, error) {
	res, err := modifyGrantLua.Run(
		ctx,
		s.redis,
		[]string{s.principalKey(principalID), s.grantsKey(principalID)},
		module,
		set.Raw(),
		clear.Raw(),
	).Int64()
	if err != nil {
		return permission.None, unavailable(err)
	}
	switch res {
	case -1:
		return permission.None, store.ErrNotFound
	case -2:
		return permission.None, fmt.Errorf("%w: corrupt grant %q for principal %d", store.ErrUnavailable, module, principalID)
	}
	bits, err := permission.FromInt(int(res))
	if err != nil {
		return permission.None, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return bits, nil
}

// DeleteGrant removes one module row and reports whether it existed.
func (s *Store) DeleteGrant(ctx context.Context, principalID int64, module string) (bool, error) {
	n, err := s.redis.HDel(ctx, s.grantsKey(principalID), module).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// ListGrants returns every module row for the principal. A corrupt row fails the whole
// read with store.ErrUnavailable.
func (s *Store) ListGrants(ctx context.Context, principalID int64) (permission.Set, error) {
	fields, err := s.redis.HGetAll(ctx, s.grantsKey(principalID)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	out := make(permission.Set, len(fields))
	for module, raw := range fields {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: grant %q: %v", store.ErrUnavailable, module, err)
		}
		bits, err := permission.FromInt(n)
		if err != nil {
			return nil, fmt.Errorf("%w: grant %q: %v", store.ErrUnavailable, module, err)
		}
		out[module] = bits
	}
	return out, nil
}

// IsAdminOnly reports membership in the admin-only module set.
func (s *Store) IsAdminOnly(ctx context.Context, module string) (bool, error) {
	ok, err := s.redis.SIsMember(ctx, s.adminModulesKey(), module).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

// SetAdminOnly adds or removes module from the admin-only set.
func (s *Store) SetAdminOnly(ctx context.Context, module string, adminOnly bool) error {
	var err error
	if adminOnly {
		err = s.redis.SAdd(ctx, s.adminModulesKey(), module).Err()
	} else {
		err = s.redis.SRem(ctx, s.adminModulesKey(), module).Err()
	}
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Ping measures a round trip to Redis.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, unavailable(err)
	}
	return time.Since(start), nil
}
