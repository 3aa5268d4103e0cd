package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/MrEthical07/bitguard/permission"
	"github.com/MrEthical07/bitguard/store"
)

// Store implements store.PrincipalStore, store.PrincipalDirectory, store.GrantStore and
// store.ModuleCatalog.
type Store struct {
	db *sql.DB
}

var (
	_ store.PrincipalStore     = (*Store)(nil)
	_ store.PrincipalDirectory = (*Store)(nil)
	_ store.GrantStore         = (*Store)(nil)
	_ store.ModuleCatalog      = (*Store)(nil)
)

// Open connects with the pgx driver and applies pool defaults.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// classify maps driver errors onto store sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ForeignKeyViolation:
			return store.ErrNotFound
		case pgerrcode.UniqueViolation:
			return store.ErrConflict
		}
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

const principalColumns = `id, identifier, password_hash, is_active, current_refresh_token, refresh_token_expires_at`

func scanPrincipal(row *sql.Row) (store.Principal, error) {
	var (
		p       store.Principal
		refresh sql.NullString
		expires sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Identifier, &p.PasswordHash, &p.Active, &refresh, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Principal{}, store.ErrNotFound
	}
	if err != nil {
		return store.Principal{}, classify(err)
	}
	p.RefreshToken = refresh.String
	if expires.Valid {
		p.RefreshTokenExpiresAt = expires.Time
	}
	return p, nil
}

func (s *Store) FindPrincipalByID(ctx context.Context, id int64) (store.Principal, error) {
	return scanPrincipal(s.db.QueryRowContext(ctx, `select `+principalColumns+` from principals where id=$1`, id))
}

func (s *Store) FindPrincipalByIdentifier(ctx context.Context, identifier string) (store.Principal, error) {
	return scanPrincipal(s.db.QueryRowContext(ctx, `select `+principalColumns+` from principals where identifier=$1`, identifier))
}

func (s *Store) exists(ctx context.Context, id int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `select 1 from principals where id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return classify(err)
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetRefreshToken(ctx context.Context, id int64, refreshToken string, expiresAt time.Time) error {
	return affectedOrNotFound(s.db.ExecContext(ctx, `
		update principals
		set current_refresh_token=$2, refresh_token_expires_at=$3
		where id=$1
	`, id, refreshToken, expiresAt.UTC()))
}

// SwapRefreshToken is one guarded UPDATE; a zero row count is disambiguated afterwards
// between a lost race and a missing principal.
func (s *Store) SwapRefreshToken(ctx context.Context, id int64, current, next string, expiresAt time.Time) (bool, error) {
	if current == "" {
		return false, s.exists(ctx, id)
	}
	res, err := s.db.ExecContext(ctx, `
		update principals
		set current_refresh_token=$3, refresh_token_expires_at=$4
		where id=$1 and current_refresh_token=$2
	`, id, current, next, expiresAt.UTC())
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify(err)
	}
	if n == 1 {
		return true, nil
	}
	return false, s.exists(ctx, id)
}

func (s *Store) ClearRefreshToken(ctx context.Context, id int64) error {
	return affectedOrNotFound(s.db.ExecContext(ctx, `
		update principals
		set current_refresh_token=null, refresh_token_expires_at=null
		where id=$1
	`, id))
}

func (s *Store) CreatePrincipal(ctx context.Context, identifier, passwordHash string, active bool) (store.Principal, error) {
	if identifier == "" {
		return store.Principal{}, fmt.Errorf("%w: empty identifier", store.ErrConflict)
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		insert into principals(identifier, password_hash, is_active)
		values ($1,$2,$3)
		returning id
	`, identifier, passwordHash, active).Scan(&id)
	if err != nil {
		return store.Principal{}, classify(err)
	}
	return store.Principal{ID: id, Identifier: identifier, PasswordHash: passwordHash, Active: active}, nil
}

func (s *Store) SetPrincipalActive(ctx context.Context, id int64, active bool) error {
	return affectedOrNotFound(s.db.ExecContext(ctx, `update principals set is_active=$2 where id=$1`, id, active))
}

func (s *Store) FindGrant(ctx context.Context, principalID int64, module string) (permission.Bits, bool, error) {
	var raw int
	err := s.db.QueryRowContext(ctx, `
		select permission_mask from grants where principal_id=$1 and module_name=$2
	`, principalID, module).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return permission.None, false, nil
	}
	if err != nil {
		return permission.None, false, classify(err)
	}
	bits, err := permission.FromInt(raw)
	if err != nil {
		return permission.None, false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return bits, true, nil
}

func (s *Store) UpsertGrant(ctx context.Context, principalID int64, module string, bits permission.Bits) error {
	_, err := s.db.ExecContext(ctx, `
		insert into grants(principal_id, module_name, permission_mask)
		values ($1,$2,$3)
		on conflict (principal_id, module_name) do update
		set permission_mask = excluded.permission_mask
	`, principalID, module, bits.Raw())
	return classify(err)
}

// ModifyGrant applies (mask | set) &^ clear in one upsert, so concurrent edits of the
// same row compose instead of overwriting each other.
func (s *Store) ModifyGrant(ctx context.Context, principalID int64, module string, set, clear permission.Bits) (permission.Bits, error) {
	var raw int
	err := s.db.QueryRowContext(ctx, `
		insert into grants(principal_id, module_name, permission_mask)
		values ($1, $2, $3::smallint & ~$4::smallint)
		on conflict (principal_id, module_name) do update
		set permission_mask = (grants.permission_mask | $3::smallint) & ~$4::smallint
		returning permission_mask
	`, principalID, module, set.Raw(), clear.Raw()).Scan(&raw)
	if err != nil {
		return permission.None, classify(err)
	}
	bits, err := permission.FromInt(raw)
	if err != nil {
		return permission.None, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return bits, nil
}

func (s *Store) DeleteGrant(ctx context.Context, principalID int64, module string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `delete from grants where principal_id=$1 and module_name=$2`, principalID, module)
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

func (s *Store) ListGrants(ctx context.Context, principalID int64) (permission.Set, error) {
	rows, err := s.db.QueryContext(ctx, `select module_name, permission_mask from grants where principal_id=$1`, principalID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := permission.Set{}
	for rows.Next() {
		var (
			module string
			raw    int
		)
		if err := rows.Scan(&module, &raw); err != nil {
			return nil, classify(err)
		}
		bits, err := permission.FromInt(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: grant %q: %v", store.ErrUnavailable, module, err)
		}
		out[module] = bits
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (s *Store) IsAdminOnly(ctx context.Context, module string) (bool, error) {
	var adminOnly bool
	err := s.db.QueryRowContext(ctx, `select admin_only from modules where name=$1`, module).Scan(&adminOnly)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(err)
	}
	return adminOnly, nil
}

// SetAdminOnly registers module metadata, creating the row if needed.
func (s *Store) SetAdminOnly(ctx context.Context, module string, adminOnly bool) error {
	_, err := s.db.ExecContext(ctx, `
		insert into modules(name, admin_only)
		values ($1,$2)
		on conflict (name) do update
		set admin_only = excluded.admin_only
	`, module, adminOnly)
	return classify(err)
}

// Ping measures a round trip to the database.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return 0, classify(err)
	}
	return time.Since(start), nil
}
