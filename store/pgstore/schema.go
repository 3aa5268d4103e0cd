package pgstore

import (
	"context"
	"fmt"

	"github.com/MrEthical07/bitguard/store"
)

// schema is idempotent; Migrate may run on every start.
var schema = []string{
	`create table if not exists principals (
		id bigserial primary key,
		identifier text not null unique,
		password_hash text not null,
		is_active boolean not null default true,
		current_refresh_token text null,
		refresh_token_expires_at timestamptz null
	)`,
	`create table if not exists grants (
		principal_id bigint not null references principals(id) on delete cascade,
		module_name text not null,
		permission_mask smallint not null check (permission_mask between 0 and 15),
		primary key (principal_id, module_name)
	)`,
	`create table if not exists modules (
		name text primary key,
		admin_only boolean not null default false
	)`,
}

// Migrate creates the principals, grants and modules tables if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate step %d: %v", store.ErrUnavailable, i+1, err)
		}
	}
	return nil
}
