package bitguard

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/bitguard/internal/flows"
	"github.com/MrEthical07/bitguard/permission"
	"github.com/MrEthical07/bitguard/store"
)

// SetGrant upserts the subject's grant on module. Masks outside 0-15 are ErrInvalidGrant.
func (e *Engine) SetGrant(ctx context.Context, subject int64, module string, bits permission.Bits) error {
	if err := e.ready(); err != nil {
		return err
	}
	if module == "" || !permission.Valid(bits) {
		return ErrInvalidGrant
	}
	if err := e.grants.UpsertGrant(ctx, subject, module, bits); err != nil {
		return e.grantError(ctx, "set", subject, module, err)
	}
	e.grantChanged(ctx, "set", subject, module, bits)
	return nil
}

// AddPermission ORs bit into the subject's grant on module, creating the row when absent.
// The read-modify-write runs atomically in the store, so concurrent edits of the same row
// never lose bits. It returns the resulting mask.
func (e *Engine) AddPermission(ctx context.Context, subject int64, module string, bit permission.Bits) (permission.Bits, error) {
	return e.modifyGrant(ctx, "add", subject, module, bit, permission.None)
}

// RemovePermission clears bit from the subject's grant on module. The row is kept, so a
// fully cleared grant is a zero row rather than a missing one.
func (e *Engine) RemovePermission(ctx context.Context, subject int64, module string, bit permission.Bits) (permission.Bits, error) {
	return e.modifyGrant(ctx, "remove", subject, module, permission.None, bit)
}

func (e *Engine) modifyGrant(
	ctx context.Context,
	op string,
	subject int64,
	module string,
	set, clear permission.Bits,
) (permission.Bits, error) {
	if err := e.ready(); err != nil {
		return permission.None, err
	}
	if module == "" || !permission.Valid(set) || !permission.Valid(clear) {
		return permission.None, ErrInvalidGrant
	}
	next, err := flows.RunModifyGrant(ctx, e.grants, subject, module, set, clear)
	if err != nil {
		return permission.None, e.grantError(ctx, op, subject, module, err)
	}
	e.grantChanged(ctx, op, subject, module, next)
	return next, nil
}

// DeleteGrant removes the subject's row for module. It reports whether a row existed.
func (e *Engine) DeleteGrant(ctx context.Context, subject int64, module string) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	deleted, err := e.grants.DeleteGrant(ctx, subject, module)
	if err != nil {
		return false, e.grantError(ctx, "delete", subject, module, err)
	}
	if deleted {
		e.grantChanged(ctx, "delete", subject, module, permission.None)
	}
	return deleted, nil
}

// Grants returns every grant row the subject holds.
func (e *Engine) Grants(ctx context.Context, subject int64) (permission.Set, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	set, err := e.grants.ListGrants(ctx, subject)
	if err != nil {
		return nil, wrap(ErrStoreUnavailable, err)
	}
	return set, nil
}

func (e *Engine) grantChanged(ctx context.Context, op string, subject int64, module string, bits permission.Bits) {
	e.metricInc(MetricGrantChanged)
	e.emitAudit(ctx, auditEventGrantChanged, true, subject, module, nil, func() map[string]string {
		return map[string]string{
			"op":   op,
			"bits": strconv.Itoa(bits.Raw()),
			"name": bits.String(),
		}
	})
}

func (e *Engine) grantError(ctx context.Context, op string, subject int64, module string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		// pgstore reports a missing principal as a foreign key miss.
		err = wrap(ErrInvalidGrant, err)
	} else {
		e.logger.Warn("bitguard: grant store failure", "op", op, "error", err)
		err = wrap(ErrStoreUnavailable, err)
	}
	e.emitAudit(ctx, auditEventGrantChanged, false, subject, module, err, func() map[string]string {
		return map[string]string{"op": op}
	})
	return err
}
