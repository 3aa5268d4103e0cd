package flows

import (
	"context"

	"github.com/MrEthical07/bitguard/permission"
)

type GrantStore interface {
	ModifyGrant(ctx context.Context, principalID int64, module string, set, clear permission.Bits) (permission.Bits, error)
}

// RunModifyGrant ORs set into and clears clear from the row (None when absent) in one
// atomic store call. Bits outside the four capabilities are dropped. It returns the bits
// written.
func RunModifyGrant(
	ctx context.Context,
	grants GrantStore,
	principalID int64,
	module string,
	set, clear permission.Bits,
) (permission.Bits, error) {
	return grants.ModifyGrant(ctx, principalID, module, set&permission.Max, clear&permission.Max)
}
