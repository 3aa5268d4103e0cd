package bitguard

import (
	"time"

	"github.com/MrEthical07/bitguard/permission"
	"github.com/MrEthical07/bitguard/token"
)

// TokenPair is an access token and its paired refresh token.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// AuthResult is returned by a successful Authorize or Validate.
//
// Grant and Module are empty for Validate, which does not consult the grant store.
type AuthResult struct {
	SubjectID int64
	Module    string
	Grant     permission.Bits
	Required  permission.Bits
	Claims    token.Claims
}

// OwnsOrFull reports whether the caller owns the record or holds Full Access on the
// module. Use it for row-level checks after Authorize succeeds.
func (r *AuthResult) OwnsOrFull(ownerID int64) bool {
	if r == nil {
		return false
	}
	return r.SubjectID == ownerID || permission.Has(r.Grant, permission.FullAccess)
}

// HasPermission reports whether the effective grant includes bit.
func (r *AuthResult) HasPermission(bit permission.Bits) bool {
	return r != nil && permission.Has(r.Grant, bit)
}
