package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/bitguard/permission"
)

// Kind distinguishes access credentials from refresh credentials.
type Kind string

const (
	// KindAccess is the default kind; it is not written to the wire.
	KindAccess Kind = "access"
	// KindRefresh marks a refresh token.
	KindRefresh Kind = "refresh"
)

// Wire names of the claims owned by the codec.
const (
	ClaimSubjectID = "subject_id"
	ClaimIssuedAt  = "issued_at"
	ClaimExpiresAt = "expires_at"
	ClaimKind      = "token_kind"
	ClaimTokenID   = "token_id"
	ClaimGrants    = "grants"
)

var reserved = map[string]struct{}{
	ClaimSubjectID: {},
	ClaimIssuedAt:  {},
	ClaimExpiresAt: {},
	ClaimKind:      {},
	ClaimTokenID:   {},
	ClaimGrants:    {},
}

// IsReserved reports whether name is a claim the codec manages itself.
func IsReserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

// Claims is the payload of a token. On the wire it is a flat JSON object: the fixed fields
// plus every Extra entry at top level.
type Claims struct {
	SubjectID int64
	IssuedAt  int64
	ExpiresAt int64
	Kind      Kind
	TokenID   string
	Grants    permission.Set
	Extra     map[string]any
}

// NewClaims returns access claims for subject issued at now and living for ttl.
// ttl is truncated to whole seconds so ExpiresAt-IssuedAt equals the ttl exactly.
func NewClaims(subject int64, now time.Time, ttl time.Duration) Claims {
	iat := now.Unix()
	return Claims{
		SubjectID: subject,
		IssuedAt:  iat,
		ExpiresAt: iat + int64(ttl/time.Second),
		Kind:      KindAccess,
	}
}

// IsRefresh reports whether the claims describe a refresh token.
func (c Claims) IsRefresh() bool {
	return c.Kind == KindRefresh
}

// TTL returns the lifetime encoded in the claims.
func (c Claims) TTL() time.Duration {
	return time.Duration(c.ExpiresAt-c.IssuedAt) * time.Second
}

// ExpiresTime returns ExpiresAt as a time.Time.
func (c Claims) ExpiresTime() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// Live reports whether the claims are unexpired at now.
func (c Claims) Live(now time.Time) bool {
	return c.ExpiresAt > now.Unix()
}

// GetExpirationTime implements jwt.Claims.
func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

// GetIssuedAt implements jwt.Claims.
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

// GetNotBefore implements jwt.Claims.
func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

// GetIssuer implements jwt.Claims.
func (c Claims) GetIssuer() (string, error) { return "", nil }

// GetSubject implements jwt.Claims.
func (c Claims) GetSubject() (string, error) {
	return strconv.FormatInt(c.SubjectID, 10), nil
}

// GetAudience implements jwt.Claims.
func (c Claims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }

func (c Claims) checkExtra() error {
	for k := range c.Extra {
		if IsReserved(k) {
			return fmt.Errorf("%w: %q", ErrReservedClaim, k)
		}
	}
	return nil
}

// MarshalJSON flattens Extra next to the fixed claims.
func (c Claims) MarshalJSON() ([]byte, error) {
	if err := c.checkExtra(); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(c.Extra)+6)
	for k, v := range c.Extra {
		out[k] = v
	}
	out[ClaimSubjectID] = c.SubjectID
	out[ClaimIssuedAt] = c.IssuedAt
	out[ClaimExpiresAt] = c.ExpiresAt
	if c.Kind == KindRefresh {
		out[ClaimKind] = string(KindRefresh)
	}
	if c.TokenID != "" {
		out[ClaimTokenID] = c.TokenID
	}
	if c.Grants != nil {
		out[ClaimGrants] = c.Grants.Raw()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a flat claim object strictly: numeric claims must be integers and
// unknown keys land in Extra.
func (c *Claims) UnmarshalJSON(data []byte) error {
	parsed, err := decodeClaims(data)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

var errTrailingData = errors.New("trailing data after claims object")

func decodeClaims(data []byte) (Claims, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Claims{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Claims{}, errTrailingData
	}
	if raw == nil {
		return Claims{}, errors.New("claims must be a JSON object")
	}

	var (
		c   Claims
		err error
	)
	if c.SubjectID, err = intClaim(raw, ClaimSubjectID); err != nil {
		return Claims{}, err
	}
	if c.IssuedAt, err = intClaim(raw, ClaimIssuedAt); err != nil {
		return Claims{}, err
	}
	if c.ExpiresAt, err = intClaim(raw, ClaimExpiresAt); err != nil {
		return Claims{}, err
	}

	c.Kind = KindAccess
	if v, ok := raw[ClaimKind]; ok {
		s, isStr := v.(string)
		switch {
		case !isStr:
			return Claims{}, fmt.Errorf("%s must be a string", ClaimKind)
		case Kind(s) == KindRefresh:
			c.Kind = KindRefresh
		case Kind(s) == KindAccess:
		default:
			return Claims{}, fmt.Errorf("unknown %s %q", ClaimKind, s)
		}
	}

	if v, ok := raw[ClaimTokenID]; ok {
		s, isStr := v.(string)
		if !isStr {
			return Claims{}, fmt.Errorf("%s must be a string", ClaimTokenID)
		}
		c.TokenID = s
	}

	if v, ok := raw[ClaimGrants]; ok {
		grants, err := grantsClaim(v)
		if err != nil {
			return Claims{}, err
		}
		c.Grants = grants
	}

	for k, v := range raw {
		if IsReserved(k) {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[k] = v
	}
	return c, nil
}

func intClaim(raw map[string]any, key string) (int64, error) {
	v, ok := raw[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	i, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return i, nil
}

func grantsClaim(v any) (permission.Set, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object", ClaimGrants)
	}
	out := make(permission.Set, len(obj))
	for module, raw := range obj {
		n, ok := raw.(json.Number)
		if !ok {
			return nil, fmt.Errorf("grant for %q must be a number", module)
		}
		i, err := strconv.Atoi(n.String())
		if err != nil {
			return nil, fmt.Errorf("grant for %q must be an integer", module)
		}
		bits, err := permission.FromInt(i)
		if err != nil {
			return nil, err
		}
		out[module] = bits
	}
	return out, nil
}
