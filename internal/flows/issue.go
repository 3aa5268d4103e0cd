package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/bitguard/permission"
	"github.com/MrEthical07/bitguard/token"
)

// TokenPair is an access and refresh token with their expiries.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// IssueDeps captures token issuance dependencies.
type IssueDeps struct {
	Encode      func(token.Claims) (string, error)
	Now         func() time.Time
	NewTokenID  func() string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	EmbedGrants bool
	ListGrants  func(context.Context, int64) (permission.Set, error)
}

// IssueAccess encodes access claims for subject. When EmbedGrants is set the subject's
// current grants are snapshotted into the token.
func IssueAccess(ctx context.Context, subject int64, ttl time.Duration, extra map[string]any, deps IssueDeps) (string, token.Claims, error) {
	if ttl <= 0 {
		ttl = deps.AccessTTL
	}
	if ttl < time.Second {
		return "", token.Claims{}, fmt.Errorf("access ttl must be at least one second, got %s", ttl)
	}

	claims := token.NewClaims(subject, deps.Now(), ttl)
	if len(extra) > 0 {
		claims.Extra = make(map[string]any, len(extra))
		for k, v := range extra {
			claims.Extra[k] = v
		}
	}
	if deps.EmbedGrants && deps.ListGrants != nil {
		grants, err := deps.ListGrants(ctx, subject)
		if err != nil {
			return "", token.Claims{}, err
		}
		claims.Grants = grants
	}

	raw, err := deps.Encode(claims)
	if err != nil {
		return "", token.Claims{}, err
	}
	return raw, claims, nil
}

// IssueRefresh encodes refresh claims for subject with a fresh token id.
func IssueRefresh(subject int64, ttl time.Duration, deps IssueDeps) (string, token.Claims, error) {
	if ttl <= 0 {
		ttl = deps.RefreshTTL
	}
	if ttl < time.Second {
		return "", token.Claims{}, fmt.Errorf("refresh ttl must be at least one second, got %s", ttl)
	}

	claims := token.NewClaims(subject, deps.Now(), ttl)
	claims.Kind = token.KindRefresh
	if deps.NewTokenID != nil {
		claims.TokenID = deps.NewTokenID()
	}

	raw, err := deps.Encode(claims)
	if err != nil {
		return "", token.Claims{}, err
	}
	return raw, claims, nil
}

// issuePair issues both tokens without persisting anything.
func issuePair(ctx context.Context, subject int64, deps IssueDeps) (TokenPair, error) {
	access, accessClaims, err := IssueAccess(ctx, subject, 0, nil, deps)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshClaims, err := IssueRefresh(subject, 0, deps)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessClaims.ExpiresTime(),
		RefreshExpiresAt: refreshClaims.ExpiresTime(),
	}, nil
}

// PairPrincipalStore persists a freshly issued refresh token.
type PairPrincipalStore interface {
	SetRefreshToken(ctx context.Context, id int64, refreshToken string, expiresAt time.Time) error
}

// IssuePairDeps captures IssuePair dependencies.
type IssuePairDeps struct {
	Issue      IssueDeps
	Principals PairPrincipalStore
}

// RunIssuePair issues an access and refresh token and stores the refresh token in the
// subject's slot, replacing any previous value.
func RunIssuePair(ctx context.Context, subject int64, deps IssuePairDeps) (TokenPair, error) {
	pair, err := issuePair(ctx, subject, deps.Issue)
	if err != nil {
		return TokenPair{}, err
	}
	if err := deps.Principals.SetRefreshToken(ctx, subject, pair.RefreshToken, pair.RefreshExpiresAt); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}
