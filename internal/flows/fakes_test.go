package flows

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/bitguard/permission"
	"github.com/MrEthical07/bitguard/store"
	"github.com/MrEthical07/bitguard/token"
)

type memPrincipals struct {
	mu   sync.Mutex
	byID map[int64]store.Principal
	err  error
}

func newMemPrincipals(ps ...store.Principal) *memPrincipals {
	m := &memPrincipals{byID: map[int64]store.Principal{}}
	for _, p := range ps {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memPrincipals) FindPrincipalByID(_ context.Context, id int64) (store.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.Principal{}, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return store.Principal{}, store.ErrNotFound
	}
	return p, nil
}

func (m *memPrincipals) FindPrincipalByIdentifier(_ context.Context, identifier string) (store.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return store.Principal{}, m.err
	}
	for _, p := range m.byID {
		if p.Identifier == identifier {
			return p, nil
		}
	}
	return store.Principal{}, store.ErrNotFound
}

func (m *memPrincipals) SetRefreshToken(_ context.Context, id int64, tok string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	p.RefreshToken, p.RefreshTokenExpiresAt = tok, exp
	m.byID[id] = p
	return nil
}

func (m *memPrincipals) SwapRefreshToken(_ context.Context, id int64, current, next string, exp time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if p.RefreshToken == "" || p.RefreshToken != current {
		return false, nil
	}
	p.RefreshToken, p.RefreshTokenExpiresAt = next, exp
	m.byID[id] = p
	return true, nil
}

func (m *memPrincipals) ClearRefreshToken(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	p.RefreshToken, p.RefreshTokenExpiresAt = "", time.Time{}
	m.byID[id] = p
	return nil
}

func (m *memPrincipals) slot(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].RefreshToken
}

type grantKey struct {
	id     int64
	module string
}

type memGrants struct {
	mu   sync.Mutex
	rows map[grantKey]permission.Bits
	err  error
}

func (g *memGrants) FindGrant(_ context.Context, id int64, module string) (permission.Bits, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return 0, false, g.err
	}
	b, ok := g.rows[grantKey{id, module}]
	return b, ok, nil
}

func (g *memGrants) ModifyGrant(_ context.Context, id int64, module string, set, clear permission.Bits) (permission.Bits, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return 0, g.err
	}
	if g.rows == nil {
		g.rows = map[grantKey]permission.Bits{}
	}
	k := grantKey{id, module}
	next := g.rows[k].Add(set).Remove(clear)
	g.rows[k] = next
	return next, nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var errBoom = errors.New("boom")

type harness struct {
	clock      *testClock
	codec      *token.Codec
	principals *memPrincipals
	grants     *memGrants
	issue      IssueDeps
	validate   ValidateDeps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	codec, err := token.NewCodec([]byte("0123456789abcdef0123456789abcdef"), clock.Now)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	var seq int
	var seqMu sync.Mutex
	h := &harness{
		clock:      clock,
		codec:      codec,
		principals: newMemPrincipals(store.Principal{ID: 7, Identifier: "alice", PasswordHash: "pw", Active: true}),
		grants:     &memGrants{},
	}
	h.validate = ValidateDeps{DecodeVerify: codec.DecodeVerify}
	h.issue = IssueDeps{
		Encode: codec.Encode,
		Now:    clock.Now,
		NewTokenID: func() string {
			seqMu.Lock()
			defer seqMu.Unlock()
			seq++
			return "tid-" + strconv.Itoa(seq)
		},
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		ListGrants: func(context.Context, int64) (permission.Set, error) {
			return permission.Set{"articles": permission.Read}, nil
		},
	}
	return h
}

func (h *harness) refreshDeps() RefreshDeps {
	return RefreshDeps{Validate: h.validate, Issue: h.issue, Principals: h.principals}
}
