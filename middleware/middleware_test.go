package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/bitguard"
	"github.com/MrEthical07/bitguard/permission"
	"github.com/MrEthical07/bitguard/store/redisstore"
)

type fixture struct {
	engine  *bitguard.Engine
	store   *redisstore.Store
	subject int64
	access  string
	refresh string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := redisstore.New(rdb, redisstore.DefaultPrefix)

	cfg := bitguard.DefaultConfig()
	cfg.Token.Secret = []byte("middleware-test-secret-0123456789abcdef")
	cfg.Security.EnableLoginThrottle = false
	cfg.Security.EnableRefreshThrottle = false

	engine, err := bitguard.New().
		WithConfig(cfg).
		WithPrincipalStore(st).
		WithGrantStore(st).
		WithModuleCatalog(st).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	ctx := context.Background()
	p, err := st.CreatePrincipal(ctx, "writer", "unused-hash", true)
	if err != nil {
		t.Fatalf("create principal: %v", err)
	}
	if err := engine.SetGrant(ctx, p.ID, "articles", permission.Read|permission.Create); err != nil {
		t.Fatalf("set grant: %v", err)
	}
	pair, err := engine.IssueTokenPair(ctx, p.ID)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	return &fixture{engine: engine, store: st, subject: p.ID, access: pair.AccessToken, refresh: pair.RefreshToken}
}

func okHandler(t *testing.T, wantSubject int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AuthResultFromContext(r.Context())
		if !ok {
			t.Error("expected auth result in context")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if res.SubjectID != wantSubject {
			t.Errorf("expected subject %d, got %d", wantSubject, res.SubjectID)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, method, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/articles", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	h := Authenticate(f.engine)(okHandler(t, f.subject))

	rec := serve(h, http.MethodGet, "Bearer "+f.access)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(h, http.MethodGet, "bearer "+f.access)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected lower-case scheme to be accepted, got %d", rec.Code)
	}

	cases := []struct {
		name string
		auth string
		code string
	}{
		{name: "missing", auth: "", code: bitguard.CodeAuthRequired},
		{name: "basic scheme", auth: "Basic dXNlcjpwYXNz", code: bitguard.CodeAuthRequired},
		{name: "empty bearer", auth: "Bearer   ", code: bitguard.CodeAuthRequired},
		{name: "garbage", auth: "Bearer not-a-token", code: bitguard.CodeAuthInvalid},
		{name: "refresh token", auth: "Bearer " + f.refresh, code: bitguard.CodeAuthInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, http.MethodGet, tc.auth)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if rec.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("expected WWW-Authenticate header")
			}
			if body := decodeBody(t, rec); body.Error != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, body.Error)
			}
		})
	}
}

func TestRequireModule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.SetAdminOnly(ctx, "settings", true); err != nil {
		t.Fatalf("set admin only: %v", err)
	}

	articles := RequireModule(f.engine, "articles")(okHandler(t, f.subject))

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		if rec := serve(articles, method, "Bearer "+f.access); rec.Code != http.StatusNoContent {
			t.Fatalf("%s: expected 204, got %d: %s", method, rec.Code, rec.Body.String())
		}
	}

	rec := serve(articles, http.MethodDelete, "Bearer "+f.access)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for delete, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body.Error != bitguard.CodeInsufficientPermission {
		t.Fatalf("expected insufficient_permission, got %q", body.Error)
	}
	if body.Message == "" {
		t.Fatal("expected a message naming the module")
	}

	cases := []struct {
		name   string
		module string
		auth   string
		status int
		code   string
	}{
		{name: "no credential", module: "articles", auth: "", status: http.StatusUnauthorized, code: bitguard.CodeAuthRequired},
		{name: "bad credential", module: "articles", auth: "Bearer x.y.z", status: http.StatusUnauthorized, code: bitguard.CodeAuthInvalid},
		{name: "no grant row", module: "invoices", auth: "Bearer " + f.access, status: http.StatusForbidden, code: bitguard.CodeNoModuleAccess},
		{name: "admin only", module: "settings", auth: "Bearer " + f.access, status: http.StatusForbidden, code: bitguard.CodeAdminOnly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := RequireModule(f.engine, tc.module)(okHandler(t, f.subject))
			rec := serve(h, http.MethodGet, tc.auth)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if body := decodeBody(t, rec); body.Error != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, body.Error)
			}
		})
	}
}

func TestNilEngineFailsClosed(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	for _, h := range []http.Handler{Authenticate(nil)(next), RequireModule(nil, "articles")(next)} {
		rec := serve(h, http.MethodGet, "Bearer anything")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	}
	if called {
		t.Fatal("next handler must not run without an engine")
	}
}

func TestWriteErrorCodes(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{bitguard.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{bitguard.ErrTokenRevoked, http.StatusUnauthorized, "token_revoked"},
		{bitguard.ErrLoginRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{bitguard.ErrPrincipalInactive, http.StatusForbidden, "principal_inactive"},
		{bitguard.ErrStoreUnavailable, http.StatusServiceUnavailable, bitguard.CodeUnavailable},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, tc.err)
		if rec.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("expected json content type, got %q", ct)
		}
		body := decodeBody(t, rec)
		if body.Error != tc.code {
			t.Fatalf("%v: expected code %q, got %q", tc.err, tc.code, body.Error)
		}
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"BEARER abc":   "abc",
		"Bearer  abc ": "abc",
		"Bearer":       "",
		"Token abc":    "",
		"":             "",
	}
	for header, want := range cases {
		got, ok := bearerToken(header)
		if got != want || ok != (want != "") {
			t.Fatalf("bearerToken(%q) = %q, %v; want %q", header, got, ok, want)
		}
	}
}
