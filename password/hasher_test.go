package password

import (
	"errors"
	"strings"
	"testing"
)

func fastConfig() Config {
	return Config{Memory: MinMemoryKiB, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func newTestHasher(t *testing.T, cfg Config) *Hasher {
	t.Helper()
	h, err := NewHasher(cfg)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t, fastConfig())
	encoded, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", encoded)
	}
	if strings.Contains(encoded, "=$") || strings.HasSuffix(encoded, "=") {
		t.Fatalf("segments must be unpadded: %s", encoded)
	}

	ok, err := h.Verify("correct horse", encoded)
	if err != nil || !ok {
		t.Fatalf("expected match, got %v %v", ok, err)
	}
	ok, err = h.Verify("wrong horse", encoded)
	if err != nil || ok {
		t.Fatalf("expected mismatch, got %v %v", ok, err)
	}
}

func TestHashSaltsDiffer(t *testing.T) {
	h := newTestHasher(t, fastConfig())
	a, _ := h.Hash("same password")
	b, _ := h.Hash("same password")
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	h := newTestHasher(t, fastConfig())
	if _, err := h.Hash("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestDummyHashVerifies(t *testing.T) {
	h := newTestHasher(t, fastConfig())
	ok, err := h.Verify("anything", h.DummyHash())
	if err != nil {
		t.Fatalf("dummy hash must parse: %v", err)
	}
	if ok {
		t.Fatal("dummy hash must not match arbitrary input")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	h := newTestHasher(t, fastConfig())
	good, _ := h.Hash("correct horse")
	parts := strings.Split(good, "$")

	cases := []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8192,t=1,p=1$" + parts[4] + "$" + parts[5],
		"$argon2id$v=18$m=8192,t=1,p=1$" + parts[4] + "$" + parts[5],
		"$argon2id$v=19$m=8192,t=1$" + parts[4] + "$" + parts[5],
		"$argon2id$v=19$m=99999999,t=1,p=1$" + parts[4] + "$" + parts[5],
		"$argon2id$v=19$m=8192,t=1,p=1,x=2$" + parts[4] + "$" + parts[5],
		"$argon2id$v=19$m=8192,t=1,p=1$!!$" + parts[5],
		"$argon2id$v=19$m=8192,t=1,p=1$" + parts[4] + "$AAAA",
	}
	for _, c := range cases {
		if _, err := h.Verify("correct horse", c); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("Verify(%q) expected ErrInvalidHash, got %v", c, err)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newTestHasher(t, fastConfig())
	encoded, _ := weak.Hash("correct horse")

	if need, err := weak.NeedsRehash(encoded); err != nil || need {
		t.Fatalf("same params must not need rehash: %v %v", need, err)
	}
	stronger := fastConfig()
	stronger.Time = 2
	if need, _ := newTestHasher(t, stronger).NeedsRehash(encoded); !need {
		t.Fatal("stronger config must request rehash")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := fastConfig()
	bad.Memory = 1
	if _, err := NewHasher(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	bad = fastConfig()
	bad.SaltLength = 4
	if err := bad.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
