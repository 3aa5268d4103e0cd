package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

// Parameter bounds accepted by NewHasher and by parse.
const (
	MinMemoryKiB   uint32 = 8 * 1024
	MaxMemoryKiB   uint32 = 1024 * 1024
	MinTime        uint32 = 1
	MaxTime        uint32 = 16
	MinParallelism uint8  = 1
	MinSaltLength  uint32 = 16
	MinKeyLength   uint32 = 16
	MinPassword           = 8
)

var (
	// ErrInvalidHash is returned for strings that are not a supported PHC argon2id hash.
	ErrInvalidHash = errors.New("password: invalid hash")
	// ErrPasswordTooShort is returned by Hash for passwords under MinPassword bytes.
	ErrPasswordTooShort = errors.New("password: too short")
	// ErrInvalidConfig is returned by NewHasher for out-of-range parameters.
	ErrInvalidConfig = errors.New("password: invalid config")
)

// Config holds Argon2id parameters.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns the RFC 9106 second recommended option.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate checks cfg against the package bounds.
func (c Config) Validate() error {
	switch {
	case c.Memory < MinMemoryKiB || c.Memory > MaxMemoryKiB:
		return fmt.Errorf("%w: memory must be within [%d, %d] KiB", ErrInvalidConfig, MinMemoryKiB, MaxMemoryKiB)
	case c.Time < MinTime || c.Time > MaxTime:
		return fmt.Errorf("%w: time must be within [%d, %d]", ErrInvalidConfig, MinTime, MaxTime)
	case c.Parallelism < MinParallelism:
		return fmt.Errorf("%w: parallelism must be >= %d", ErrInvalidConfig, MinParallelism)
	case c.SaltLength < MinSaltLength:
		return fmt.Errorf("%w: salt length must be >= %d", ErrInvalidConfig, MinSaltLength)
	case c.KeyLength < MinKeyLength:
		return fmt.Errorf("%w: key length must be >= %d", ErrInvalidConfig, MinKeyLength)
	}
	return nil
}

// Hasher hashes and verifies passwords. It is immutable and safe for concurrent use.
type Hasher struct {
	config Config
	dummy  string
}

// NewHasher validates cfg and precomputes a dummy hash for timing-equalized misses.
func NewHasher(cfg Config) (*Hasher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Hasher{config: cfg}
	dummy, err := h.hash([]byte("bitguard-dummy-password"))
	if err != nil {
		return nil, err
	}
	h.dummy = dummy
	return h, nil
}

// Hash returns the PHC encoding of password under a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < MinPassword {
		return "", ErrPasswordTooShort
	}
	return h.hash([]byte(password))
}

func (h *Hasher) hash(password []byte) (string, error) {
	salt := make([]byte, h.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}
	key := argon2.IDKey(password, salt, h.config.Time, h.config.Memory, h.config.Parallelism, h.config.KeyLength)
	return encode(phc{
		memory:      h.config.Memory,
		time:        h.config.Time,
		parallelism: h.config.Parallelism,
		salt:        salt,
		key:         key,
	}), nil
}

// Verify reports whether password matches encoded. A malformed encoding is an error, a
// mismatch is (false, nil).
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	p, err := parse(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

// DummyHash returns a valid hash of a fixed secret, for verifying against when the
// principal is unknown.
func (h *Hasher) DummyHash() string {
	return h.dummy
}

// NeedsRehash reports whether encoded was produced with weaker parameters than h.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	p, err := parse(encoded)
	if err != nil {
		return false, err
	}
	return p.memory < h.config.Memory ||
		p.time < h.config.Time ||
		p.parallelism < h.config.Parallelism ||
		uint32(len(p.key)) != h.config.KeyLength, nil
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

var b64 = base64.RawStdEncoding

func encode(p phc) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version, p.memory, p.time, p.parallelism,
		b64.EncodeToString(p.salt), b64.EncodeToString(p.key))
}

func parse(encoded string) (phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return phc{}, ErrInvalidHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return phc{}, fmt.Errorf("%w: unsupported version", ErrInvalidHash)
	}

	var (
		p                   phc
		haveM, haveT, haveP bool
	)
	for _, kv := range strings.Split(parts[3], ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return phc{}, fmt.Errorf("%w: bad parameter %q", ErrInvalidHash, kv)
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return phc{}, fmt.Errorf("%w: bad parameter %q", ErrInvalidHash, kv)
		}
		switch name {
		case "m":
			p.memory, haveM = uint32(n), true
		case "t":
			p.time, haveT = uint32(n), true
		case "p":
			if n > 255 {
				return phc{}, fmt.Errorf("%w: parallelism out of range", ErrInvalidHash)
			}
			p.parallelism, haveP = uint8(n), true
		default:
			return phc{}, fmt.Errorf("%w: unknown parameter %q", ErrInvalidHash, name)
		}
	}
	if !haveM || !haveT || !haveP {
		return phc{}, fmt.Errorf("%w: missing parameters", ErrInvalidHash)
	}
	if p.memory < MinMemoryKiB || p.memory > MaxMemoryKiB ||
		p.time < MinTime || p.time > MaxTime ||
		p.parallelism < MinParallelism {
		return phc{}, fmt.Errorf("%w: parameters out of range", ErrInvalidHash)
	}

	var err error
	if p.salt, err = b64.DecodeString(parts[4]); err != nil || uint32(len(p.salt)) < MinSaltLength {
		return phc{}, fmt.Errorf("%w: bad salt", ErrInvalidHash)
	}
	if p.key, err = b64.DecodeString(parts[5]); err != nil || uint32(len(p.key)) < MinKeyLength {
		return phc{}, fmt.Errorf("%w: bad key", ErrInvalidHash)
	}
	return p, nil
}
