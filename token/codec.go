package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken means the token is not three segments or its header is not HS256/JWT.
	ErrMalformedToken = errors.New("malformed token")
	// ErrBadSignature means the MAC over header and payload does not match.
	ErrBadSignature = errors.New("bad token signature")
	// ErrMalformedPayload means the signed payload is not a valid claim object.
	ErrMalformedPayload = errors.New("malformed token payload")
	// ErrTokenExpired means expires_at is not after the current time.
	ErrTokenExpired = errors.New("token expired")
	// ErrReservedClaim means an extra claim collides with a codec-managed claim.
	ErrReservedClaim = errors.New("extra claim uses reserved name")
	// ErrInvalidSecret means the codec was built without a signing secret.
	ErrInvalidSecret = errors.New("token secret must not be empty")
)

const (
	algHS256 = "HS256"
	typJWT   = "JWT"
)

// Codec signs and verifies tokens with one HMAC-SHA256 secret.
//
// A Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewCodec copies secret and returns a codec using now as its clock.
// A nil now defaults to time.Now.
func NewCodec(secret []byte, now func() time.Time) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidSecret
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{
		secret: append([]byte(nil), secret...),
		now:    now,
		parser: jwt.NewParser(jwt.WithStrictDecoding()),
	}, nil
}

// Now returns the codec clock's current time.
func (c *Codec) Now() time.Time {
	return c.now()
}

// Encode serializes claims and signs them.
func (c *Codec) Encode(claims Claims) (string, error) {
	if err := claims.checkExtra(); err != nil {
		return "", err
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// DecodeVerify checks structure, signature, payload and expiry, in that order.
//
// The signature is verified over the raw first two segments before anything is decoded, so
// any change to the header or payload yields ErrBadSignature. On ErrTokenExpired the decoded
// claims are returned alongside the error for logging.
func (c *Codec) DecodeVerify(raw string) (Claims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return Claims{}, ErrMalformedToken
	}

	sig, err := c.parser.DecodeSegment(parts[2])
	if err != nil || len(sig) == 0 {
		return Claims{}, ErrBadSignature
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, c.secret); err != nil {
		return Claims{}, ErrBadSignature
	}

	if err := c.checkHeader(parts[0]); err != nil {
		return Claims{}, err
	}

	payload, err := c.parser.DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	claims, err := decodeClaims(payload)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if !claims.Live(c.now()) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

func (c *Codec) checkHeader(seg string) error {
	data, err := c.parser.DecodeSegment(seg)
	if err != nil {
		return ErrMalformedToken
	}
	var header struct {
		Alg string `json:"alg"`
		Typ string `json:"typ"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return ErrMalformedToken
	}
	if header.Alg != algHS256 || (header.Typ != "" && header.Typ != typJWT) {
		return ErrMalformedToken
	}
	return nil
}

// PeekSubject decodes the payload without checking the signature. The result is untrusted and
// must only be used for lookups, never for authentication.
func PeekSubject(raw string) (int64, bool) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return 0, false
	}
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return 0, false
	}
	claims, err := decodeClaims(payload)
	if err != nil {
		return 0, false
	}
	return claims.SubjectID, true
}
