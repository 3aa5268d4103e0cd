package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/bitguard"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the result stored by Authenticate or RequireModule.
func AuthResultFromContext(ctx context.Context) (*bitguard.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*bitguard.AuthResult)
	return res, ok && res != nil
}

func withAuthResult(r *http.Request, res *bitguard.AuthResult) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), authResultContextKey{}, res))
}

// bearerToken extracts the credential from an Authorization header. Any other scheme,
// or an empty token, counts as no credential.
func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func requestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return r.Context()
	}
	return bitguard.WithClientIP(r.Context(), host)
}
