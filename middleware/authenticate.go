package middleware

import (
	"net/http"

	"github.com/MrEthical07/bitguard"
)

// Authenticate rejects requests without a valid access token. Expired and malformed
// tokens produce the same auth_invalid response.
func Authenticate(engine *bitguard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, bitguard.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, bitguard.ErrAuthRequired)
				return
			}

			res, err := engine.ValidateAccess(requestContext(r), token)
			if err != nil {
				WriteError(w, bitguard.ErrAuthInvalid)
				return
			}

			next.ServeHTTP(w, withAuthResult(r, res))
		})
	}
}
