package middleware

import (
	"net/http"

	"github.com/MrEthical07/bitguard"
)

// RequireModule authorizes each request against module using the request method as the
// verb. GET and HEAD need Read, POST Create, PUT and PATCH Update, DELETE Delete.
func RequireModule(engine *bitguard.Engine, module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, bitguard.ErrEngineNotReady)
				return
			}

			token, _ := bearerToken(r.Header.Get("Authorization"))
			res, err := engine.Authorize(requestContext(r), token, module, r.Method)
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, withAuthResult(r, res))
		})
	}
}
