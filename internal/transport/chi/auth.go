package chi

import (
	"net/http"
	"strings"

	"github.com/samber/lo"
)

// exemptPaths bypass authentication so probes and scrapers work without a key.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

const bearerPrefix = "Bearer "

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// If apiKeys holds no non-empty key, authentication is disabled.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := lo.SliceToMap(lo.Compact(apiKeys), func(k string) (string, struct{}) {
		return k, struct{}{}
	})

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			switch {
			case auth == "":
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthenticated, "missing authorization header")
				return
			case !strings.HasPrefix(auth, bearerPrefix):
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthenticated, "authorization header must use Bearer scheme")
				return
			}

			if _, ok := validKeys[strings.TrimPrefix(auth, bearerPrefix)]; !ok {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthenticated, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
