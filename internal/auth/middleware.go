package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/safar/framely/internal/httpx"
	"github.com/safar/framely/internal/logging"
	"go.uber.org/zap"
)

// Verifier resolves a bearer token into a caller.
type Verifier interface {
	Verify(raw string) (*Caller, error)
}

// Authenticate attaches the caller for requests that carry a valid bearer
// token. Requests without an Authorization header pass through anonymously;
// a malformed, expired or forged token is rejected with 401.
func Authenticate(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := bearerToken(header)
			if !ok {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authorization header must use the Bearer scheme", http.StatusUnauthorized))
				return
			}

			caller, err := verifier.Verify(raw)
			if err != nil {
				message := "invalid token"
				if errors.Is(err, ErrTokenExpired) {
					message = "token expired"
				}
				logging.FromContext(r.Context()).Debug("token rejected", zap.Error(err))
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", message, http.StatusUnauthorized))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CallerFromContext(r.Context()).Authenticated() {
			httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
