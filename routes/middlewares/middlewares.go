package middlewares

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"

	"github.com/mbolis/survey-intake/httpx"
	"github.com/mbolis/survey-intake/log"
)

type contextKey struct{}

var accountIDKey contextKey

// Account middleware to check the OAuth token and load the account id
// from its claims.
func Account(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), account).Handler(next)
	}
}

func account(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)

		id, err := strconv.Atoi(claims[httpx.AccountIDClaim])
		if err != nil {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "auth.claims.account_id")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), id)))
	})
}

func WithAccountID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// AccountID returns the id of the authenticated account, or 0.
func AccountID(r *http.Request) int {
	id, _ := r.Context().Value(accountIDKey).(int)
	return id
}
