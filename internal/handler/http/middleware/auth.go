package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/auth"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/handler/http/response"
)

type adminIDKey struct{}

func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}
			if token == nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			tokenType, ok := claims["type"].(string)
			if tokenType != "access" || !ok {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}
			adminID, ok := claims["user_id"].(string)
			if !ok || adminID == "" {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAdminID(r.Context(), adminID)))
		}
		return http.HandlerFunc(hfn)
	}
}

// AdminID returns the authenticated administrator set by AuthRequired.
func AdminID(ctx context.Context) string {
	id, _ := ctx.Value(adminIDKey{}).(string)
	return id
}

// WithAdminID stores the acting administrator in ctx.
func WithAdminID(ctx context.Context, adminID string) context.Context {
	return context.WithValue(ctx, adminIDKey{}, adminID)
}
