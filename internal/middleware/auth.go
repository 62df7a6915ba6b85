package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/models"
	"github.com/applejunice/Applehome/internal/services"
)

type principalContextKey struct{}

// TokenVerifier turns a bearer token into the principal it was issued for.
type TokenVerifier interface {
	Verify(token string) (*models.Principal, error)
}

// PrincipalFromContext returns the principal stored by Gate.Authenticate.
func PrincipalFromContext(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*models.Principal)
	return p, ok
}

func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Gate holds the decorators that protect routes. Authenticate must run before
// RequireAdmin or RequireHolder.
type Gate struct {
	tokens TokenVerifier
	logger *zap.Logger
}

func NewGate(tokens TokenVerifier, logger *zap.Logger) *Gate {
	return &Gate{tokens: tokens, logger: logger.With(zap.String("component", "gate"))}
}

func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			services.SendError(w, services.ErrUnauthenticated)
			return
		}

		principal, err := g.tokens.Verify(token)
		if err != nil {
			g.logger.Info("Token rejected",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err))
			services.SendError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			services.SendError(w, services.ErrUnauthenticated)
			return
		}
		if !principal.IsAdmin() {
			g.logger.Warn("Admin route refused",
				zap.String("path", r.URL.Path),
				zap.String("username", principal.SubjectName))
			services.SendError(w, services.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireHolder rejects the administrator, who has no account, with 400.
func (g *Gate) RequireHolder(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			services.SendError(w, services.ErrUnauthenticated)
			return
		}
		if _, isHolder := principal.AccountID(); !isHolder {
			services.SendError(w, services.ErrAdminHasNoAccount)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
