package transport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/rpggio/liveshop/internal/repository"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type principalKey struct{}

// PrincipalResolver resolves the calling actor from a bearer token.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, token string) (session.Principal, error)
}

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p session.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal from context, if present.
func PrincipalFromContext(ctx context.Context) (session.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(session.Principal)
	return p, ok
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r.Header)
			if token == "" {
				writeProblem(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}

			p, err := resolver.ResolvePrincipal(r.Context(), token)
			if err != nil {
				writeProblem(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// HeaderPrincipalMiddleware trusts the X-Liveshop-Actor and X-Liveshop-Subject
// headers. It is only installed when auth is disabled.
func HeaderPrincipalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := session.ParseActor(r.Header.Get("X-Liveshop-Actor"))
		if err != nil {
			writeProblem(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-Liveshop-Actor must be STAFF or CUSTOMER")
			return
		}
		p := principalFor(actor, r.Header.Get("X-Liveshop-Subject"))
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(h http.Header) string {
	auth := h.Get("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// APIKeyResolver authenticates bearer tokens against stored key hashes.
type APIKeyResolver struct {
	keys   repository.APIKeyRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewAPIKeyResolver creates a resolver over the API key store.
func NewAPIKeyResolver(keys repository.APIKeyRepository, logger *slog.Logger) *APIKeyResolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &APIKeyResolver{keys: keys, logger: logger, now: time.Now}
}

// ResolvePrincipal looks the token up by hash and records its use.
func (r *APIKeyResolver) ResolvePrincipal(ctx context.Context, token string) (session.Principal, error) {
	if token == "" {
		return session.Principal{}, ErrUnauthorized
	}
	hash := HashToken(token)
	key, err := r.keys.Lookup(ctx, hash)
	if err != nil {
		return session.Principal{}, ErrUnauthorized
	}
	actor, err := session.ParseActor(key.Actor)
	if err != nil || key.SubjectID == "" {
		return session.Principal{}, ErrUnauthorized
	}
	if err := r.keys.Touch(ctx, hash, r.now()); err != nil {
		r.logger.Warn("failed to record api key use", "error", err)
	}
	return principalFor(actor, key.SubjectID), nil
}

// HashToken returns the stored form of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func principalFor(actor session.Actor, subject string) session.Principal {
	if actor == session.ActorCustomer {
		return session.Customer(subject)
	}
	return session.Staff(subject)
}
