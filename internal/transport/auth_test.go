package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/rpggio/liveshop/internal/repository"
	"github.com/rpggio/liveshop/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testResolver struct {
	tokens map[string]session.Principal
	err    error
}

func (r *testResolver) ResolvePrincipal(_ context.Context, token string) (session.Principal, error) {
	if r.err != nil {
		return session.Principal{}, r.err
	}
	p, ok := r.tokens[token]
	if !ok {
		return session.Principal{}, ErrUnauthorized
	}
	return p, nil
}

func TestAuthMiddleware(t *testing.T) {
	resolver := &testResolver{tokens: map[string]session.Principal{"token": session.Customer("client-1")}}

	handler := AuthMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, session.ActorCustomer, p.Actor)
		require.Equal(t, "client-1", p.ClientID)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_Invalid(t *testing.T) {
	resolver := &testResolver{err: errors.New("invalid")}

	handler := AuthMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, header := range []string{"", "Bearer token"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestHeaderPrincipalMiddleware(t *testing.T) {
	var got session.Principal
	handler := HeaderPrincipalMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Liveshop-Actor", "STAFF")
	req.Header.Set("X-Liveshop-Subject", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, session.Staff("alice"), got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Liveshop-Actor", "SYSTEM")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyResolver(t *testing.T) {
	ctx := context.Background()
	keys := &mocks.APIKeyRepository{}
	hash := HashToken("secret")
	keys.On("Lookup", mock.Anything, hash).Return(&repository.APIKey{KeyHash: hash, Actor: "CUSTOMER", SubjectID: "client-9"}, nil)
	keys.On("Touch", mock.Anything, hash, mock.AnythingOfType("time.Time")).Return(nil)
	keys.On("Lookup", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

	resolver := NewAPIKeyResolver(keys, nil)

	p, err := resolver.ResolvePrincipal(ctx, "secret")
	require.NoError(t, err)
	require.Equal(t, session.Customer("client-9"), p)
	keys.AssertCalled(t, "Touch", mock.Anything, hash, mock.AnythingOfType("time.Time"))

	_, err = resolver.ResolvePrincipal(ctx, "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = resolver.ResolvePrincipal(ctx, "")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAPIKeyResolver_TouchFailureIsNotFatal(t *testing.T) {
	keys := &mocks.APIKeyRepository{}
	hash := HashToken("secret")
	keys.On("Lookup", mock.Anything, hash).Return(&repository.APIKey{KeyHash: hash, Actor: "STAFF", SubjectID: "bob"}, nil)
	keys.On("Touch", mock.Anything, hash, mock.Anything).Return(errors.New("database is locked"))

	resolver := NewAPIKeyResolver(keys, nil)
	resolver.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	p, err := resolver.ResolvePrincipal(context.Background(), "secret")
	require.NoError(t, err)
	require.Equal(t, session.Staff("bob"), p)
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusNotFound, StatusFor(session.KindNotFound))
	require.Equal(t, http.StatusConflict, StatusFor(session.KindConflict))
	require.Equal(t, http.StatusConflict, StatusFor(session.KindInvalidState))
	require.Equal(t, http.StatusUnprocessableEntity, StatusFor(session.KindInvalidTransition))
	require.Equal(t, http.StatusUnprocessableEntity, StatusFor(session.KindInvalidAmount))
	require.Equal(t, http.StatusForbidden, StatusFor(session.KindForbidden))
	require.Equal(t, http.StatusBadRequest, StatusFor(session.KindInvalidInput))
	require.Equal(t, http.StatusInternalServerError, StatusFor(session.KindInternal))
}
