package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, "beacon")

	token, err := m.GenerateToken("dashboard", RoleViewer)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", claims.Subject)
	assert.Equal(t, RoleViewer, claims.Role)
}

func TestJWTRejections(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, "beacon")

	_, err := m.GenerateToken("x", Role("root"))
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewJWTManager("other-secret", time.Hour, "beacon")
	token, err := other.GenerateToken("x", RoleOperator)
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewJWTManager("secret", time.Hour, "someone-else")
	token, err = wrongIssuer.GenerateToken("x", RoleOperator)
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTManager("secret", -time.Minute, "beacon")
	token, err = expired.GenerateToken("x", RoleOperator)
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRandomSecretWhenEmpty(t *testing.T) {
	a := NewJWTManager("", time.Hour, "beacon")
	b := NewJWTManager("", time.Hour, "beacon")

	token, err := a.GenerateToken("x", RoleOperator)
	require.NoError(t, err)
	_, err = b.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newTestMiddleware(disabled bool) (*Middleware, *JWTManager) {
	jwtm := NewJWTManager("secret", time.Hour, "beacon")
	return NewMiddleware(jwtm, NewFailureLimiter(), NewWSTokenStore(), disabled), jwtm
}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		_, _ = w.Write([]byte(p.Subject + ":" + string(p.Role)))
	})
}

func TestRequireAuth(t *testing.T) {
	mw, jwtm := newTestMiddleware(false)
	h := mw.RequireAuth(principalEcho())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwtm.GenerateToken("dashboard", RoleViewer)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dashboard:viewer", rec.Body.String())
}

func TestRequireAuthBlocksAfterFailures(t *testing.T) {
	mw, _ := newTestMiddleware(false)
	h := mw.RequireAuth(principalEcho())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRequireOperator(t *testing.T) {
	mw, jwtm := newTestMiddleware(false)
	h := mw.RequireAuth(mw.RequireOperator(principalEcho()))

	viewer, err := jwtm.GenerateToken("dashboard", RoleViewer)
	require.NoError(t, err)
	operator, err := jwtm.GenerateToken("assistant", RoleOperator)
	require.NoError(t, err)

	tests := []struct {
		token string
		want  int
	}{
		{token: viewer, want: http.StatusForbidden},
		{token: operator, want: http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/led/on", nil)
		req.Header.Set("Authorization", "Bearer "+tt.token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Code)
	}
}

func TestDisabledAuth(t *testing.T) {
	mw, _ := newTestMiddleware(true)
	h := mw.RequireAuth(mw.RequireOperator(principalEcho()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/led/on", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous:operator", rec.Body.String())
}

func TestRequireWSTokenIsOneTime(t *testing.T) {
	mw, _ := newTestMiddleware(false)
	h := mw.RequireWSToken(principalEcho())

	token, err := mw.WSTokens().Generate(Principal{Subject: "dashboard", Role: RoleViewer})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/strip/ws?token="+token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dashboard:viewer", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/strip/ws?token="+token, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWSTokenExpiry(t *testing.T) {
	s := NewWSTokenStore()
	s.ttl = time.Millisecond

	token, err := s.Generate(Principal{Subject: "x", Role: RoleViewer})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	_, ok := s.Validate(token)
	assert.False(t, ok)

	_, err = s.Generate(Principal{Subject: "y", Role: RoleViewer})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	s.cleanup()
	assert.Empty(t, s.tokens)
}

func TestFailureLimiterReset(t *testing.T) {
	l := NewFailureLimiter()

	for i := 0; i < 5; i++ {
		l.RecordFailure("10.0.0.9")
	}
	blocked, remaining := l.Blocked("10.0.0.9")
	assert.True(t, blocked)
	assert.Positive(t, remaining)

	l.Reset("10.0.0.9")
	blocked, _ = l.Blocked("10.0.0.9")
	assert.False(t, blocked)

	blocked, _ = l.Blocked("10.0.0.10")
	assert.False(t, blocked)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.Header.Set("Authorization", "bearer abc")
	token, ok := bearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	req.Header.Set("Authorization", "Basic abc")
	_, ok = bearerToken(req)
	assert.False(t, ok)
}
