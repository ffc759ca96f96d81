package auth

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Middleware handles authentication for protected routes
type Middleware struct {
	jwtManager *JWTManager
	limiter    *FailureLimiter
	wsTokens   *WSTokenStore
	disabled   bool
}

// NewMiddleware creates the auth middleware. With disabled set every
// request is treated as an operator.
func NewMiddleware(jwtManager *JWTManager, limiter *FailureLimiter, wsTokens *WSTokenStore, disabled bool) *Middleware {
	return &Middleware{
		jwtManager: jwtManager,
		limiter:    limiter,
		wsTokens:   wsTokens,
		disabled:   disabled,
	}
}

var anonymousOperator = Principal{Subject: "anonymous", Role: RoleOperator}

// RequireAuth checks the bearer token
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			p := anonymousOperator
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), &p)))
			return
		}

		ip := clientIP(r)
		if blocked, remaining := m.limiter.Blocked(ip); blocked {
			w.Header().Set("Retry-After", strconv.Itoa(remaining))
			http.Error(w, "Too many failed attempts", http.StatusTooManyRequests)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			m.limiter.RecordFailure(ip)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		m.limiter.Reset(ip)

		p := &Principal{Subject: claims.Subject, Role: claims.Role}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireOperator rejects principals without the operator role.
// Use after RequireAuth or RequireWSToken.
func (m *Middleware) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		if p == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !p.IsOperator() {
			http.Error(w, "Forbidden: operator access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireWSToken checks the one-time token in the "token" query parameter
func (m *Middleware) RequireWSToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			p := anonymousOperator
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), &p)))
			return
		}

		p, ok := m.wsTokens.Validate(r.URL.Query().Get("token"))
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), &p)))
	})
}

// WSTokens returns the one-time token store
func (m *Middleware) WSTokens() *WSTokenStore {
	return m.wsTokens
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
