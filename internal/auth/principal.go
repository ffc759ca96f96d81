// Package auth issues and checks the bearer tokens that protect the
// device's HTTP API.
package auth

import "context"

// Role is the access level granted by a token
type Role string

const (
	// RoleOperator may send commands and submit credentials
	RoleOperator Role = "operator"
	// RoleViewer may only read status, events and strip frames
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleOperator || r == RoleViewer
}

// Principal is the authenticated caller
type Principal struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}

// IsOperator returns true for operator principals
func (p *Principal) IsOperator() bool {
	return p.Role == RoleOperator
}

type contextKey string

const principalContextKey contextKey = "principal"

// PrincipalFromContext extracts the principal from a request context
func PrincipalFromContext(ctx context.Context) *Principal {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// WithPrincipal adds p to ctx
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
