package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// Header names set by the trusted gateway.
const (
	HeaderSecret    = "X-Gateway-Secret"
	HeaderAccountID = "X-Account-Id"
)

var (
	// ErrAnonymous means the request carried no identity at all.
	ErrAnonymous = errors.New("auth: anonymous request")
	// ErrInvalid means identity was presented but could not be trusted.
	ErrInvalid = errors.New("auth: invalid credentials")
)

// Provider authenticates a request.
type Provider interface {
	Authenticate(r *http.Request) (Caller, error)
}

// RoleSource resolves the current role of an active account.
type RoleSource interface {
	AccountRole(ctx context.Context, id int64) (string, error)
}

// GatewayProvider trusts the account id forwarded by an upstream gateway
// that proves itself with a shared secret.  The role is always read from
// the account table, never from the request.
type GatewayProvider struct {
	secret []byte
	roles  RoleSource
}

// ErrNoSecret is returned by NewGatewayProvider for an empty secret.
var ErrNoSecret = errors.New("auth: gateway secret is empty")

// NewGatewayProvider returns a provider bound to secret.  An empty secret
// would match a request that omits the header, so it is refused.
func NewGatewayProvider(secret string, roles RoleSource) (*GatewayProvider, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &GatewayProvider{secret: []byte(secret), roles: roles}, nil
}

// Authenticate implements Provider.
func (p *GatewayProvider) Authenticate(r *http.Request) (Caller, error) {
	raw := r.Header.Get(HeaderAccountID)
	if raw == "" {
		return Caller{}, ErrAnonymous
	}
	if len(p.secret) == 0 ||
		subtle.ConstantTimeCompare([]byte(r.Header.Get(HeaderSecret)), p.secret) != 1 {
		return Caller{}, ErrInvalid
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return Caller{}, ErrInvalid
	}
	role, err := p.roles.AccountRole(r.Context(), id)
	if err != nil {
		return Caller{}, errors.Join(ErrInvalid, err)
	}
	return Caller{AccountID: id, Role: role}, nil
}

// Middleware attaches the authenticated caller when present.  Anonymous
// requests pass through untouched; requests with untrusted identity are
// rejected with 401.
func Middleware(p Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := p.Authenticate(r)
			switch {
			case err == nil:
				r = r.WithContext(WithCaller(r.Context(), c))
			case errors.Is(err, ErrAnonymous):
			default:
				zap.S().Warnw("authentication rejected", "path", r.URL.Path, "err", err)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
