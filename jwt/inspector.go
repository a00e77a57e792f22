package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when a token is not a parseable JWT.
var ErrNotJWT = errors.New("jwt: token is not a JWT")

// AccessClaims are the access-token claims the client cares about.
type AccessClaims struct {
	UID  string `json:"uid,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Inspector parses access tokens without signature verification.
type Inspector struct {
	leeway time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewInspector creates an [Inspector]. leeway is subtracted from a token's
// expiry when deciding whether it is already expired, so a token about to
// expire in flight counts as expired.
func NewInspector(leeway time.Duration) *Inspector {
	if leeway < 0 {
		leeway = 0
	}
	return &Inspector{
		leeway: leeway,
		now:    time.Now,
		parser: jwt.NewParser(),
	}
}

// Inspect decodes the claims of tokenStr.
func (i *Inspector) Inspect(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := i.parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim. ok is false for opaque tokens or tokens
// without exp.
func (i *Inspector) ExpiresAt(tokenStr string) (time.Time, bool) {
	claims, err := i.Inspect(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether tokenStr is known to be expired within leeway.
// Unknown expiry is never reported as expired.
func (i *Inspector) Expired(tokenStr string) bool {
	exp, ok := i.ExpiresAt(tokenStr)
	if !ok {
		return false
	}
	return !i.now().Add(i.leeway).Before(exp)
}
