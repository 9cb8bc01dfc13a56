package session

import (
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

// TokenInfo is what can be read from a session token without verifying it
type TokenInfo struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// InspectToken reads the registered claims of a JWT session token. The
// signature is not verified: the backend does that on every request, and the
// client only needs to know when to stop presenting the token. ok is false
// for opaque tokens.
func InspectToken(token string) (info TokenInfo, ok bool) {
	if strings.Count(token, ".") != 2 {
		return TokenInfo{}, false
	}
	parsed, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return TokenInfo{}, false
	}
	if sub, found := parsed.Subject(); found {
		info.Subject = sub
	}
	if iat, found := parsed.IssuedAt(); found {
		info.IssuedAt = iat
	}
	if exp, found := parsed.Expiration(); found {
		info.ExpiresAt = exp
	}
	return info, true
}
