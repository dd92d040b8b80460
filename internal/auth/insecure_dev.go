package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/neighbora/neighbora-api/internal/shared"
)

// InsecureDevPrincipal decodes a JWT payload WITHOUT verifying its signature.
// It exists for local development against the provider's emulator and is only
// reachable when the gate runs without a provider and the insecure flag is set,
// which configuration loading refuses in production.
func InsecureDevPrincipal(token string) (*Principal, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: undecodable dev token", shared.ErrInvalidCredential)
	}
	uid := stringClaim(claims, "sub")
	if uid == "" {
		uid = stringClaim(claims, "uid")
	}
	if uid == "" {
		uid = stringClaim(claims, "user_id")
	}
	if uid == "" {
		return nil, fmt.Errorf("%w: dev token has no subject", shared.ErrInvalidCredential)
	}
	return &Principal{
		UID:    uid,
		Email:  stringClaim(claims, "email"),
		Name:   stringClaim(claims, "name"),
		Role:   RoleUser,
		Source: SourceInsecureDev,
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
