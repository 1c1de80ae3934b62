package auth

import (
	"context"
	"fmt"
)

// Verifier validates access tokens and checks them against the blacklist
type Verifier struct {
	jwt       *JWTService
	blacklist TokenBlacklist
}

// NewVerifier creates a new Verifier. blacklist may be nil.
func NewVerifier(jwt *JWTService, blacklist TokenBlacklist) *Verifier {
	return &Verifier{jwt: jwt, blacklist: blacklist}
}

// Verify returns the claims of a valid, unrevoked access token
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := v.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	if v.blacklist == nil {
		return claims, nil
	}
	revoked, err := v.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenBlacklisted
	}
	revoked, err = v.blacklist.IsUserRevoked(ctx, claims.UserID, claims.GetIssuedAtTime())
	if err != nil {
		return nil, fmt.Errorf("check user revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenBlacklisted
	}
	return claims, nil
}

// Revoke blacklists the token for the rest of its lifetime
func (v *Verifier) Revoke(ctx context.Context, claims *Claims) error {
	if v.blacklist == nil {
		return nil
	}
	return v.blacklist.RevokeToken(ctx, claims.ID, claims.GetRemainingTTL())
}
