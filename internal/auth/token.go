package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload shared with the auth collaborator. OwnerRef is the
// opaque user identifier carried into charging sessions.
type Claims struct {
	OwnerRef string `json:"owner_ref"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService validates (and, for tests and tooling, issues) bearer tokens.
type TokenService struct {
	secret    []byte
	expiresIn time.Duration
}

// NewTokenService returns a configured token service.
func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	return &TokenService{secret: []byte(secret), expiresIn: expiresIn}
}

// GenerateToken issues a JWT for the given owner.
func (t *TokenService) GenerateToken(ownerRef, role string) (string, error) {
	if ownerRef == "" {
		return "", errors.New("token: owner ref is required")
	}

	now := time.Now().UTC()
	claims := Claims{
		OwnerRef: ownerRef,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ValidateToken verifies and decodes a JWT.
func (t *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("token: unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.OwnerRef == "" {
			return nil, errors.New("token: owner ref missing")
		}
		return claims, nil
	}

	return nil, errors.New("token: invalid claims")
}
