package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/rl1809/order-desk/internal/core/domain"
)

type Claims struct {
	UserID string `json:"user_id"`
	jwt.StandardClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens. The identity provider
// lives outside this service; issuing is kept for tooling and tests.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), now: time.Now}
}

func (t *TokenIssuer) Issue(userID string, ttl time.Duration) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: userID,
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	})
	return token.SignedString(t.secret)
}

// Principal validates a bearer value ("Bearer <jwt>" or the bare token) and
// returns the user id it carries.
func (t *TokenIssuer) Principal(bearer string) (string, error) {
	raw := strings.TrimSpace(bearer)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return "", domain.ErrAuthenticationRequired
	}
	if len(t.secret) == 0 {
		return "", fmt.Errorf("%w: token verification is not configured", domain.ErrAuthenticationRequired)
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid token", domain.ErrAuthenticationRequired)
	}

	claims, _ := token.Claims.(*Claims)
	if claims == nil || claims.UserID == "" {
		return "", fmt.Errorf("%w: token has no user", domain.ErrAuthenticationRequired)
	}
	return claims.UserID, nil
}
