package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultInviteTTL bounds how long a minted invite link stays valid.
const DefaultInviteTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid or expired token")

type inviteClaims struct {
	Room string `json:"room"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies signed room invite tokens. A token grants
// a password-free join into exactly one room until it expires.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	nowFn  func() time.Time
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    DefaultInviteTTL,
		nowFn:  time.Now,
	}
}

func (t *TokenService) MintInvite(roomName string) (string, error) {
	now := t.nowFn()
	claims := inviteClaims{
		Room: roomName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// VerifyInvite implements chat.InviteVerifier.
func (t *TokenService) VerifyInvite(tokenString string) (string, error) {
	var claims inviteClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return t.nowFn() }))
	if err != nil || !token.Valid || claims.Room == "" {
		return "", ErrInvalidToken
	}
	return claims.Room, nil
}
