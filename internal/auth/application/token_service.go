// Package application 会话令牌的签发与校验
package application

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession 会话令牌无效或已过期
var ErrInvalidSession = errors.New("invalid or expired session")

// SessionClaims 会话令牌的声明
type SessionClaims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService 基于 HS256 JWT 的会话令牌服务
type TokenService struct {
	secret      []byte
	ttl         time.Duration
	rememberTTL time.Duration
}

func NewTokenService(secret string, ttl, rememberTTL time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, rememberTTL: rememberTTL}
}

// Issue 签发会话令牌，remember 为真时采用较长有效期
func (s *TokenService) Issue(userID uint, username string, remember bool) (string, time.Time, error) {
	ttl := s.ttl
	if remember {
		ttl = s.rememberTTL
	}
	expiresAt := time.Now().Add(ttl)

	claims := SessionClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify 校验令牌并返回声明
func (s *TokenService) Verify(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
