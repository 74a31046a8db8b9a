// Package auth 处理管理员口令校验与访问令牌。
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AdminSubject 是管理员令牌的 sub 声明。
const AdminSubject = "admin"

var (
	ErrInvalidPassword = errors.New("invalid admin password")
	ErrInvalidToken    = errors.New("invalid token")
	ErrNotConfigured   = errors.New("admin password is not configured")
)

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Authenticator 校验管理员口令并签发、验证 HS256 令牌。
type Authenticator struct {
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(passwordHash, secret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		ttl:          ttl,
		now:          time.Now,
	}
}

// WithClock 替换时间源，便于测试。
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	if now != nil {
		a.now = now
	}
	return a
}

// VerifyPassword 比对明文口令与配置的 bcrypt 哈希。
func (a *Authenticator) VerifyPassword(password string) error {
	if len(a.passwordHash) == 0 {
		return ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// Login 校验口令并签发令牌。
func (a *Authenticator) Login(password string) (string, error) {
	if err := a.VerifyPassword(password); err != nil {
		return "", err
	}
	return a.IssueToken()
}

// IssueToken 签发管理员令牌。
func (a *Authenticator) IssueToken() (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   AdminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken 校验签名、过期时间与 sub 声明。
func (a *Authenticator) VerifyToken(token string) error {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	if claims.Subject != AdminSubject {
		return ErrInvalidToken
	}
	return nil
}
