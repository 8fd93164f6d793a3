package service

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin — единственная роль, которой доступен API модерации.
const RoleAdmin = "admin"

// TokenManager проверяет JWT access токены основной платформы.
// Выпускает токены платформа; здесь общий секрет нужен для проверки
// подписи и извлечения клеймов.
type TokenManager struct {
	secret []byte
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// ParseAccess извлекает userID и роль из access токена.
func (m *TokenManager) ParseAccess(token string) (int64, string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return 0, "", err
	}
	if !parsed.Valid {
		return 0, "", jwt.ErrTokenInvalidClaims
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", jwt.ErrTokenInvalidClaims
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, "", jwt.ErrTokenInvalidClaims
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, "", jwt.ErrTokenInvalidClaims
	}

	role, _ := claims["role"].(string)

	return userID, role, nil
}

// IssueAccess выпускает access токен с тем же секретом.
// Используется в тестах и локальной отладке.
func (m *TokenManager) IssueAccess(userID int64, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
