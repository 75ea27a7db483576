package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingToken = errors.New("missing token")
)

// userClaims carry only the caller id. Tokens are issued by the external auth
// service; extra claims it adds are ignored.
type userClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// UserContext is stored in c.Locals("user") by the auth middleware.
type UserContext struct {
	ID uuid.UUID
}

// ParseUserToken verifies an HS256 token and returns its caller.
func ParseUserToken(token, secret string) (*UserContext, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	var claims userClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user_id", ErrInvalidToken)
	}
	return &UserContext{ID: id}, nil
}

// GenerateToken signs a token for userID. incidentctl token and tests use it.
func GenerateToken(userID uuid.UUID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := userClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header,
// or "" when the header has another shape.
func BearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" || strings.Contains(token, " ") {
		return ""
	}
	return token
}

// CurrentUser returns the caller set by the auth middleware.
func CurrentUser(c *fiber.Ctx) (*UserContext, bool) {
	user, ok := c.Locals("user").(*UserContext)
	return user, ok && user != nil
}
