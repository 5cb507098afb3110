package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/modelhub/modelhub/pkg/contract"
	"github.com/modelhub/modelhub/pkg/entities"
)

const accountKey = "modelhub.account"

// Claims identify the caller. The subject is the account id.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// NewToken signs an HS256 token for account, valid for ttl.
func NewToken(secret []byte, account entities.Account, ttl time.Duration) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name: account.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

func unauthenticated(message string) *contract.Error {
	return contract.NewError(contract.ErrorCodeUnauthenticated, message)
}

// VerifyToken checks signature and expiry and resolves the account.
func VerifyToken(secret []byte, raw string) (entities.Account, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return entities.Account{}, unauthenticated("token has expired")
		case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return entities.Account{}, unauthenticated("token is invalid")
		default:
			return entities.Account{}, unauthenticated("token rejected: " + err.Error())
		}
	}

	if claims.Subject == "" {
		return entities.Account{}, unauthenticated("token has no subject")
	}

	return entities.Account{ID: claims.Subject, Name: claims.Name}, nil
}

// authenticate requires a bearer token on every request it guards.
func authenticate(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme, raw, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || raw == "" {
			return unauthenticated("missing bearer token")
		}

		account, err := VerifyToken(secret, strings.TrimSpace(raw))
		if err != nil {
			return err
		}

		c.Locals(accountKey, account)

		return c.Next()
	}
}

func accountFrom(c *fiber.Ctx) entities.Account {
	account, _ := c.Locals(accountKey).(entities.Account)

	return account
}
