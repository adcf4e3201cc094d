package auth

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/callpool-service/pkg/util"
)

const adminKeyHeader = "X-Admin-Key"

// RequireAdminKey guards administrative endpoints with a shared key checked
// against a bcrypt hash from config. When no hash is configured the
// endpoints are disabled rather than left open.
func RequireAdminKey(keyHash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if keyHash == "" {
			return apperrors.NewForbidden("administrative access not configured")
		}
		provided := c.Get(adminKeyHeader)
		if provided == "" {
			return apperrors.NewUnauthorized("missing admin key")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(provided)); err != nil {
			return apperrors.NewUnauthorized("invalid admin key")
		}
		return c.Next()
	}
}
