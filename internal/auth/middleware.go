package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/callpool-service/internal/domain"
	"github.com/spec-kit/callpool-service/internal/service"
	apperrors "github.com/spec-kit/callpool-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Moderator *domain.Moderator
}

// AuthMiddleware validates bearer tokens and maps them to moderators. A
// moderator record is created on first authenticated contact.
type AuthMiddleware struct {
	tokens     *TokenManager
	moderators *service.ModeratorService
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, moderators *service.ModeratorService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, moderators: moderators}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	moderator, err := m.moderators.EnsureModerator(c.Context(), claims.Contact, claims.DisplayName)
	if err != nil {
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{Moderator: moderator})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
