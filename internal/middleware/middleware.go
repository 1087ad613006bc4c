package middleware

import (
	"strings"

	"kyokki-backend/domain"
	"kyokki-backend/internal/api/presenters"
	"kyokki-backend/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type (
	Middleware interface {
		CORSMiddleware() fiber.Handler
		AuthMiddleware(jwtService jwt.JWTService) fiber.Handler
	}

	middleware struct{}
)

func NewMiddleware() Middleware {
	return &middleware{}
}

func (m *middleware) CORSMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, PUT, DELETE, OPTIONS",
	})
}

// AuthMiddleware requires a bearer token when jwtService is set. Websocket
// clients that cannot send headers may pass the token as ?token=.
func (m *middleware) AuthMiddleware(jwtService jwt.JWTService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if jwtService == nil {
			return c.Next()
		}

		token := c.Query("token")
		if header := c.Get(fiber.HeaderAuthorization); header != "" {
			if !strings.HasPrefix(header, "Bearer ") {
				return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedTokenInvalid, domain.ErrTokenInvalid)
			}
			token = strings.TrimPrefix(header, "Bearer ")
		}
		if token == "" {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedGetToken, domain.ErrTokenNotFound)
		}

		clientID, err := jwtService.ValidateClientToken(token)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedTokenInvalid, err)
		}

		c.Locals("client_id", clientID)
		return c.Next()
	}
}
