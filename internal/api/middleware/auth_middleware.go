package middleware

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/postsphere/internal/api/handlers"
	"github.com/maheshrc27/postsphere/internal/service"
	"github.com/maheshrc27/postsphere/pkg/utils"
)

const apiKeyHeader = "X-API-Key"

type AuthMiddleware struct {
	s          service.ApiKeyService
	secretKey  string
	cookieName string
}

func NewAuthMiddleware(secretKey, cookieName string, service service.ApiKeyService) *AuthMiddleware {
	return &AuthMiddleware{s: service, secretKey: secretKey, cookieName: cookieName}
}

// AuthMiddleware accepts an API key (header or api_key query parameter) or
// the session cookie and stores the caller's id in the request locals.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cookieName)
		apiKey := c.Get(apiKeyHeader)
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if tokenString == "" && apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing api key or session cookie",
			})
		}

		if apiKey != "" {
			userID, err := m.s.GetUserID(c.Context(), apiKey)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "invalid api key",
				})
			}
			c.Locals(handlers.UserIDKey, userID)
			return c.Next()
		}

		claims, err := utils.ValidateToken(m.secretKey, tokenString)
		if err == nil {
			var userID int64
			userID, err = strconv.ParseInt(claims.UserID, 10, 64)
			if err == nil {
				c.Locals(handlers.UserIDKey, userID)
				return c.Next()
			}
		}

		c.ClearCookie(m.cookieName)
		slog.Info("session validation failed", "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid or expired session",
		})
	}
}
