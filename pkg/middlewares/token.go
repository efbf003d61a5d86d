package middlewares

import (
	"fmt"

	"supply_chat_service/pkg"
	t_token "supply_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var knownRoles = []string{
	string(t_token.RoleVendor),
	string(t_token.RoleSupplier),
	string(t_token.RoleGuest),
}

const (
	// QueryToken token in query name
	QueryToken = "auth"

	// CookieToken token in cookie name
	CookieToken = "auth_token"

	// TokenUserID get user id from token, set c.locals name
	TokenUserID = "UserID"
	// TokenUserName get display name from token, set c.locals name
	TokenUserName = "UserName"
	// TokenRole get role from token, set c.locals name
	TokenRole = "role"
)

// JWTMiddleware validates the JWT from query or cookie. A missing token does
// not reject the request: location chat is open to anonymous vendors, so the
// connection gets a generated guest identity instead. Order chat checks the
// role later and turns guests away there.
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Query(QueryToken)
		if tokenStr == "" {
			tokenStr = c.Cookies(CookieToken)
		}

		if tokenStr == "" {
			guestID := "guest-" + uuid.New().String()[:8]
			c.Locals(TokenUserID, guestID)
			c.Locals(TokenUserName, fmt.Sprintf("Guest %s", guestID[6:]))
			c.Locals(TokenRole, string(t_token.RoleGuest))
			return c.Next()
		}

		token, err := jwt.ParseWithClaims(tokenStr, &t_token.Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Unexpected signing method")
			}
			return t_token.JWTSecret, nil
		})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		if claims, ok := token.Claims.(*t_token.Claims); ok && token.Valid {
			if !pkg.Contains(knownRoles, claims.Role) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Unknown role",
				})
			}
			c.Locals(TokenUserID, claims.UserID)
			c.Locals(TokenUserName, claims.UserName)
			c.Locals(TokenRole, claims.Role)
		} else {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token claims",
			})
		}

		return c.Next()
	}
}
