package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// RequireAuth checks the Authorization header for a bearer token signed with
// the server secret and attaches the token's identity to the echo context.
func RequireAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "No token provided"})
			}

			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token format"})
			}

			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token"})
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token payload"})
			}
			id, idOK := claims["id"].(float64)
			role, roleOK := claims["role"].(string)
			if !idOK || !roleOK {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token payload"})
			}

			setUserContext(c, uint(id), role)
			return next(c)
		}
	}
}

// AdminOnly must run after RequireAuth. It gates on role before the handler
// ever looks at the target resource, so a non-admin always gets 403.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, ok := c.Get("role").(string)
		if !ok || role != "admin" {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden: Admins only."})
		}
		return next(c)
	}
}

func setUserContext(c echo.Context, id uint, role string) {
	c.Set("userID", id)
	c.Set("role", role)
}

// GetUserID returns the identity attached by RequireAuth.
func GetUserID(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok {
		return 0, fmt.Errorf("no user in context")
	}
	return id, nil
}
