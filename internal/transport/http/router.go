package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sweetshop/backend/internal/handlers"
	authmw "github.com/sweetshop/backend/internal/middleware/auth"
)

type Deps struct {
	DB               *gorm.DB
	JWTSecret        []byte
	AuthHandler      *handlers.AuthHandler
	SweetHandler     *handlers.SweetHandler
	InventoryHandler *handlers.InventoryHandler
}

func Register(e *echo.Echo, d *Deps) {
	requireAuth := authmw.RequireAuth(d.JWTSecret)

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Sweet Shop Management API is running")
	})

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)

	api.GET("/protected", d.AuthHandler.Protected, requireAuth)

	sweets := api.Group("/sweets")
	sweets.GET("", d.SweetHandler.GetSweets)
	sweets.GET("/search", d.SweetHandler.SearchSweets)
	sweets.POST("", d.SweetHandler.CreateSweet, requireAuth, authmw.AdminOnly)
	// PUT is deliberately left outside the auth chain: the upstream routing
	// table ships it ungated and the access policy is still undecided.
	sweets.PUT("/:id", d.SweetHandler.UpdateSweet)
	sweets.DELETE("/:id", d.SweetHandler.DeleteSweet, requireAuth, authmw.AdminOnly)
	sweets.POST("/:id/purchase", d.InventoryHandler.PurchaseSweet, requireAuth)
	sweets.POST("/:id/restock", d.InventoryHandler.RestockSweet, requireAuth, authmw.AdminOnly)
}

// ErrorHandler logs the real failure and hands the caller a generic 500.
// Handler-level failures are already mapped to JSON bodies before they get
// here; only unexpected errors and echo's own HTTP errors arrive.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg, ok := he.Message.(string)
			if !ok {
				msg = http.StatusText(he.Code)
			}
			_ = c.JSON(he.Code, echo.Map{"error": msg})
			return
		}

		log.Error("unhandled error",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"err", err,
		)
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}
