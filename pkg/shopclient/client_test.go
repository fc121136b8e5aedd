package shopclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sweetshop/backend/internal/handlers"
	"github.com/sweetshop/backend/internal/models"
	httpserver "github.com/sweetshop/backend/internal/transport/http"
	"github.com/sweetshop/backend/pkg/shopclient"
)

var testSecret = []byte("test-secret")

// startServer runs the real route table against an in-memory database.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Sweet{}))

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())

	httpserver.Register(e, &httpserver.Deps{
		DB:               db,
		JWTSecret:        testSecret,
		AuthHandler:      &handlers.AuthHandler{DB: db, JWTSecret: testSecret},
		SweetHandler:     &handlers.SweetHandler{DB: db},
		InventoryHandler: &handlers.InventoryHandler{DB: db},
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func apiError(t *testing.T, err error) *shopclient.APIError {
	t.Helper()
	var apiErr *shopclient.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	return apiErr
}

func TestEndToEndScenario(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	admin := shopclient.NewClient(srv.URL)
	session, err := admin.Register(ctx, "shopadmin", "admin@example.com", "adminpassword", "admin")
	require.NoError(t, err)
	require.Equal(t, "admin", session.Role)
	require.NotEmpty(t, session.Token)

	sweet, err := admin.AddSweet(ctx, "Chocolate Bar", "chocolate", 2.5, 100)
	require.NoError(t, err)
	require.Equal(t, uint(100), sweet.Quantity)

	user := shopclient.NewClient(srv.URL)
	_, err = user.Register(ctx, "customer", "customer@example.com", "password", "")
	require.NoError(t, err)

	bought, msg, err := user.Purchase(ctx, sweet.ID, 5)
	require.NoError(t, err)
	require.Equal(t, "Purchased 5 Chocolate Bar(s)", msg)
	require.Equal(t, uint(95), bought.Quantity)

	restocked, msg, err := admin.Restock(ctx, sweet.ID, 20)
	require.NoError(t, err)
	require.Equal(t, "Restocked 20 Chocolate Bar(s)", msg)
	require.Equal(t, uint(115), restocked.Quantity)

	catalog, err := user.Sweets(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	require.Equal(t, uint(115), catalog[0].Quantity)
	require.Equal(t, catalog, user.Catalog())
}

func TestLoginRoundTrip(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	c := shopclient.NewClient(srv.URL)
	_, err := c.Register(ctx, "someone", "someone@example.com", "password", "")
	require.NoError(t, err)
	c.Logout()
	require.Nil(t, c.Session())

	session, err := c.Login(ctx, "someone@example.com", "password")
	require.NoError(t, err)
	require.Equal(t, "someone", session.Username)
	require.Equal(t, "user", session.Role)

	_, err = c.Login(ctx, "someone@example.com", "wrong")
	require.Equal(t, http.StatusBadRequest, apiError(t, err).StatusCode)
}

func TestAdminGateBeforeExistenceCheck(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	user := shopclient.NewClient(srv.URL)
	_, err := user.Register(ctx, "customer", "customer@example.com", "password", "")
	require.NoError(t, err)

	// Every admin route answers 403 for a non-admin token, even when the
	// target does not exist.
	_, err = user.AddSweet(ctx, "Fudge", "chocolate", 1.0, 1)
	require.Equal(t, http.StatusForbidden, apiError(t, err).StatusCode)

	err = user.DeleteSweet(ctx, 12345)
	require.Equal(t, http.StatusForbidden, apiError(t, err).StatusCode)

	_, _, err = user.Restock(ctx, 12345, 1)
	forbidden := apiError(t, err)
	require.Equal(t, http.StatusForbidden, forbidden.StatusCode)
	require.Equal(t, "Forbidden: Admins only.", forbidden.Message)
}

func TestUnauthenticatedRejected(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	anon := shopclient.NewClient(srv.URL)

	// Reads are public.
	_, err := anon.Sweets(ctx)
	require.NoError(t, err)
	_, err = anon.Search(ctx, "choc", "")
	require.NoError(t, err)

	// Purchase requires a token.
	_, _, err = anon.Purchase(ctx, 1, 1)
	noToken := apiError(t, err)
	require.Equal(t, http.StatusUnauthorized, noToken.StatusCode)
	require.Equal(t, "No token provided", noToken.Message)
}

func TestHealthRoute(t *testing.T) {
	srv := startServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateAndSearchThroughClient(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	admin := shopclient.NewClient(srv.URL)
	_, err := admin.Register(ctx, "shopadmin", "admin@example.com", "adminpassword", "admin")
	require.NoError(t, err)

	sweet, err := admin.AddSweet(ctx, "Gummy Bears", "gummy", 1.5, 20)
	require.NoError(t, err)

	price := 2.0
	updated, err := admin.UpdateSweet(ctx, sweet.ID, shopclient.SweetUpdate{Price: &price})
	require.NoError(t, err)
	require.Equal(t, 2.0, updated.Price)
	require.Equal(t, "Gummy Bears", updated.Name)

	found, err := admin.Search(ctx, "GUMMY", "")
	require.NoError(t, err)
	require.Len(t, found, 1)

	none, err := admin.Search(ctx, "chocolate", "")
	require.NoError(t, err)
	require.Empty(t, none)
}
