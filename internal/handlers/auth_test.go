package handlers

import (
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/sweetshop/backend/internal/hash"
	"github.com/sweetshop/backend/internal/models"
)

func newAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()
	return &AuthHandler{DB: InitTestDB(t), JWTSecret: testSecret}
}

func TestRegister(t *testing.T) {
	h := newAuthHandler(t)
	e := echo.New()

	payload := map[string]string{
		"username": "testuser",
		"email":    "test@example.com",
		"password": "password",
	}
	c, rec := newJSONContext(t, e, http.MethodPost, "/api/auth/register", payload)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "testuser", body["username"])
	require.Equal(t, "test@example.com", body["email"])
	require.Equal(t, "user", body["role"])
	require.NotEmpty(t, body["userId"])
	require.NotEmpty(t, body["token"])
	require.NotContains(t, body, "password")
	require.NotContains(t, rec.Body.String(), "password")

	var stored models.User
	require.NoError(t, h.DB.Where("email = ?", "test@example.com").First(&stored).Error)
	require.NotEqual(t, "password", stored.PasswordHash)
	require.True(t, hash.CheckPassword(stored.PasswordHash, "password"))
}

func TestRegisterMissingFields(t *testing.T) {
	h := newAuthHandler(t)
	e := echo.New()

	for _, payload := range []map[string]string{
		{"email": "a@b.com", "password": "pw"},
		{"username": "user1", "password": "pw"},
		{"username": "user1", "email": "a@b.com"},
		{},
	} {
		c, rec := newJSONContext(t, e, http.MethodPost, "/api/auth/register", payload)
		require.NoError(t, h.Register(c))
		requireError(t, rec, http.StatusBadRequest, "Please fill all required fields.")
	}
}

func TestRegisterInvalidFormats(t *testing.T) {
	h := newAuthHandler(t)
	e := echo.New()

	c, rec := newJSONContext(t, e, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "bad user!",
		"email":    "a@b.com",
		"password": "pw",
	})
	require.NoError(t, h.Register(c))
	requireError(t, rec, http.StatusBadRequest, "Username is invalid")

	c, rec = newJSONContext(t, e, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "gooduser",
		"email":    "not-an-email",
		"password": "pw",
	})
	require.NoError(t, h.Register(c))
	requireError(t, rec, http.StatusBadRequest, "Email is invalid")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newAuthHandler(t)
	e := echo.New()

	first := map[string]string{
		"username": "first",
		"email":    "dup@example.com",
		"password": "password",
	}
	c, rec := newJSONContext(t, e, http.MethodPost, "/api/auth/register", first)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	// The conflict is on email alone; every other field differs.
	second := map[string]string{
		"username": "second",
		"email":    "dup@example.com",
		"password": "otherpassword",
	}
	c, rec = newJSONContext(t, e, http.MethodPost, "/api/auth/register", second)
	require.NoError(t, h.Register(c))
	requireError(t, rec, http.StatusBadRequest, "User already exists with this email.")
}

func TestRegisterAdminRole(t *testing.T) {
	h := newAuthHandler(t)
	e := echo.New()

	c, rec := newJSONContext(t, e, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "boss",
		"email":    "boss@example.com",
		"password": "password",
		"role":     "admin",
	})
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "admin", decodeBody(t, rec)["role"])
}

func TestLogin(t *testing.T) {
	h := newAuthHandler(t)
	e := echo.New()

	hashed, err := hash.HashPassword("password")
	require.NoError(t, err)
	user := models.User{Username: "testuser", Email: "test@example.com", PasswordHash: hashed, Role: "user"}
	require.NoError(t, h.DB.Create(&user).Error)

	c, rec := newJSONContext(t, e, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "test@example.com",
		"password": "password",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "testuser", body["username"])
	require.Equal(t, "user", body["role"])
	require.NotEmpty(t, body["token"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newAuthHandler(t)
	e := echo.New()

	hashed, err := hash.HashPassword("password")
	require.NoError(t, err)
	user := models.User{Username: "testuser", Email: "test@example.com", PasswordHash: hashed, Role: "user"}
	require.NoError(t, h.DB.Create(&user).Error)

	// Unknown email and wrong password produce the exact same response.
	for _, payload := range []map[string]string{
		{"email": "nobody@example.com", "password": "password"},
		{"email": "test@example.com", "password": "wrong"},
	} {
		c, rec := newJSONContext(t, e, http.MethodPost, "/api/auth/login", payload)
		require.NoError(t, h.Login(c))
		requireError(t, rec, http.StatusBadRequest, "Invalid email or password.")
	}

	c, rec := newJSONContext(t, e, http.MethodPost, "/api/auth/login", map[string]string{"email": "test@example.com"})
	require.NoError(t, h.Login(c))
	requireError(t, rec, http.StatusBadRequest, "Please fill all required fields.")
}

func TestTokenClaims(t *testing.T) {
	token, err := SignToken(42, "admin", testSecret)
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) { return testSecret, nil })
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	require.Equal(t, float64(42), claims["id"])
	require.Equal(t, "admin", claims["role"])
	require.NotEmpty(t, claims["exp"])
}
