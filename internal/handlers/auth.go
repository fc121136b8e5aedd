package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sweetshop/backend/internal/hash"
	authmw "github.com/sweetshop/backend/internal/middleware/auth"
	"github.com/sweetshop/backend/internal/models"
	"github.com/sweetshop/backend/internal/mykafka"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	emailRe    = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	Producer  *mykafka.Producer
}

// SignToken issues the 1-hour session token carried in the Authorization
// header. The payload is only the identity and the role.
func SignToken(userID uint, role string, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"id":   userID,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func authResponse(user *models.User, token string) echo.Map {
	return echo.Map{
		"userId":   user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
		"token":    token,
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return errorResponse(c, http.StatusBadRequest, "Please fill all required fields.")
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if !usernameRe.MatchString(req.Username) {
		return errorResponse(c, http.StatusBadRequest, "Username is invalid")
	}
	if !emailRe.MatchString(req.Email) {
		return errorResponse(c, http.StatusBadRequest, "Email is invalid")
	}

	role := req.Role
	if role == "" {
		role = "user"
	}
	if role != "user" && role != "admin" {
		return errorResponse(c, http.StatusBadRequest, "Role is invalid")
	}

	var existing models.User
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return errorResponse(c, http.StatusBadRequest, "User already exists with this email.")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup user: %w", err)
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
		Role:         role,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	token, err := SignToken(user.ID, user.Role, h.JWTSecret)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	publishEvent(c, h.Producer, TopicUserEvents, fmt.Sprint(user.ID), map[string]interface{}{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusCreated, authResponse(&user, token))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return errorResponse(c, http.StatusBadRequest, "Please fill all required fields.")
	}

	// Same message for unknown email and wrong password, so callers cannot
	// probe which accounts exist.
	var user models.User
	if err := h.DB.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusBadRequest, "Invalid email or password.")
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return errorResponse(c, http.StatusBadRequest, "Invalid email or password.")
	}

	token, err := SignToken(user.ID, user.Role, h.JWTSecret)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	publishEvent(c, h.Producer, TopicUserEvents, fmt.Sprint(user.ID), map[string]interface{}{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusOK, authResponse(&user, token))
}

// Protected is a probe route for clients to verify their token.
func (h *AuthHandler) Protected(c echo.Context) error {
	userID, err := authmw.GetUserID(c)
	if err != nil {
		return errorResponse(c, http.StatusUnauthorized, "Invalid token payload")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "This is a protected route",
		"userId":  userID,
	})
}
