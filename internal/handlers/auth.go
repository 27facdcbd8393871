package handlers

import (
	"net/http"

	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/anonto42/inkwell/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/google-login", h.GoogleLogin)
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Signup(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User created successfully.",
		"user":    res.User.PersonalInfo,
		"token":   res.Token,
	})
}

// Login handles local user authentication with email and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse(res))
}

// GoogleLogin exchanges a Firebase ID token for a session token
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req models.GoogleLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.GoogleLogin(c.Request().Context(), req.IDToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse(res))
}

func loginResponse(res *models.AuthResult) echo.Map {
	return echo.Map{
		"message": "Login successful.",
		"user": echo.Map{
			"id":          res.User.ID,
			"fullname":    res.User.PersonalInfo.Fullname,
			"email":       res.User.PersonalInfo.Email,
			"username":    res.User.PersonalInfo.Username,
			"profile_img": res.User.PersonalInfo.ProfileImg,
		},
		"token": res.Token,
	}
}
