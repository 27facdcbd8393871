package handlers

import (
	"net/http"

	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/anonto42/inkwell/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// UserHandler handles the authenticated user's own profile
type UserHandler struct {
	userService services.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterProfileRoutes registers profile routes; the group must already require authentication
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("", h.GetUserDetails)
	g.GET("/", h.GetUserDetails)
	g.PUT("/update-user", h.UpdateUserDetails)
	g.GET("/blogs", h.GetUserBlogs)
}

// GetUserDetails returns the caller's profile
func (h *UserHandler) GetUserDetails(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	user, err := h.userService.GetDetails(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUserDetails applies a partial profile update
func (h *UserHandler) UpdateUserDetails(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req models.UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userService.UpdateDetails(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"message": "User details updated successfully",
		"user":    user,
	})
}

// GetUserBlogs returns the caller's blogs, drafts included
func (h *UserHandler) GetUserBlogs(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	blogs, err := h.userService.GetBlogs(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "blogs": blogs})
}
