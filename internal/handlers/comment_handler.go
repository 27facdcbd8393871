package handlers

import (
	"net/http"

	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/anonto42/inkwell/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentService services.CommentService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentService services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// RegisterCommentRoutes registers comment routes. The id is a blog id for GET and POST
// and a comment id for PUT and DELETE.
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/:id", h.GetCommentsByBlogID)
	g.POST("/:id", h.CreateComment, auth)
	g.PUT("/:id", h.UpdateComment, auth)
	g.DELETE("/:id", h.DeleteComment, auth)
}

// GetCommentsByBlogID returns the comment tree of a blog
func (h *CommentHandler) GetCommentsByBlogID(c echo.Context) error {
	blogID, err := objectIDParam(c, "id", "blog")
	if err != nil {
		return err
	}

	comments, err := h.commentService.ListByBlog(c.Request().Context(), blogID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comments)
}

// CreateComment adds a comment or a reply to a blog
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	blogID, err := objectIDParam(c, "id", "blog")
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.commentService.Create(c.Request().Context(), userID, blogID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}

// UpdateComment replaces the body of the caller's comment
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	commentID, err := objectIDParam(c, "id", "comment")
	if err != nil {
		return err
	}

	var req models.UpdateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.commentService.Update(c.Request().Context(), userID, commentID, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comment)
}

// DeleteComment removes the caller's comment and all replies beneath it
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	commentID, err := objectIDParam(c, "id", "comment")
	if err != nil {
		return err
	}

	removed, err := h.commentService.Delete(c.Request().Context(), userID, commentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Comment removed successfully.",
		"removed": removed,
	})
}
