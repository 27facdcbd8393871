package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/anonto42/inkwell/backend/internal/services"
	"github.com/labstack/echo/v4"
)

const maxPageSize = 50

// BlogHandler handles blog-related HTTP requests
type BlogHandler struct {
	blogService services.BlogService
}

// NewBlogHandler creates a new BlogHandler
func NewBlogHandler(blogService services.BlogService) *BlogHandler {
	return &BlogHandler{blogService: blogService}
}

// RegisterBlogRoutes registers blog routes. auth rejects anonymous callers, optionalAuth only
// identifies them when a token is present.
func (h *BlogHandler) RegisterBlogRoutes(g *echo.Group, auth, optionalAuth echo.MiddlewareFunc) {
	g.POST("/publish-blog", h.PublishBlog, auth)
	g.POST("/save-draft", h.SaveDraft, auth)
	g.GET("/blogs", h.GetBlogs, optionalAuth)
	g.GET("/trending", h.GetTrending)
	g.GET("/trending-tags", h.GetTrendingTags, auth)
	g.GET("/search", h.SearchBlogs, optionalAuth)
	g.GET("/:id", h.GetBlog, optionalAuth)
	g.POST("/:id/like", h.ToggleLike, auth)
}

func (h *BlogHandler) PublishBlog(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req models.PublishBlogRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	blog, err := h.blogService.Publish(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"status":  "success",
		"message": "Blog published successfully",
		"blog":    blog,
	})
}

func (h *BlogHandler) SaveDraft(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req models.SaveDraftRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	draft, err := h.blogService.SaveDraft(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Draft saved successfully!", "draft": draft})
}

// GetBlogs lists published blogs. Without a limit every blog is returned on one page.
func (h *BlogHandler) GetBlogs(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 0 {
		limit = 0
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	blogs, total, err := h.blogService.ListPublished(c.Request().Context(), page, limit, getUserIDFromContext(c))
	if err != nil {
		return err
	}

	itemsPerPage := limit
	if itemsPerPage == 0 {
		itemsPerPage = int(total)
	}
	totalPages := 1
	if itemsPerPage > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(itemsPerPage)))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"blogs": blogs,
		},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      total,
			"itemsPerPage":    itemsPerPage,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}

func (h *BlogHandler) GetTrending(c echo.Context) error {
	blogs, err := h.blogService.Trending(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, blogs)
}

func (h *BlogHandler) GetTrendingTags(c echo.Context) error {
	tags, err := h.blogService.TrendingTags(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tags)
}

func (h *BlogHandler) SearchBlogs(c echo.Context) error {
	blogs, err := h.blogService.Search(c.Request().Context(), c.QueryParam("q"), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, blogs)
}

// GetBlog returns a blog by its external id and counts the read
func (h *BlogHandler) GetBlog(c echo.Context) error {
	blog, err := h.blogService.Get(c.Request().Context(), c.Param("id"), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, blog)
}

// ToggleLike likes or unlikes a blog for the caller
func (h *BlogHandler) ToggleLike(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	result, err := h.blogService.ToggleLike(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return err
	}

	message := "Blog unliked successfully"
	if result.Liked {
		message = "Blog liked successfully"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"message": message,
		"liked":   result.Liked,
		"blog":    result.Blog,
	})
}
