package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/anonto42/inkwell/backend/internal/apperrors"
	"github.com/anonto42/inkwell/backend/internal/cache"
	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/anonto42/inkwell/backend/internal/repositories"
	"github.com/anonto42/inkwell/backend/internal/search"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	trendingBlogsLimit = 10
	trendingTagsLimit  = 10
	searchLimit        = 20
	blogIDAttempts     = 10

	maxSkip = math.MaxInt32 // largest listing offset
)

type BlogService interface {
	Publish(ctx context.Context, authorID primitive.ObjectID, req models.PublishBlogRequest) (*models.Blog, error)
	SaveDraft(ctx context.Context, authorID primitive.ObjectID, req models.SaveDraftRequest) (*models.Blog, error)
	ListPublished(ctx context.Context, page, limit int, viewerID primitive.ObjectID) ([]models.BlogView, int64, error)
	Trending(ctx context.Context) ([]models.BlogView, error)
	TrendingTags(ctx context.Context) ([]string, error)
	Search(ctx context.Context, query string, viewerID primitive.ObjectID) ([]models.BlogView, error)
	Get(ctx context.Context, blogID string, viewerID primitive.ObjectID) (*models.BlogView, error)
	ToggleLike(ctx context.Context, blogID string, userID primitive.ObjectID) (*models.LikeResult, error)
}

type blogService struct {
	blogs    repositories.BlogRepository
	users    repositories.UserRepository
	tx       repositories.TxRunner
	cache    cache.TrendingCache // nil when Redis is not configured
	index    search.BlogIndex    // nil when Elasticsearch is not configured
	notifier *Notifier
	log      *zap.Logger
	newID    func() string
}

func NewBlogService(
	blogs repositories.BlogRepository,
	users repositories.UserRepository,
	tx repositories.TxRunner,
	trendingCache cache.TrendingCache,
	index search.BlogIndex,
	notifier *Notifier,
	log *zap.Logger,
) BlogService {
	return &blogService{
		blogs:    blogs,
		users:    users,
		tx:       tx,
		cache:    trendingCache,
		index:    index,
		notifier: notifier,
		log:      log,
		newID:    NewBlogID,
	}
}

// Publish creates a published blog and links it to its author
func (s *blogService) Publish(ctx context.Context, authorID primitive.ObjectID, req models.PublishBlogRequest) (*models.Blog, error) {
	if authorID.IsZero() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.Validation("Title is required.")
	}
	if !HasBlogContent(req.Content) {
		return nil, apperrors.Validation("Blog content is required.")
	}

	blogID, err := s.uniqueBlogID(ctx)
	if err != nil {
		return nil, err
	}

	blog := &models.Blog{
		BlogID:  blogID,
		Title:   title,
		Banner:  req.Banner,
		Des:     strings.TrimSpace(req.Des),
		Content: req.Content,
		Tags:    normalizeTags(req.Tags),
		Author:  authorID,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.blogs.CreateBlog(ctx, blog); err != nil {
			return err
		}
		return s.users.AddBlog(ctx, authorID, blog.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Blog published", zap.String("blog_id", blog.BlogID), zap.String("author", authorID.Hex()))

	if s.index != nil {
		if err := s.index.IndexBlog(ctx, blog); err != nil {
			s.log.Warn("Failed to index blog", zap.String("blog_id", blog.BlogID), zap.Error(err))
		}
	}
	invalidateTrending(ctx, s.cache, s.log)
	return blog, nil
}

// SaveDraft creates a draft, or overwrites the caller's draft named by req.BlogID
func (s *blogService) SaveDraft(ctx context.Context, authorID primitive.ObjectID, req models.SaveDraftRequest) (*models.Blog, error) {
	if authorID.IsZero() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" && !hasAnyBlogContent(req.Content) {
		return nil, apperrors.Validation("At least a title or some content is required to save a draft.")
	}

	draft := &models.Blog{
		Title:   title,
		Banner:  req.Banner,
		Des:     strings.TrimSpace(req.Des),
		Content: req.Content,
		Tags:    normalizeTags(req.Tags),
		Author:  authorID,
		Draft:   true,
	}

	if req.BlogID != "" {
		return s.blogs.UpdateDraft(ctx, req.BlogID, authorID, draft)
	}

	blogID, err := s.uniqueBlogID(ctx)
	if err != nil {
		return nil, err
	}
	draft.BlogID = blogID
	if err := s.blogs.CreateBlog(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// ListPublished returns one page of published blogs, newest first. A limit of zero returns every blog.
func (s *blogService) ListPublished(ctx context.Context, page, limit int, viewerID primitive.ObjectID) ([]models.BlogView, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 0 && int64(page-1) > maxSkip/int64(limit) {
		return nil, 0, apperrors.Validation("Page is out of range.")
	}
	skip := int64(page-1) * int64(limit)

	blogs, total, err := s.blogs.GetPublishedBlogs(ctx, skip, int64(limit))
	if err != nil {
		return nil, 0, err
	}
	views, err := blogViews(ctx, s.users, blogs, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *blogService) Trending(ctx context.Context) ([]models.BlogView, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetTrendingBlogs(ctx)
		if err != nil {
			s.log.Warn("Trending cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	blogs, err := s.blogs.GetTrendingBlogs(ctx, trendingBlogsLimit)
	if err != nil {
		return nil, err
	}
	views, err := blogViews(ctx, s.users, blogs, primitive.NilObjectID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetTrendingBlogs(ctx, views); err != nil {
			s.log.Warn("Trending cache write failed", zap.Error(err))
		}
	}
	return views, nil
}

func (s *blogService) TrendingTags(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetTrendingTags(ctx)
		if err != nil {
			s.log.Warn("Trending tags cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	tags, err := s.blogs.GetTrendingTags(ctx, trendingTagsLimit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetTrendingTags(ctx, tags); err != nil {
			s.log.Warn("Trending tags cache write failed", zap.Error(err))
		}
	}
	return tags, nil
}

// Search matches published blogs by title, description and tags. Elasticsearch is used when
// configured; any failure there falls back to a database scan.
func (s *blogService) Search(ctx context.Context, query string, viewerID primitive.ObjectID) ([]models.BlogView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Validation("Search query 'q' is required")
	}

	var blogs []models.Blog
	if s.index != nil {
		ids, err := s.index.SearchBlogs(ctx, query, searchLimit)
		if err == nil {
			blogs, err = s.blogs.GetBlogsByBlogIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
		} else {
			s.log.Warn("Search index unavailable, falling back to database", zap.Error(err))
		}
	}
	if blogs == nil {
		var err error
		blogs, err = s.blogs.SearchPublished(ctx, query, searchLimit)
		if err != nil {
			return nil, err
		}
	}
	return blogViews(ctx, s.users, blogs, viewerID)
}

// Get returns a blog for reading. Reading a published blog counts a read for the blog and its author.
// Drafts are only visible to their author and are not counted.
func (s *blogService) Get(ctx context.Context, blogID string, viewerID primitive.ObjectID) (*models.BlogView, error) {
	blog, err := s.blogs.GetBlogByBlogID(ctx, blogID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.NotFound("Blog post not found")
		}
		return nil, err
	}
	if blog.Draft && blog.Author != viewerID {
		return nil, apperrors.NotFound("Blog post not found")
	}

	if !blog.Draft {
		if err := s.blogs.IncrementReads(ctx, blog.ID); err != nil {
			return nil, err
		}
		blog.Activity.TotalReads++
		if err := s.users.IncrementTotalReads(ctx, blog.Author); err != nil {
			s.log.Warn("Failed to count author read", zap.String("author", blog.Author.Hex()), zap.Error(err))
		}
	}

	authors, err := loadAuthors(ctx, s.users, []primitive.ObjectID{blog.Author})
	if err != nil {
		return nil, err
	}
	view := models.NewBlogView(*blog, authors[blog.Author])
	view.IsLikedByCurrentUser = !viewerID.IsZero() && blog.IsLikedBy(viewerID)
	return &view, nil
}

// ToggleLike likes the blog for userID, or removes the like if it is already there
func (s *blogService) ToggleLike(ctx context.Context, blogID string, userID primitive.ObjectID) (*models.LikeResult, error) {
	if userID.IsZero() {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	var result *models.LikeResult
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.blogs.ToggleLike(ctx, blogID, userID)
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				return apperrors.NotFound("Blog post not found")
			}
			return err
		}

		err = s.users.SetLikedBlog(ctx, userID, result.Blog.ID, result.Liked)
		if apperrors.Is(err, apperrors.KindNotFound) {
			// Without a transaction the blog side is already written; flip it back.
			if _, rerr := s.blogs.ToggleLike(ctx, blogID, userID); rerr != nil {
				s.log.Error("Failed to revert like for missing user",
					zap.String("blog_id", blogID), zap.String("user", userID.Hex()), zap.Error(rerr))
			}
			return apperrors.Unauthorized("User account not found")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	invalidateTrending(ctx, s.cache, s.log)

	if result.Liked {
		s.notifier.Notify(ctx, &models.Notification{
			Type:        models.NotificationLike,
			BlogID:      result.Blog.ID.Hex(),
			RecipientID: result.Blog.Author.Hex(),
			ActorID:     userID.Hex(),
		})
	}
	return result, nil
}

// invalidateTrending drops the cached trending listings after a change to the counters they rank by
func invalidateTrending(ctx context.Context, c cache.TrendingCache, log *zap.Logger) {
	if c == nil {
		return
	}
	if err := c.Invalidate(ctx); err != nil {
		log.Warn("Failed to invalidate trending cache", zap.Error(err))
	}
}

func (s *blogService) uniqueBlogID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < blogIDAttempts; attempt++ {
		id := s.newID()
		exists, err := s.blogs.BlogIDExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", apperrors.Internal(fmt.Errorf("no unique blog id after %d attempts", blogIDAttempts))
}

// normalizeTags lowercases tags and drops blanks and duplicates
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
