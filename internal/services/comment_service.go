package services

import (
	"context"

	"github.com/anonto42/inkwell/backend/internal/apperrors"
	"github.com/anonto42/inkwell/backend/internal/cache"
	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/anonto42/inkwell/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CommentService manages the comment tree of a blog and keeps the blog's counters in step with it
type CommentService interface {
	ListByBlog(ctx context.Context, blogID primitive.ObjectID) ([]*models.CommentNode, error)
	Create(ctx context.Context, userID, blogID primitive.ObjectID, req models.CreateCommentRequest) (*models.CommentNode, error)
	Update(ctx context.Context, userID, commentID primitive.ObjectID, body string) (*models.CommentNode, error)
	Delete(ctx context.Context, userID, commentID primitive.ObjectID) (int64, error)
}

type commentService struct {
	comments  repositories.CommentRepository
	blogs     repositories.BlogRepository
	users     repositories.UserRepository
	tx        repositories.TxRunner
	cache     cache.TrendingCache // nil when Redis is not configured
	notifier  *Notifier
	sanitizer *Sanitizer
	log       *zap.Logger
}

func NewCommentService(
	comments repositories.CommentRepository,
	blogs repositories.BlogRepository,
	users repositories.UserRepository,
	tx repositories.TxRunner,
	trendingCache cache.TrendingCache,
	notifier *Notifier,
	log *zap.Logger,
) CommentService {
	return &commentService{
		comments:  comments,
		blogs:     blogs,
		users:     users,
		tx:        tx,
		cache:     trendingCache,
		notifier:  notifier,
		sanitizer: NewSanitizer(),
		log:       log,
	}
}

// ListByBlog returns the root comments of a blog with their replies nested beneath them,
// oldest first at every level
func (s *commentService) ListByBlog(ctx context.Context, blogID primitive.ObjectID) ([]*models.CommentNode, error) {
	if _, err := s.blogs.GetBlogByID(ctx, blogID); err != nil {
		return nil, err
	}

	comments, err := s.comments.GetCommentsByBlogID(ctx, blogID)
	if err != nil {
		return nil, err
	}

	authorIDs := make([]primitive.ObjectID, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.CommentedBy)
	}
	authors, err := loadAuthors(ctx, s.users, authorIDs)
	if err != nil {
		return nil, err
	}

	return buildCommentTree(comments, authors, s.log), nil
}

// buildCommentTree links comments to their parents. comments must already be sorted oldest first;
// the order carries over to every children list. Replies whose parent is missing are dropped.
func buildCommentTree(comments []models.Comment, authors map[primitive.ObjectID]models.UserCompact, log *zap.Logger) []*models.CommentNode {
	nodes := make(map[primitive.ObjectID]*models.CommentNode, len(comments))
	for i := range comments {
		nodes[comments[i].ID] = models.NewCommentNode(&comments[i], authors[comments[i].CommentedBy])
	}

	roots := []*models.CommentNode{}
	for i := range comments {
		node := nodes[comments[i].ID]
		if comments[i].Parent == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*comments[i].Parent]
		if !ok {
			log.Debug("Dropping orphaned reply", zap.String("comment_id", comments[i].ID.Hex()))
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}

// Create adds a root comment, or a reply when req.Parent is set
func (s *commentService) Create(ctx context.Context, userID, blogID primitive.ObjectID, req models.CreateCommentRequest) (*models.CommentNode, error) {
	if userID.IsZero() {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	body, ok := s.sanitizer.Clean(req.Comment)
	if !ok {
		return nil, apperrors.Validation("Comment cannot be empty.")
	}

	var parentID *primitive.ObjectID
	if req.Parent != "" {
		id, err := primitive.ObjectIDFromHex(req.Parent)
		if err != nil {
			return nil, apperrors.Validation("Invalid parent comment ID.")
		}
		parentID = &id
	}

	var (
		comment *models.Comment
		blog    *models.Blog
		parent  *models.Comment
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		blog, err = s.blogs.GetBlogByID(ctx, blogID)
		if err != nil {
			return err
		}

		comment = &models.Comment{
			BlogID:      blog.ID,
			BlogAuthor:  blog.Author,
			Comment:     body,
			CommentedBy: userID,
		}

		if parentID == nil {
			parent = nil
			if err := s.comments.CreateComment(ctx, comment); err != nil {
				return err
			}
			return s.blogs.ApplyCommentDelta(ctx, blog.ID, repositories.CommentDelta{
				TotalComments:       1,
				TotalParentComments: 1,
				AddRoot:             &comment.ID,
			})
		}

		parent, err = s.comments.GetCommentByID(ctx, *parentID)
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				return apperrors.NotFound("Parent comment not found.")
			}
			return err
		}
		if parent.BlogID != blog.ID {
			return apperrors.NotFound("Parent comment not found.")
		}

		comment.IsReply = true
		comment.Parent = parentID
		if err := s.comments.CreateComment(ctx, comment); err != nil {
			return err
		}
		if err := s.comments.AddChild(ctx, parent.ID, comment.ID); err != nil {
			return err
		}
		return s.blogs.ApplyCommentDelta(ctx, blog.ID, repositories.CommentDelta{TotalComments: 1})
	})
	if err != nil {
		return nil, err
	}

	invalidateTrending(ctx, s.cache, s.log)

	s.log.Info("Comment created",
		zap.String("comment_id", comment.ID.Hex()),
		zap.String("blog_id", blog.BlogID),
		zap.Bool("reply", comment.IsReply),
	)

	notification := &models.Notification{
		Type:        models.NotificationComment,
		BlogID:      blog.ID.Hex(),
		RecipientID: blog.Author.Hex(),
		ActorID:     userID.Hex(),
		CommentID:   comment.ID.Hex(),
	}
	if parent != nil {
		notification.Type = models.NotificationReply
		notification.RecipientID = parent.CommentedBy.Hex()
		notification.RepliedOnComment = parent.ID.Hex()
	}
	s.notifier.Notify(ctx, notification)

	return s.node(ctx, comment)
}

// Update replaces the body of a comment owned by userID
func (s *commentService) Update(ctx context.Context, userID, commentID primitive.ObjectID, body string) (*models.CommentNode, error) {
	if userID.IsZero() {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	clean, ok := s.sanitizer.Clean(body)
	if !ok {
		return nil, apperrors.Validation("Comment cannot be empty.")
	}

	comment, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.CommentedBy != userID {
		return nil, apperrors.Forbidden("You are not authorized to edit this comment.")
	}

	updated, err := s.comments.UpdateCommentBody(ctx, commentID, clean)
	if err != nil {
		return nil, err
	}
	return s.node(ctx, updated)
}

// Delete removes a comment owned by userID together with every reply beneath it,
// and returns how many comments were removed
func (s *commentService) Delete(ctx context.Context, userID, commentID primitive.ObjectID) (int64, error) {
	if userID.IsZero() {
		return 0, apperrors.Unauthorized("Authentication required")
	}

	comment, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return 0, err
	}
	if comment.CommentedBy != userID {
		return 0, apperrors.Forbidden("You are not authorized to delete this comment.")
	}

	var removed int64
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		descendants, err := s.collectDescendants(ctx, comment)
		if err != nil {
			return err
		}

		ids := append([]primitive.ObjectID{comment.ID}, descendants...)
		removed, err = s.comments.DeleteComments(ctx, ids)
		if err != nil {
			return err
		}
		if removed == 0 {
			// Already removed by a concurrent delete, which also settled the counters.
			return apperrors.NotFound("Comment not found")
		}

		delta := repositories.CommentDelta{TotalComments: -int(removed)}
		if comment.Parent == nil {
			delta.TotalParentComments = -1
			delta.RemoveRoot = &comment.ID
		}
		if err := s.blogs.ApplyCommentDelta(ctx, comment.BlogID, delta); err != nil {
			return err
		}

		if comment.Parent != nil {
			return s.comments.RemoveChild(ctx, *comment.Parent, comment.ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	invalidateTrending(ctx, s.cache, s.log)

	s.log.Info("Comment deleted",
		zap.String("comment_id", comment.ID.Hex()),
		zap.String("blog_id", comment.BlogID.Hex()),
		zap.Int64("removed", removed),
	)
	return removed, nil
}

// collectDescendants walks the subtree below root breadth first. Both the parent field and the
// children lists are followed, so a reply is found even if one of the two links is stale.
func (s *commentService) collectDescendants(ctx context.Context, root *models.Comment) ([]primitive.ObjectID, error) {
	seen := map[primitive.ObjectID]struct{}{root.ID: {}}
	var descendants []primitive.ObjectID

	visit := func(id primitive.ObjectID, next *[]primitive.ObjectID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		descendants = append(descendants, id)
		*next = append(*next, id)
	}

	var frontier []primitive.ObjectID
	for _, id := range root.Children {
		visit(id, &frontier)
	}
	frontier = append(frontier, root.ID)

	for len(frontier) > 0 {
		replies, err := s.comments.GetReplies(ctx, frontier)
		if err != nil {
			return nil, err
		}
		var next []primitive.ObjectID
		for _, r := range replies {
			visit(r.ID, &next)
			for _, child := range r.Children {
				visit(child, &next)
			}
		}
		frontier = next
	}
	return descendants, nil
}

func (s *commentService) node(ctx context.Context, c *models.Comment) (*models.CommentNode, error) {
	authors, err := loadAuthors(ctx, s.users, []primitive.ObjectID{c.CommentedBy})
	if err != nil {
		return nil, err
	}
	return models.NewCommentNode(c, authors[c.CommentedBy]), nil
}
