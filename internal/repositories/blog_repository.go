package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/anonto42/inkwell/backend/internal/apperrors"
	"github.com/anonto42/inkwell/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CommentDelta is one atomic adjustment of a blog's comment bookkeeping
type CommentDelta struct {
	TotalComments       int
	TotalParentComments int
	AddRoot             *primitive.ObjectID // pushed onto the blog's top-level comments
	RemoveRoot          *primitive.ObjectID // pulled from the blog's top-level comments
}

// BlogRepository defines the interface for blog data operations
type BlogRepository interface {
	CreateBlog(ctx context.Context, blog *models.Blog) error
	GetBlogByID(ctx context.Context, id primitive.ObjectID) (*models.Blog, error)
	GetBlogByBlogID(ctx context.Context, blogID string) (*models.Blog, error)
	GetBlogsByBlogIDs(ctx context.Context, blogIDs []string) ([]models.Blog, error)
	BlogIDExists(ctx context.Context, blogID string) (bool, error)
	UpdateDraft(ctx context.Context, blogID string, authorID primitive.ObjectID, blog *models.Blog) (*models.Blog, error)
	GetPublishedBlogs(ctx context.Context, skip, limit int64) ([]models.Blog, int64, error)
	GetBlogsByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Blog, error)
	GetTrendingBlogs(ctx context.Context, limit int64) ([]models.Blog, error)
	GetTrendingTags(ctx context.Context, limit int64) ([]string, error)
	SearchPublished(ctx context.Context, query string, limit int64) ([]models.Blog, error)
	IncrementReads(ctx context.Context, id primitive.ObjectID) error
	ApplyCommentDelta(ctx context.Context, id primitive.ObjectID, delta CommentDelta) error
	ToggleLike(ctx context.Context, blogID string, userID primitive.ObjectID) (*models.LikeResult, error)
}

// MongoBlogRepository implements BlogRepository for MongoDB
type MongoBlogRepository struct {
	collection *mongo.Collection
}

// NewMongoBlogRepository creates a new MongoBlogRepository
func NewMongoBlogRepository(db *mongo.Database) *MongoBlogRepository {
	return &MongoBlogRepository{collection: db.Collection("blogs")}
}

// EnsureIndexes creates the indexes the blog queries rely on
func (r *MongoBlogRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "blog_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "draft", Value: 1}, {Key: "publishedAt", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
	})
	return err
}

// CreateBlog inserts a new blog
func (r *MongoBlogRepository) CreateBlog(ctx context.Context, blog *models.Blog) error {
	blog.ID = primitive.NewObjectID()
	blog.PublishedAt = time.Now()
	blog.UpdatedAt = blog.PublishedAt
	if blog.Tags == nil {
		blog.Tags = []string{}
	}
	if blog.LikedBy == nil {
		blog.LikedBy = []primitive.ObjectID{}
	}
	if blog.Comments == nil {
		blog.Comments = []primitive.ObjectID{}
	}
	if _, err := r.collection.InsertOne(ctx, blog); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("A blog with this ID already exists. Please try again.")
		}
		return fmt.Errorf("insert blog: %w", err)
	}
	return nil
}

// GetBlogByID retrieves a blog by its document ID
func (r *MongoBlogRepository) GetBlogByID(ctx context.Context, id primitive.ObjectID) (*models.Blog, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetBlogByBlogID retrieves a blog by its external identifier
func (r *MongoBlogRepository) GetBlogByBlogID(ctx context.Context, blogID string) (*models.Blog, error) {
	return r.findOne(ctx, bson.M{"blog_id": blogID})
}

func (r *MongoBlogRepository) findOne(ctx context.Context, filter bson.M) (*models.Blog, error) {
	var blog models.Blog
	if err := r.collection.FindOne(ctx, filter).Decode(&blog); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("Blog not found")
		}
		return nil, fmt.Errorf("find blog: %w", err)
	}
	return &blog, nil
}

// GetBlogsByBlogIDs retrieves published blogs by external identifier, preserving the given order
func (r *MongoBlogRepository) GetBlogsByBlogIDs(ctx context.Context, blogIDs []string) ([]models.Blog, error) {
	if len(blogIDs) == 0 {
		return []models.Blog{}, nil
	}
	blogs, err := r.find(ctx, bson.M{"blog_id": bson.M{"$in": blogIDs}, "draft": false}, options.Find())
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Blog, len(blogs))
	for _, b := range blogs {
		byID[b.BlogID] = b
	}
	ordered := make([]models.Blog, 0, len(blogs))
	for _, id := range blogIDs {
		if b, ok := byID[id]; ok {
			ordered = append(ordered, b)
		}
	}
	return ordered, nil
}

// BlogIDExists checks whether an external identifier is already taken
func (r *MongoBlogRepository) BlogIDExists(ctx context.Context, blogID string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"blog_id": blogID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count blogs: %w", err)
	}
	return n > 0, nil
}

// UpdateDraft overwrites the editable fields of the author's draft
func (r *MongoBlogRepository) UpdateDraft(ctx context.Context, blogID string, authorID primitive.ObjectID, blog *models.Blog) (*models.Blog, error) {
	tags := blog.Tags
	if tags == nil {
		tags = []string{}
	}
	update := bson.M{
		"$set": bson.M{
			"title":     blog.Title,
			"banner":    blog.Banner,
			"des":       blog.Des,
			"content":   blog.Content,
			"tags":      tags,
			"updatedAt": time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Blog
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"blog_id": blogID, "author": authorID, "draft": true}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("Draft not found or unauthorized to update.")
		}
		return nil, fmt.Errorf("update draft: %w", err)
	}
	return &updated, nil
}

// GetPublishedBlogs retrieves published blogs newest first, with the total count for pagination
func (r *MongoBlogRepository) GetPublishedBlogs(ctx context.Context, skip, limit int64) ([]models.Blog, int64, error) {
	filter := bson.M{"draft": false}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count blogs: %w", err)
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "publishedAt", Value: -1}}).SetSkip(skip)
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	blogs, err := r.find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	return blogs, total, nil
}

// GetBlogsByAuthor retrieves all blogs (drafts included) of an author, newest first
func (r *MongoBlogRepository) GetBlogsByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Blog, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "publishedAt", Value: -1}}).
		SetProjection(bson.M{"blog_id": 1, "title": 1, "content": 1, "publishedAt": 1, "draft": 1, "activity": 1, "author": 1})
	return r.find(ctx, bson.M{"author": authorID}, findOptions)
}

// GetTrendingBlogs ranks published blogs by a weighted activity score
func (r *MongoBlogRepository) GetTrendingBlogs(ctx context.Context, limit int64) ([]models.Blog, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"draft": false}}},
		{{Key: "$addFields", Value: bson.M{
			"trendingScore": bson.M{"$add": bson.A{
				bson.M{"$multiply": bson.A{"$activity.total_reads", 0.5}},
				bson.M{"$multiply": bson.A{"$activity.total_likes", 0.3}},
				bson.M{"$multiply": bson.A{"$activity.total_comments", 0.2}},
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "trendingScore", Value: -1}, {Key: "publishedAt", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate trending blogs: %w", err)
	}
	defer cursor.Close(ctx)

	blogs := []models.Blog{}
	if err := cursor.All(ctx, &blogs); err != nil {
		return nil, fmt.Errorf("decode trending blogs: %w", err)
	}
	return blogs, nil
}

// GetTrendingTags returns the most used tags among published blogs
func (r *MongoBlogRepository) GetTrendingTags(ctx context.Context, limit int64) ([]string, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"draft": false}}},
		{{Key: "$unwind", Value: "$tags"}},
		{{Key: "$group", Value: bson.M{"_id": "$tags", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate trending tags: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Tag string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode trending tags: %w", err)
	}
	tags := make([]string, 0, len(rows))
	for _, row := range rows {
		tags = append(tags, row.Tag)
	}
	return tags, nil
}

// SearchPublished is the fallback search used when no search index is configured
func (r *MongoBlogRepository) SearchPublished(ctx context.Context, query string, limit int64) ([]models.Blog, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{
		"draft": false,
		"$or": bson.A{
			bson.M{"title": pattern},
			bson.M{"des": pattern},
			bson.M{"tags": pattern},
		},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "publishedAt", Value: -1}}).SetLimit(limit)
	return r.find(ctx, filter, findOptions)
}

// IncrementReads increments the read counter of a blog
func (r *MongoBlogRepository) IncrementReads(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "draft": false}, bson.M{"$inc": bson.M{"activity.total_reads": 1}})
	if err != nil {
		return fmt.Errorf("increment reads: %w", err)
	}
	return nil
}

// ApplyCommentDelta adjusts comment counters and the top-level comment list in a single update
func (r *MongoBlogRepository) ApplyCommentDelta(ctx context.Context, id primitive.ObjectID, delta CommentDelta) error {
	update := commentDeltaUpdate(delta)
	if len(update) == 0 {
		return nil
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update blog activity: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("Blog not found")
	}
	return nil
}

func commentDeltaUpdate(delta CommentDelta) bson.M {
	update := bson.M{}
	inc := bson.M{}
	if delta.TotalComments != 0 {
		inc["activity.total_comments"] = delta.TotalComments
	}
	if delta.TotalParentComments != 0 {
		inc["activity.total_parent_comments"] = delta.TotalParentComments
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	if delta.AddRoot != nil {
		update["$addToSet"] = bson.M{"comments": *delta.AddRoot}
	}
	if delta.RemoveRoot != nil {
		update["$pull"] = bson.M{"comments": *delta.RemoveRoot}
	}
	return update
}

// ToggleLike flips the user's membership in the liker set. Each branch is a single conditional
// update, so concurrent toggles by the same user cannot double count.
func (r *MongoBlogRepository) ToggleLike(ctx context.Context, blogID string, userID primitive.ObjectID) (*models.LikeResult, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	// A concurrent toggle can flip membership between the two attempts; one more round settles it.
	for attempt := 0; attempt < 2; attempt++ {
		var blog models.Blog
		filter, update := likeQuery(blogID, userID, true)
		err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&blog)
		if err == nil {
			return &models.LikeResult{Liked: true, Blog: &blog}, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("like blog: %w", err)
		}

		filter, update = likeQuery(blogID, userID, false)
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&blog)
		if err == nil {
			return &models.LikeResult{Liked: false, Blog: &blog}, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("unlike blog: %w", err)
		}

		exists, err := r.BlogIDExists(ctx, blogID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.NotFound("Blog not found")
		}
	}
	return nil, apperrors.Conflict("Like status changed concurrently, please retry")
}

// likeQuery builds the conditional update for one direction of a like toggle. The filter only
// matches when the user's membership is the opposite of the target state, so the counter moves
// exactly when the set changes.
func likeQuery(blogID string, userID primitive.ObjectID, like bool) (filter, update bson.M) {
	if like {
		return bson.M{"blog_id": blogID, "liked_by": bson.M{"$ne": userID}},
			bson.M{"$addToSet": bson.M{"liked_by": userID}, "$inc": bson.M{"activity.total_likes": 1}}
	}
	return bson.M{"blog_id": blogID, "liked_by": userID},
		bson.M{"$pull": bson.M{"liked_by": userID}, "$inc": bson.M{"activity.total_likes": -1}}
}

func (r *MongoBlogRepository) find(ctx context.Context, filter bson.M, findOptions *options.FindOptions) ([]models.Blog, error) {
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("find blogs: %w", err)
	}
	defer cursor.Close(ctx)

	blogs := []models.Blog{}
	if err := cursor.All(ctx, &blogs); err != nil {
		return nil, fmt.Errorf("decode blogs: %w", err)
	}
	return blogs, nil
}
