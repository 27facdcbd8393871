package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/inkwell/backend/internal/apperrors"
	"github.com/anonto42/inkwell/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	GetCommentsByBlogID(ctx context.Context, blogID primitive.ObjectID) ([]models.Comment, error)
	GetReplies(ctx context.Context, parentIDs []primitive.ObjectID) ([]models.Comment, error)
	UpdateCommentBody(ctx context.Context, id primitive.ObjectID, body string) (*models.Comment, error)
	AddChild(ctx context.Context, parentID, childID primitive.ObjectID) error
	RemoveChild(ctx context.Context, parentID, childID primitive.ObjectID) error
	DeleteComments(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

// MongoCommentRepository implements CommentRepository for MongoDB
type MongoCommentRepository struct {
	collection *mongo.Collection
}

// NewMongoCommentRepository creates a new MongoCommentRepository
func NewMongoCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{collection: db.Collection("comments")}
}

// EnsureIndexes creates the indexes used by tree assembly and cascade deletes
func (r *MongoCommentRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "blog_id", Value: 1}, {Key: "commentedAt", Value: 1}}},
		{Keys: bson.D{{Key: "parent", Value: 1}}},
	})
	return err
}

// CreateComment inserts a new comment
func (r *MongoCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	comment.ID = primitive.NewObjectID()
	comment.CommentedAt = time.Now()
	comment.UpdatedAt = comment.CommentedAt
	if comment.Children == nil {
		comment.Children = []primitive.ObjectID{}
	}
	if _, err := r.collection.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// GetCommentByID retrieves a comment by ID
func (r *MongoCommentRepository) GetCommentByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&comment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("Comment not found")
		}
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return &comment, nil
}

// GetCommentsByBlogID retrieves every comment of a blog, oldest first
func (r *MongoCommentRepository) GetCommentsByBlogID(ctx context.Context, blogID primitive.ObjectID) ([]models.Comment, error) {
	return r.find(ctx, bson.M{"blog_id": blogID})
}

// GetReplies retrieves the direct replies of the given comments
func (r *MongoCommentRepository) GetReplies(ctx context.Context, parentIDs []primitive.ObjectID) ([]models.Comment, error) {
	if len(parentIDs) == 0 {
		return []models.Comment{}, nil
	}
	return r.find(ctx, repliesFilter(parentIDs))
}

// UpdateCommentBody replaces the body of a comment and returns the updated document
func (r *MongoCommentRepository) UpdateCommentBody(ctx context.Context, id primitive.ObjectID, body string) (*models.Comment, error) {
	update := bson.M{"$set": bson.M{"comment": body, "updatedAt": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var comment models.Comment
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&comment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("Comment not found")
		}
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return &comment, nil
}

// AddChild links a reply into its parent's children list
func (r *MongoCommentRepository) AddChild(ctx context.Context, parentID, childID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": parentID}, childrenUpdate(childID, true))
	if err != nil {
		return fmt.Errorf("link reply: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("Parent comment not found.")
	}
	return nil
}

// RemoveChild unlinks a reply from its parent's children list. A missing parent is not an error.
func (r *MongoCommentRepository) RemoveChild(ctx context.Context, parentID, childID primitive.ObjectID) error {
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": parentID}, childrenUpdate(childID, false)); err != nil {
		return fmt.Errorf("unlink reply: %w", err)
	}
	return nil
}

// DeleteComments removes comments in bulk and reports how many were deleted
func (r *MongoCommentRepository) DeleteComments(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.collection.DeleteMany(ctx, idsFilter(ids))
	if err != nil {
		return 0, fmt.Errorf("delete comments: %w", err)
	}
	return res.DeletedCount, nil
}

func repliesFilter(parentIDs []primitive.ObjectID) bson.M {
	return bson.M{"parent": bson.M{"$in": parentIDs}}
}

func idsFilter(ids []primitive.ObjectID) bson.M {
	return bson.M{"_id": bson.M{"$in": ids}}
}

// childrenUpdate links or unlinks a reply in its parent's children list
func childrenUpdate(childID primitive.ObjectID, link bool) bson.M {
	if link {
		return bson.M{"$addToSet": bson.M{"children": childID}}
	}
	return bson.M{"$pull": bson.M{"children": childID}}
}

func (r *MongoCommentRepository) find(ctx context.Context, filter bson.M) ([]models.Comment, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "commentedAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}
