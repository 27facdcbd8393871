package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/inkwell/backend/internal/apperrors"
	"github.com/anonto42/inkwell/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateUserFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) (*models.User, error)
	AddBlog(ctx context.Context, userID, blogID primitive.ObjectID) error
	SetLikedBlog(ctx context.Context, userID, blogID primitive.ObjectID, liked bool) error
	IncrementTotalReads(ctx context.Context, userID primitive.ObjectID) error
}

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

// EnsureIndexes creates the unique indexes on email, username and Firebase UID
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "personal_info.email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "personal_info.username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "firebase_uid", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	})
	return err
}

// CreateUser inserts a new user
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.JoinedAt = time.Now()
	user.UpdatedAt = user.JoinedAt
	if user.Blogs == nil {
		user.Blogs = []primitive.ObjectID{}
	}
	if user.LikedBlogs == nil {
		user.LikedBlogs = []primitive.ObjectID{}
	}
	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if conflict := duplicateUserError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetUserByEmail retrieves a user by email (emails are stored lowercase)
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"personal_info.email": strings.ToLower(email)})
}

// GetUserByFirebaseUID retrieves a user by Firebase UID
func (r *MongoUserRepository) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"firebase_uid": firebaseUID})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("User not found.")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// GetUsersByIDs retrieves the public part of several users at once
func (r *MongoUserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	findOptions := options.Find().SetProjection(bson.M{
		"personal_info.username":    1,
		"personal_info.fullname":    1,
		"personal_info.profile_img": 1,
	})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

// UsernameExists checks whether a username is taken
func (r *MongoUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"personal_info.username": username}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

// UpdateUserFields sets the given dotted fields and returns the updated user
func (r *MongoUserRepository) UpdateUserFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now()}
	for k, v := range fields {
		set[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("User not found.")
		}
		if conflict := duplicateUserError(err); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

// AddBlog records a newly published blog on its author
func (r *MongoUserRepository) AddBlog(ctx context.Context, userID, blogID primitive.ObjectID) error {
	update := bson.M{
		"$addToSet": bson.M{"blogs": blogID},
		"$inc":      bson.M{"account_info.total_posts": 1},
	}
	return r.updateOne(ctx, userID, update)
}

// SetLikedBlog mirrors a like toggle in the user's liked blogs
func (r *MongoUserRepository) SetLikedBlog(ctx context.Context, userID, blogID primitive.ObjectID, liked bool) error {
	update := bson.M{"$pull": bson.M{"liked_blogs": blogID}}
	if liked {
		update = bson.M{"$addToSet": bson.M{"liked_blogs": blogID}}
	}
	return r.updateOne(ctx, userID, update)
}

// IncrementTotalReads counts a read on one of the user's blogs
func (r *MongoUserRepository) IncrementTotalReads(ctx context.Context, userID primitive.ObjectID) error {
	return r.updateOne(ctx, userID, bson.M{"$inc": bson.M{"account_info.total_reads": 1}})
}

func (r *MongoUserRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("User not found.")
	}
	return nil
}

func duplicateUserError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if strings.Contains(err.Error(), "username") {
		return apperrors.Conflict("Username already taken.")
	}
	return apperrors.Conflict("Email already registered.")
}
