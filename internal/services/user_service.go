package services

import (
	"context"
	"strings"

	"github.com/anonto42/inkwell/backend/internal/apperrors"
	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/anonto42/inkwell/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserService interface {
	GetDetails(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	UpdateDetails(ctx context.Context, userID primitive.ObjectID, req models.UpdateUserRequest) (*models.User, error)
	GetBlogs(ctx context.Context, userID primitive.ObjectID) ([]models.Blog, error)
}

type userService struct {
	users repositories.UserRepository
	blogs repositories.BlogRepository
	log   *zap.Logger
}

func NewUserService(users repositories.UserRepository, blogs repositories.BlogRepository, log *zap.Logger) UserService {
	return &userService{users: users, blogs: blogs, log: log}
}

func (s *userService) GetDetails(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	if userID.IsZero() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, err
	}
	return user, nil
}

// UpdateDetails applies the fields present in req
func (s *userService) UpdateDetails(ctx context.Context, userID primitive.ObjectID, req models.UpdateUserRequest) (*models.User, error) {
	if userID.IsZero() {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	fields := updateFields(req)
	if len(fields) == 0 {
		return s.GetDetails(ctx, userID)
	}

	user, err := s.users.UpdateUserFields(ctx, userID, fields)
	if err != nil {
		return nil, err
	}
	s.log.Info("User updated", zap.String("user_id", userID.Hex()), zap.Int("fields", len(fields)))
	return user, nil
}

func updateFields(req models.UpdateUserRequest) map[string]interface{} {
	fields := map[string]interface{}{}
	set := func(key string, v *string, transform func(string) string) {
		if v == nil {
			return
		}
		value := strings.TrimSpace(*v)
		if transform != nil {
			value = transform(value)
		}
		fields[key] = value
	}

	if p := req.PersonalInfo; p != nil {
		set("personal_info.fullname", p.Fullname, strings.ToLower)
		set("personal_info.username", p.Username, nil)
		set("personal_info.bio", p.Bio, nil)
		set("personal_info.profile_img", p.ProfileImg, nil)
	}
	if l := req.SocialLinks; l != nil {
		set("social_links.youtube", l.Youtube, nil)
		set("social_links.instagram", l.Instagram, nil)
		set("social_links.facebook", l.Facebook, nil)
		set("social_links.twitter", l.Twitter, nil)
		set("social_links.github", l.Github, nil)
		set("social_links.website", l.Website, nil)
	}
	return fields
}

// GetBlogs returns every blog of the user, drafts included, newest first
func (s *userService) GetBlogs(ctx context.Context, userID primitive.ObjectID) ([]models.Blog, error) {
	if userID.IsZero() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	return s.blogs.GetBlogsByAuthor(ctx, userID)
}
