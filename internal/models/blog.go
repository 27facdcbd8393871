package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity is the denormalized counter bundle stored on a blog document
type Activity struct {
	TotalLikes          int `json:"total_likes" bson:"total_likes"`
	TotalComments       int `json:"total_comments" bson:"total_comments"`
	TotalReads          int `json:"total_reads" bson:"total_reads"`
	TotalParentComments int `json:"total_parent_comments" bson:"total_parent_comments"`
}

// Blog represents a blog post stored in MongoDB
type Blog struct {
	ID          primitive.ObjectID     `json:"id,omitempty" bson:"_id,omitempty"`
	BlogID      string                 `json:"blog_id" bson:"blog_id"` // External identifier used in URLs
	Title       string                 `json:"title" bson:"title"`
	Banner      string                 `json:"banner,omitempty" bson:"banner,omitempty"`
	Des         string                 `json:"des,omitempty" bson:"des,omitempty"`
	Content     map[string]interface{} `json:"content,omitempty" bson:"content,omitempty"` // Rich-text document, stored as-is
	Tags        []string               `json:"tags" bson:"tags"`
	Author      primitive.ObjectID     `json:"author" bson:"author"`
	Activity    Activity               `json:"activity" bson:"activity"`
	LikedBy     []primitive.ObjectID   `json:"-" bson:"liked_by"`
	Comments    []primitive.ObjectID   `json:"comments" bson:"comments"` // Root comments only
	Draft       bool                   `json:"draft" bson:"draft"`
	PublishedAt time.Time              `json:"publishedAt" bson:"publishedAt"`
	UpdatedAt   time.Time              `json:"updatedAt" bson:"updatedAt"`
}

// IsLikedBy reports whether userID is in the blog's liker set
func (b *Blog) IsLikedBy(userID primitive.ObjectID) bool {
	for _, id := range b.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// BlogView is a blog enriched with its author's public identity for list and detail views
type BlogView struct {
	Blog
	Author               UserCompact `json:"author"`
	LikesCount           int         `json:"likesCount"`
	CommentsCount        int         `json:"commentsCount"`
	IsLikedByCurrentUser bool        `json:"isLikedByCurrentUser"`
}

// NewBlogView builds the view of b with the given author
func NewBlogView(b Blog, author UserCompact) BlogView {
	return BlogView{
		Blog:          b,
		Author:        author,
		LikesCount:    b.Activity.TotalLikes,
		CommentsCount: b.Activity.TotalComments,
	}
}

// PublishBlogRequest defines the request body for publishing a blog
type PublishBlogRequest struct {
	Title   string                 `json:"title" validate:"required,max=200"`
	Banner  string                 `json:"banner,omitempty" validate:"omitempty,url"`
	Des     string                 `json:"des,omitempty" validate:"omitempty,max=200"`
	Content map[string]interface{} `json:"content"`
	Tags    []string               `json:"tags,omitempty" validate:"omitempty,max=10,dive,min=1,max=50"`
}

// SaveDraftRequest defines the request body for saving a draft. BlogID selects an existing draft to overwrite.
type SaveDraftRequest struct {
	BlogID  string                 `json:"blog_id,omitempty"`
	Title   string                 `json:"title,omitempty" validate:"omitempty,max=200"`
	Banner  string                 `json:"banner,omitempty" validate:"omitempty,url"`
	Des     string                 `json:"des,omitempty" validate:"omitempty,max=200"`
	Content map[string]interface{} `json:"content,omitempty"`
	Tags    []string               `json:"tags,omitempty" validate:"omitempty,max=10,dive,min=1,max=50"`
}

// LikeResult is returned by the like toggle
type LikeResult struct {
	Liked bool
	Blog  *Blog
}
