package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment represents a comment on a blog stored in MongoDB
type Comment struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	BlogID      primitive.ObjectID   `json:"blog_id" bson:"blog_id"`
	BlogAuthor  primitive.ObjectID   `json:"blog_author" bson:"blog_author"` // Denormalized from the blog
	Comment     string               `json:"comment" bson:"comment"`         // Sanitized HTML
	Children    []primitive.ObjectID `json:"children" bson:"children"`
	CommentedBy primitive.ObjectID   `json:"commented_by" bson:"commented_by"`
	IsReply     bool                 `json:"isReply" bson:"isReply"`
	Parent      *primitive.ObjectID  `json:"parent" bson:"parent"` // nil for root comments
	CommentedAt time.Time            `json:"commentedAt" bson:"commentedAt"`
	UpdatedAt   time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// CommentNode is a comment with its author identity populated and its replies attached
type CommentNode struct {
	ID          primitive.ObjectID  `json:"id"`
	BlogID      primitive.ObjectID  `json:"blog_id"`
	BlogAuthor  primitive.ObjectID  `json:"blog_author"`
	Comment     string              `json:"comment"`
	CommentedBy UserCompact         `json:"commented_by"`
	IsReply     bool                `json:"isReply"`
	Parent      *primitive.ObjectID `json:"parent"`
	CommentedAt time.Time           `json:"commentedAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Children    []*CommentNode      `json:"children"`
}

// NewCommentNode builds a node without children
func NewCommentNode(c *Comment, author UserCompact) *CommentNode {
	return &CommentNode{
		ID:          c.ID,
		BlogID:      c.BlogID,
		BlogAuthor:  c.BlogAuthor,
		Comment:     c.Comment,
		CommentedBy: author,
		IsReply:     c.IsReply,
		Parent:      c.Parent,
		CommentedAt: c.CommentedAt,
		UpdatedAt:   c.UpdatedAt,
		Children:    []*CommentNode{},
	}
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Comment string `json:"comment" validate:"required,max=5000"`
	Parent  string `json:"parent,omitempty" validate:"omitempty,len=24,hexadecimal"`
}

// UpdateCommentRequest defines the request body for updating an existing comment
type UpdateCommentRequest struct {
	Comment string `json:"comment" validate:"required,max=5000"`
}
