package models

import "time"

const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationReply   = "reply"
)

// Notification represents a user notification (PostgreSQL). Mongo references are stored as hex strings.
type Notification struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Type             string    `json:"type" gorm:"size:20;index"` // like, comment, reply
	BlogID           string    `json:"blog_id" gorm:"size:24;index"`
	RecipientID      string    `json:"recipient_id" gorm:"size:24;index"`
	ActorID          string    `json:"actor_id" gorm:"size:24"`
	CommentID        string    `json:"comment_id,omitempty" gorm:"size:24"`
	RepliedOnComment string    `json:"replied_on_comment,omitempty" gorm:"size:24"`
	Seen             bool      `json:"seen" gorm:"default:false;index"`
	CreatedAt        time.Time `json:"created_at" gorm:"index"`
}
