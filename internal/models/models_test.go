package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIsLikedBy(t *testing.T) {
	liker := primitive.NewObjectID()
	b := &Blog{LikedBy: []primitive.ObjectID{primitive.NewObjectID(), liker}}

	assert.True(t, b.IsLikedBy(liker))
	assert.False(t, b.IsLikedBy(primitive.NewObjectID()))
	assert.False(t, (&Blog{}).IsLikedBy(liker))
}

func TestNewBlogViewCopiesCounters(t *testing.T) {
	b := Blog{BlogID: "blog_x", Activity: Activity{TotalLikes: 3, TotalComments: 7}}

	v := NewBlogView(b, UserCompact{Username: "ann"})

	assert.Equal(t, 3, v.LikesCount)
	assert.Equal(t, 7, v.CommentsCount)
	assert.Equal(t, "ann", v.Author.Username)
}

func TestNewCommentNodeSerializesEmptyChildren(t *testing.T) {
	c := &Comment{ID: primitive.NewObjectID(), Comment: "hello"}

	data, err := json.Marshal(NewCommentNode(c, UserCompact{}))
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, []interface{}{}, out["children"])
	assert.Nil(t, out["parent"])
}

func TestBlogLikersAreNotSerialized(t *testing.T) {
	data, err := json.Marshal(Blog{LikedBy: []primitive.ObjectID{primitive.NewObjectID()}})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "liked_by")
	assert.NotContains(t, string(data), "LikedBy")
}
