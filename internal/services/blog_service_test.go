package services

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/anonto42/inkwell/backend/internal/apperrors"
	"github.com/anonto42/inkwell/backend/internal/cache"
	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/anonto42/inkwell/backend/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func paragraph(text string) map[string]interface{} {
	return map[string]interface{}{
		"type": "doc",
		"content": []interface{}{
			map[string]interface{}{
				"type":    "paragraph",
				"content": []interface{}{map[string]interface{}{"type": "text", "text": text}},
			},
		},
	}
}

type blogFixture struct {
	svc    *blogService
	blogs  *memBlogRepo
	users  *memUserRepo
	notes  *memNotificationRepo
	author primitive.ObjectID
	reader primitive.ObjectID
}

func newBlogFixture(t *testing.T, trendingCache cache.TrendingCache, index search.BlogIndex) *blogFixture {
	t.Helper()
	f := &blogFixture{blogs: newMemBlogRepo(), users: newMemUserRepo(), notes: &memNotificationRepo{}}
	f.author = f.users.add("author")
	f.reader = f.users.add("reader")

	log := zap.NewNop()
	f.svc = NewBlogService(f.blogs, f.users, directTx{}, trendingCache, index, NewNotifier(f.notes, log), log).(*blogService)
	return f
}

func (f *blogFixture) publish(t *testing.T, title string) *models.Blog {
	t.Helper()
	blog, err := f.svc.Publish(context.Background(), f.author, models.PublishBlogRequest{
		Title:   title,
		Content: paragraph("body of " + title),
		Tags:    []string{"Go", " go ", "Mongo"},
	})
	require.NoError(t, err)
	return blog
}

func TestHasBlogContent(t *testing.T) {
	assert.False(t, HasBlogContent(nil))
	assert.False(t, HasBlogContent(map[string]interface{}{}))
	assert.False(t, HasBlogContent(map[string]interface{}{"content": []interface{}{}}))
	assert.False(t, HasBlogContent(map[string]interface{}{
		"content": []interface{}{map[string]interface{}{"type": "paragraph"}},
	}))
	assert.True(t, HasBlogContent(paragraph("hello")))
	assert.True(t, HasBlogContent(map[string]interface{}{
		"content": primitive.A{map[string]interface{}{"type": "image"}},
	}))
}

func TestNewBlogID(t *testing.T) {
	a, b := NewBlogID(), NewBlogID()

	assert.True(t, strings.HasPrefix(a, "blog_"))
	assert.NotEqual(t, a, b)
}

func TestPublish(t *testing.T) {
	f := newBlogFixture(t, nil, nil)

	blog := f.publish(t, "  Hello  ")

	assert.Equal(t, "Hello", blog.Title)
	assert.False(t, blog.Draft)
	assert.Equal(t, []string{"go", "mongo"}, blog.Tags)
	assert.Equal(t, models.Activity{}, blog.Activity)

	author := f.users.get(f.author)
	assert.Equal(t, []primitive.ObjectID{blog.ID}, author.Blogs)
	assert.Equal(t, 1, author.AccountInfo.TotalPosts)
}

func TestPublish_Validation(t *testing.T) {
	f := newBlogFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Publish(ctx, f.author, models.PublishBlogRequest{Title: " ", Content: paragraph("x")})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = f.svc.Publish(ctx, f.author, models.PublishBlogRequest{Title: "Empty", Content: map[string]interface{}{
		"content": []interface{}{map[string]interface{}{"type": "paragraph"}},
	}})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = f.svc.Publish(ctx, primitive.NilObjectID, models.PublishBlogRequest{Title: "x", Content: paragraph("x")})
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))
}

func TestPublish_RetriesTakenBlogID(t *testing.T) {
	f := newBlogFixture(t, nil, nil)
	ids := []string{"blog_taken", "blog_taken", "blog_free"}
	f.svc.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	require.NoError(t, f.blogs.CreateBlog(context.Background(), &models.Blog{BlogID: "blog_taken", Author: f.author}))

	blog, err := f.svc.Publish(context.Background(), f.author, models.PublishBlogRequest{Title: "t", Content: paragraph("x")})

	require.NoError(t, err)
	assert.Equal(t, "blog_free", blog.BlogID)
}

func TestPublish_InvalidatesTrendingCache(t *testing.T) {
	c := &memTrendingCache{tags: []string{"stale"}}
	f := newBlogFixture(t, c, nil)

	f.publish(t, "fresh")

	assert.Equal(t, 1, c.invalidated)
	assert.Nil(t, c.tags)
}

func TestSaveDraft(t *testing.T) {
	f := newBlogFixture(t, nil, nil)
	ctx := context.Background()

	draft, err := f.svc.SaveDraft(ctx, f.author, models.SaveDraftRequest{Title: "WIP"})
	require.NoError(t, err)
	assert.True(t, draft.Draft)
	assert.Empty(t, f.users.get(f.author).Blogs)

	updated, err := f.svc.SaveDraft(ctx, f.author, models.SaveDraftRequest{BlogID: draft.BlogID, Title: "WIP 2"})
	require.NoError(t, err)
	assert.Equal(t, "WIP 2", updated.Title)

	_, err = f.svc.SaveDraft(ctx, f.reader, models.SaveDraftRequest{BlogID: draft.BlogID, Title: "stolen"})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	_, err = f.svc.SaveDraft(ctx, f.author, models.SaveDraftRequest{})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestGet_CountsReads(t *testing.T) {
	f := newBlogFixture(t, nil, nil)
	blog := f.publish(t, "readable")

	view, err := f.svc.Get(context.Background(), blog.BlogID, primitive.NilObjectID)

	require.NoError(t, err)
	assert.Equal(t, 1, view.Activity.TotalReads)
	assert.Equal(t, "author", view.Author.Username)
	assert.Equal(t, 1, f.blogs.get(blog.ID).Activity.TotalReads)
	assert.Equal(t, 1, f.users.get(f.author).AccountInfo.TotalReads)
}

func TestGet_DraftVisibleToAuthorOnly(t *testing.T) {
	f := newBlogFixture(t, nil, nil)
	draft, err := f.svc.SaveDraft(context.Background(), f.author, models.SaveDraftRequest{Title: "secret"})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), draft.BlogID, f.reader)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	view, err := f.svc.Get(context.Background(), draft.BlogID, f.author)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Activity.TotalReads)
}

func TestGet_UnknownBlog(t *testing.T) {
	f := newBlogFixture(t, nil, nil)

	_, err := f.svc.Get(context.Background(), "blog_missing", primitive.NilObjectID)

	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestToggleLike_IsSymmetric(t *testing.T) {
	f := newBlogFixture(t, nil, nil)
	blog := f.publish(t, "likeable")
	ctx := context.Background()

	res, err := f.svc.ToggleLike(ctx, blog.BlogID, f.reader)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, 1, res.Blog.Activity.TotalLikes)
	assert.Equal(t, []primitive.ObjectID{blog.ID}, f.users.get(f.reader).LikedBlogs)

	view, err := f.svc.Get(ctx, blog.BlogID, f.reader)
	require.NoError(t, err)
	assert.True(t, view.IsLikedByCurrentUser)

	res, err = f.svc.ToggleLike(ctx, blog.BlogID, f.reader)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, 0, res.Blog.Activity.TotalLikes)
	assert.Empty(t, f.users.get(f.reader).LikedBlogs)

	notes := f.notes.all()
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationLike, notes[0].Type)
	assert.Equal(t, f.author.Hex(), notes[0].RecipientID)
}

func TestToggleLike_UnknownBlog(t *testing.T) {
	f := newBlogFixture(t, nil, nil)

	_, err := f.svc.ToggleLike(context.Background(), "blog_missing", f.reader)

	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestListPublished_Paginates(t *testing.T) {
	f := newBlogFixture(t, nil, nil)
	f.publish(t, "one")
	f.publish(t, "two")
	f.publish(t, "three")
	_, err := f.svc.SaveDraft(context.Background(), f.author, models.SaveDraftRequest{Title: "hidden"})
	require.NoError(t, err)

	views, total, err := f.svc.ListPublished(context.Background(), 1, 2, primitive.NilObjectID)

	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, views, 2)
	assert.Equal(t, "three", views[0].Title)
	assert.Nil(t, views[0].Content)

	views, _, err = f.svc.ListPublished(context.Background(), 2, 2, primitive.NilObjectID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "one", views[0].Title)
}

func TestTrending_UsesCache(t *testing.T) {
	c := &memTrendingCache{}
	f := newBlogFixture(t, c, nil)
	f.publish(t, "hot")

	first, err := f.svc.Trending(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, c.sets)

	f.blogs.blogs = map[primitive.ObjectID]*models.Blog{}
	second, err := f.svc.Trending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTrendingTags(t *testing.T) {
	f := newBlogFixture(t, nil, nil)

	tags, err := f.svc.TrendingTags(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"go", "mongodb"}, tags)
}

func TestSearch_FallsBackWhenIndexFails(t *testing.T) {
	f := newBlogFixture(t, nil, failingIndex{})
	f.publish(t, "Concurrency in Go")
	f.publish(t, "Gardening")

	views, err := f.svc.Search(context.Background(), "concurrency", primitive.NilObjectID)

	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Concurrency in Go", views[0].Title)
}

func TestSearch_RequiresQuery(t *testing.T) {
	f := newBlogFixture(t, nil, nil)

	_, err := f.svc.Search(context.Background(), "  ", primitive.NilObjectID)

	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestToggleLike_RefreshesTrendingCounts(t *testing.T) {
	c := &memTrendingCache{}
	f := newBlogFixture(t, c, nil)
	blog := f.publish(t, "rising")
	ctx := context.Background()

	before, err := f.svc.Trending(ctx)
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, 0, before[0].LikesCount)

	_, err = f.svc.ToggleLike(ctx, blog.BlogID, f.reader)
	require.NoError(t, err)

	after, err := f.svc.Trending(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, 1, after[0].LikesCount)
}

func TestToggleLike_MissingUserIsUnauthorized(t *testing.T) {
	f := newBlogFixture(t, nil, nil)
	blog := f.publish(t, "orphaned liker")

	_, err := f.svc.ToggleLike(context.Background(), blog.BlogID, primitive.NewObjectID())

	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))
	stored := f.blogs.get(blog.ID)
	assert.Equal(t, 0, stored.Activity.TotalLikes)
	assert.Empty(t, stored.LikedBy)
	assert.Empty(t, f.notes.all())
}

func TestListPublished_RejectsHugePage(t *testing.T) {
	f := newBlogFixture(t, nil, nil)
	f.publish(t, "only")

	_, _, err := f.svc.ListPublished(context.Background(), math.MaxInt, 50, primitive.NilObjectID)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	views, _, err := f.svc.ListPublished(context.Background(), math.MaxInt, 0, primitive.NilObjectID)
	require.NoError(t, err)
	assert.Len(t, views, 1)
}
