package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/inkwell/backend/internal/apperrors"
	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/anonto42/inkwell/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var clockBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type directTx struct{}

func (directTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memBlogRepo

type memBlogRepo struct {
	mu    sync.Mutex
	blogs map[primitive.ObjectID]*models.Blog
	tick  int
}

func newMemBlogRepo() *memBlogRepo {
	return &memBlogRepo{blogs: map[primitive.ObjectID]*models.Blog{}}
}

func (r *memBlogRepo) CreateBlog(_ context.Context, blog *models.Blog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.blogs {
		if b.BlogID == blog.BlogID {
			return apperrors.Conflict("A blog with this ID already exists. Please try again.")
		}
	}
	r.tick++
	blog.ID = primitive.NewObjectID()
	blog.PublishedAt = clockBase.Add(time.Duration(r.tick) * time.Minute)
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
	stored := *blog
	r.blogs[blog.ID] = &stored
	return nil
}

func (r *memBlogRepo) get(id primitive.ObjectID) *models.Blog {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blogs[id]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}

func (r *memBlogRepo) byBlogID(blogID string) *models.Blog {
	for _, b := range r.blogs {
		if b.BlogID == blogID {
			return b
		}
	}
	return nil
}

func (r *memBlogRepo) GetBlogByID(_ context.Context, id primitive.ObjectID) (*models.Blog, error) {
	if b := r.get(id); b != nil {
		return b, nil
	}
	return nil, apperrors.NotFound("Blog not found")
}

func (r *memBlogRepo) GetBlogByBlogID(_ context.Context, blogID string) (*models.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b := r.byBlogID(blogID); b != nil {
		cp := *b
		return &cp, nil
	}
	return nil, apperrors.NotFound("Blog not found")
}

func (r *memBlogRepo) GetBlogsByBlogIDs(_ context.Context, blogIDs []string) ([]models.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Blog{}
	for _, id := range blogIDs {
		if b := r.byBlogID(id); b != nil && !b.Draft {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBlogRepo) BlogIDExists(_ context.Context, blogID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byBlogID(blogID) != nil, nil
}

func (r *memBlogRepo) UpdateDraft(_ context.Context, blogID string, authorID primitive.ObjectID, blog *models.Blog) (*models.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.byBlogID(blogID)
	if b == nil || !b.Draft || b.Author != authorID {
		return nil, apperrors.NotFound("Draft not found")
	}
	b.Title, b.Banner, b.Des, b.Content, b.Tags = blog.Title, blog.Banner, blog.Des, blog.Content, blog.Tags
	cp := *b
	return &cp, nil
}

func (r *memBlogRepo) published() []models.Blog {
	out := []models.Blog{}
	for _, b := range r.blogs {
		if !b.Draft {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out
}

func (r *memBlogRepo) GetPublishedBlogs(_ context.Context, skip, limit int64) ([]models.Blog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.published()
	total := int64(len(all))
	if skip >= total {
		return []models.Blog{}, total, nil
	}
	all = all[skip:]
	if limit > 0 && int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *memBlogRepo) GetBlogsByAuthor(_ context.Context, authorID primitive.ObjectID) ([]models.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Blog{}
	for _, b := range r.blogs {
		if b.Author == authorID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBlogRepo) GetTrendingBlogs(_ context.Context, limit int64) ([]models.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.published()
	if int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memBlogRepo) GetTrendingTags(_ context.Context, limit int64) ([]string, error) {
	return []string{"go", "mongodb"}, nil
}

func (r *memBlogRepo) SearchPublished(_ context.Context, query string, limit int64) ([]models.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Blog{}
	for _, b := range r.published() {
		if strings.Contains(strings.ToLower(b.Title), strings.ToLower(query)) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBlogRepo) IncrementReads(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blogs[id]
	if !ok {
		return apperrors.NotFound("Blog not found")
	}
	b.Activity.TotalReads++
	return nil
}

func (r *memBlogRepo) ApplyCommentDelta(_ context.Context, id primitive.ObjectID, delta repositories.CommentDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blogs[id]
	if !ok {
		return apperrors.NotFound("Blog not found")
	}
	b.Activity.TotalComments += delta.TotalComments
	b.Activity.TotalParentComments += delta.TotalParentComments
	if delta.AddRoot != nil {
		b.Comments = append(b.Comments, *delta.AddRoot)
	}
	if delta.RemoveRoot != nil {
		b.Comments = without(b.Comments, *delta.RemoveRoot)
	}
	return nil
}

func (r *memBlogRepo) ToggleLike(_ context.Context, blogID string, userID primitive.ObjectID) (*models.LikeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.byBlogID(blogID)
	if b == nil {
		return nil, apperrors.NotFound("Blog not found")
	}
	liked := !b.IsLikedBy(userID)
	if liked {
		b.LikedBy = append(b.LikedBy, userID)
		b.Activity.TotalLikes++
	} else {
		b.LikedBy = without(b.LikedBy, userID)
		b.Activity.TotalLikes--
	}
	cp := *b
	return &models.LikeResult{Liked: liked, Blog: &cp}, nil
}

// memCommentRepo

type memCommentRepo struct {
	mu       sync.Mutex
	comments map[primitive.ObjectID]*models.Comment
	tick     int
}

func newMemCommentRepo() *memCommentRepo {
	return &memCommentRepo{comments: map[primitive.ObjectID]*models.Comment{}}
}

func (r *memCommentRepo) CreateComment(_ context.Context, c *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tick++
	c.ID = primitive.NewObjectID()
	c.CommentedAt = clockBase.Add(time.Duration(r.tick) * time.Second)
	c.UpdatedAt = c.CommentedAt
	if c.Children == nil {
		c.Children = []primitive.ObjectID{}
	}
	stored := *c
	r.comments[c.ID] = &stored
	return nil
}

func (r *memCommentRepo) get(id primitive.ObjectID) *models.Comment {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

func (r *memCommentRepo) GetCommentByID(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	if c := r.get(id); c != nil {
		return c, nil
	}
	return nil, apperrors.NotFound("Comment not found")
}

func (r *memCommentRepo) sorted(match func(*models.Comment) bool) []models.Comment {
	out := []models.Comment{}
	for _, c := range r.comments {
		if match(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommentedAt.Before(out[j].CommentedAt) })
	return out
}

func (r *memCommentRepo) GetCommentsByBlogID(_ context.Context, blogID primitive.ObjectID) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(c *models.Comment) bool { return c.BlogID == blogID }), nil
}

func (r *memCommentRepo) GetReplies(_ context.Context, parentIDs []primitive.ObjectID) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	parents := map[primitive.ObjectID]bool{}
	for _, id := range parentIDs {
		parents[id] = true
	}
	return r.sorted(func(c *models.Comment) bool { return c.Parent != nil && parents[*c.Parent] }), nil
}

func (r *memCommentRepo) UpdateCommentBody(_ context.Context, id primitive.ObjectID, body string) (*models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, apperrors.NotFound("Comment not found")
	}
	c.Comment = body
	cp := *c
	return &cp, nil
}

func (r *memCommentRepo) AddChild(_ context.Context, parentID, childID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.comments[parentID]
	if !ok {
		return apperrors.NotFound("Parent comment not found.")
	}
	p.Children = append(p.Children, childID)
	return nil
}

func (r *memCommentRepo) RemoveChild(_ context.Context, parentID, childID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.comments[parentID]; ok {
		p.Children = without(p.Children, childID)
	}
	return nil
}

func (r *memCommentRepo) DeleteComments(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.comments[id]; ok {
			delete(r.comments, id)
			n++
		}
	}
	return n, nil
}

func (r *memCommentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.comments)
}

// memUserRepo

type memUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[primitive.ObjectID]*models.User{}}
}

func (r *memUserRepo) add(username string) primitive.ObjectID {
	u := &models.User{PersonalInfo: models.PersonalInfo{Username: username, Email: username + "@example.com"}}
	_ = r.CreateUser(context.Background(), u)
	return u.ID
}

func (r *memUserRepo) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PersonalInfo.Email == user.PersonalInfo.Email {
			return apperrors.Conflict("Email already registered.")
		}
		if u.PersonalInfo.Username == user.PersonalInfo.Username {
			return apperrors.Conflict("Username already taken.")
		}
	}
	user.ID = primitive.NewObjectID()
	user.JoinedAt = clockBase
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *memUserRepo) get(id primitive.ObjectID) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (r *memUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("User not found")
}

func (r *memUserRepo) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *memUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.PersonalInfo.Email == strings.ToLower(email) })
}

func (r *memUserRepo) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return uid != "" && u.FirebaseUID == uid })
}

func (r *memUserRepo) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memUserRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	_, err := r.find(func(u *models.User) bool { return u.PersonalInfo.Username == username })
	return err == nil, nil
}

func (r *memUserRepo) UpdateUserFields(_ context.Context, id primitive.ObjectID, fields map[string]interface{}) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("User not found")
	}
	for key, value := range fields {
		switch key {
		case "firebase_uid":
			u.FirebaseUID = value.(string)
		case "google_auth":
			u.GoogleAuth = value.(bool)
		case "personal_info.fullname":
			u.PersonalInfo.Fullname = value.(string)
		case "personal_info.username":
			u.PersonalInfo.Username = value.(string)
		case "personal_info.bio":
			u.PersonalInfo.Bio = value.(string)
		case "social_links.github":
			u.SocialLinks.Github = value.(string)
		}
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) AddBlog(_ context.Context, userID, blogID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return apperrors.NotFound("User not found")
	}
	u.Blogs = append(u.Blogs, blogID)
	u.AccountInfo.TotalPosts++
	return nil
}

func (r *memUserRepo) SetLikedBlog(_ context.Context, userID, blogID primitive.ObjectID, liked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return apperrors.NotFound("User not found")
	}
	if liked {
		u.LikedBlogs = append(u.LikedBlogs, blogID)
	} else {
		u.LikedBlogs = without(u.LikedBlogs, blogID)
	}
	return nil
}

func (r *memUserRepo) IncrementTotalReads(_ context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.AccountInfo.TotalReads++
	}
	return nil
}

// memNotificationRepo

type memNotificationRepo struct {
	mu    sync.Mutex
	items []models.Notification
	err   error
}

func (r *memNotificationRepo) CreateNotification(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.items = append(r.items, *n)
	return nil
}

func (r *memNotificationRepo) GetByRecipientID(context.Context, string, int, int) ([]models.Notification, int64, error) {
	return r.items, int64(len(r.items)), nil
}

func (r *memNotificationRepo) GetUnreadCount(context.Context, string) (int64, error) {
	return int64(len(r.items)), nil
}

func (r *memNotificationRepo) MarkAsRead(context.Context, uint, string) error { return nil }

func (r *memNotificationRepo) MarkAllAsRead(context.Context, string) error { return nil }

func (r *memNotificationRepo) all() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.items...)
}

// memTrendingCache

type memTrendingCache struct {
	blogs       []models.BlogView
	tags        []string
	sets        int
	invalidated int
}

func (c *memTrendingCache) GetTrendingBlogs(context.Context) ([]models.BlogView, bool, error) {
	return c.blogs, c.blogs != nil, nil
}

func (c *memTrendingCache) SetTrendingBlogs(_ context.Context, blogs []models.BlogView) error {
	c.blogs = blogs
	c.sets++
	return nil
}

func (c *memTrendingCache) GetTrendingTags(context.Context) ([]string, bool, error) {
	return c.tags, c.tags != nil, nil
}

func (c *memTrendingCache) SetTrendingTags(_ context.Context, tags []string) error {
	c.tags = tags
	c.sets++
	return nil
}

func (c *memTrendingCache) Invalidate(context.Context) error {
	c.blogs, c.tags = nil, nil
	c.invalidated++
	return nil
}

// failingIndex always errors, to exercise the database fallback

type failingIndex struct{}

func (failingIndex) IndexBlog(context.Context, *models.Blog) error { return errors.New("index down") }

func (failingIndex) SearchBlogs(context.Context, string, int) ([]string, error) {
	return nil, errors.New("index down")
}

// stubVerifier accepts a single token

type stubVerifier struct {
	token string
	uid   string
	email string
	name  string
}

func (v stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if idToken != v.token {
		return nil, errors.New("invalid token")
	}
	return &auth.Token{UID: v.uid, Claims: map[string]interface{}{"email": v.email, "name": v.name}}, nil
}

func without(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
