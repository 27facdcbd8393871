package services

import (
	"context"

	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/anonto42/inkwell/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// loadAuthors fetches the public identity of every distinct id in one query.
// Users that no longer exist map to a compact record holding only the id.
func loadAuthors(ctx context.Context, users repositories.UserRepository, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserCompact, error) {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	unique := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	found, err := users.GetUsersByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}

	authors := make(map[primitive.ObjectID]models.UserCompact, len(unique))
	for _, id := range unique {
		authors[id] = models.UserCompact{ID: id}
	}
	for i := range found {
		authors[found[i].ID] = found[i].ToCompact()
	}
	return authors, nil
}

func blogViews(ctx context.Context, users repositories.UserRepository, blogs []models.Blog, viewerID primitive.ObjectID) ([]models.BlogView, error) {
	ids := make([]primitive.ObjectID, 0, len(blogs))
	for _, b := range blogs {
		ids = append(ids, b.Author)
	}
	authors, err := loadAuthors(ctx, users, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.BlogView, 0, len(blogs))
	for i := range blogs {
		view := models.NewBlogView(blogs[i], authors[blogs[i].Author])
		view.IsLikedByCurrentUser = !viewerID.IsZero() && blogs[i].IsLikedBy(viewerID)
		view.Content = nil
		views = append(views, view)
	}
	return views, nil
}
