package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage"
)

// CategoryService manages spending categories.
type CategoryService struct {
	categories storage.CategoryRepository
	callers    *Callers
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(categories storage.CategoryRepository, callers *Callers) *CategoryService {
	return &CategoryService{categories: categories, callers: callers}
}

// Put creates or updates c for the caller.
func (s *CategoryService) Put(ctx context.Context, who Identity, c *models.Category) error {
	slog.Info("PutCategory request received",
		"user_id", who.UserID,
		"category_id", c.ID,
		"version", c.Version,
	)
	if err := s.callers.Check(ctx, who); err != nil {
		return err
	}
	if err := validateCategory(c); err != nil {
		return err
	}
	ensureID(&c.ID)
	c.UserID = who.UserID

	if err := s.categories.Store(ctx, c); err != nil {
		logFailure("PutCategory", err, "category_id", c.ID)
		return err
	}
	slog.Info("Category stored", "category_id", c.ID, "version", c.Version)
	return nil
}

// Get returns one live category of the caller.
func (s *CategoryService) Get(ctx context.Context, who Identity, id string) (*models.Category, error) {
	slog.Info("GetCategory request received", "user_id", who.UserID, "category_id", id)
	if err := s.callers.Check(ctx, who); err != nil {
		return nil, err
	}
	c, err := s.categories.Get(ctx, who.UserID, id)
	if err != nil {
		logFailure("GetCategory", err, "category_id", id)
		return nil, err
	}
	return c, nil
}

// List returns the live categories of the caller ordered by name.
func (s *CategoryService) List(ctx context.Context, who Identity) ([]*models.Category, error) {
	slog.Info("ListCategories request received", "user_id", who.UserID)
	if err := s.callers.Check(ctx, who); err != nil {
		return nil, err
	}
	categories, err := s.categories.List(ctx, who.UserID)
	if err != nil {
		logFailure("ListCategories", err)
		return nil, err
	}
	slog.Info("ListCategories successful", "count", len(categories))
	return categories, nil
}

// Delete tombstones a category of the caller if version is still current.
func (s *CategoryService) Delete(ctx context.Context, who Identity, id string, version int64) error {
	slog.Info("DeleteCategory request received", "user_id", who.UserID, "category_id", id, "version", version)
	if err := s.callers.Check(ctx, who); err != nil {
		return err
	}
	if err := s.categories.SoftDelete(ctx, who.UserID, id, version); err != nil {
		logFailure("DeleteCategory", err, "category_id", id)
		return err
	}
	return nil
}

// Seed adds the default categories the caller does not have yet.
func (s *CategoryService) Seed(ctx context.Context, who Identity) (int64, error) {
	slog.Info("SeedCategories request received", "user_id", who.UserID)
	if err := s.callers.Check(ctx, who); err != nil {
		return 0, err
	}
	n, err := s.categories.SeedDefaults(ctx, who.UserID)
	if err != nil {
		logFailure("SeedCategories", err)
		return 0, err
	}
	slog.Info("Categories seeded", "user_id", who.UserID, "added", n)
	return n, nil
}
