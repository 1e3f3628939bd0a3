package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage"
	"github.com/mmynk/receiptbook/internal/storage/sqldb"
)

// DefaultCategories are seeded for new users.
var DefaultCategories = []models.Category{
	{Name: "Supermarket", Color: "#4caf50", Icon: "shopping_cart"},
	{Name: "Restaurants", Color: "#ff9800", Icon: "restaurant"},
	{Name: "Transport", Color: "#2196f3", Icon: "directions_bus"},
	{Name: "Fuel", Color: "#795548", Icon: "local_gas_station"},
	{Name: "Pharmacy", Color: "#e91e63", Icon: "local_pharmacy"},
	{Name: "Household", Color: "#9c27b0", Icon: "home"},
	{Name: "Entertainment", Color: "#ffc107", Icon: "movie"},
	{Name: "Other", Color: "#9e9e9e", Icon: "category"},
}

// Categories is the category repository.
type Categories struct {
	gw *sqldb.Gateway[models.Category]
}

// Store creates or updates c. Tombstones are only set through SoftDelete,
// and a deleted id cannot be stored again.
func (r *Categories) Store(ctx context.Context, c *models.Category) error {
	c.IsDeleted = false
	existing, err := r.gw.Get(ctx, c.ID)
	if storage.IsNotFound(err) {
		return r.gw.Create(ctx, c)
	}
	if err != nil {
		return err
	}
	if existing.UserID != c.UserID || existing.IsDeleted {
		return &storage.NotFoundError{Table: categoryMapping.Table(), ID: c.ID}
	}
	return r.gw.Update(ctx, c)
}

// Get returns the live category of userID with the given id.
func (r *Categories) Get(ctx context.Context, userID, id string) (*models.Category, error) {
	c, err := r.gw.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID || c.IsDeleted {
		return nil, &storage.NotFoundError{Table: categoryMapping.Table(), ID: id}
	}
	return c, nil
}

// List returns the live categories of userID ordered by name.
func (r *Categories) List(ctx context.Context, userID string) ([]*models.Category, error) {
	return r.gw.Select("user_id = ? AND is_deleted = ? ORDER BY name, id", userID, false).All(ctx)
}

// SoftDelete tombstones the category if version is still current. The row
// stays so the deletion reaches every device through the change feed.
func (r *Categories) SoftDelete(ctx context.Context, userID, id string, version int64) error {
	c, err := r.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	c.Version = version
	c.IsDeleted = true
	return r.gw.Update(ctx, c)
}

// SeedDefaults inserts every default category whose name userID has never
// used, in one statement. Deleted categories count as used.
func (r *Categories) SeedDefaults(ctx context.Context, userID string) (int64, error) {
	existing, err := r.gw.Select("user_id = ?", userID).All(ctx)
	if err != nil {
		return 0, err
	}
	taken := make(map[string]bool, len(existing))
	for _, c := range existing {
		taken[strings.ToLower(c.Name)] = true
	}

	now := r.gw.Now()
	var rows []string
	var args []any
	for _, d := range DefaultCategories {
		if taken[strings.ToLower(d.Name)] {
			continue
		}
		rows = append(rows, "(?, ?, ?, ?, ?, ?, 0, ?)")
		args = append(args, uuid.NewString(), userID, d.Name, d.Color, d.Icon, false, now)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		categoryMapping.Table(),
		strings.Join(categoryMapping.Columns(), ", "),
		strings.Join(rows, ", "),
	)
	return r.gw.Execute(ctx, query, args...)
}
