package sqlstore

import (
	"github.com/mmynk/receiptbook/internal/models"
	"github.com/mmynk/receiptbook/internal/storage/mapping"
)

var budgetMapping = mapping.Register(mapping.MustNew(mapping.Config[models.Budget]{
	Table: "budgets",
	ID:    func(b *models.Budget) *string { return &b.ID },
	Properties: []mapping.Property[models.Budget]{
		mapping.String("user_id", func(b *models.Budget) *string { return &b.UserID }),
		mapping.String("month", func(b *models.Budget) *string { return &b.Month }),
		mapping.Float("amount", func(b *models.Budget) *float64 { return &b.Amount }),
	},
	Version:   func(b *models.Budget) *int64 { return &b.Version },
	UpdatedAt: func(b *models.Budget) *int64 { return &b.UpdatedAt },
	Owner:     "user_id",
	Indexes:   []string{"user_id"},
}))

var categoryMapping = mapping.Register(mapping.MustNew(mapping.Config[models.Category]{
	Table: "categories",
	ID:    func(c *models.Category) *string { return &c.ID },
	Properties: []mapping.Property[models.Category]{
		mapping.String("user_id", func(c *models.Category) *string { return &c.UserID }),
		mapping.String("name", func(c *models.Category) *string { return &c.Name }),
		mapping.String("color", func(c *models.Category) *string { return &c.Color }),
		mapping.String("icon", func(c *models.Category) *string { return &c.Icon }),
		mapping.Bool("is_deleted", func(c *models.Category) *bool { return &c.IsDeleted }),
	},
	Version:   func(c *models.Category) *int64 { return &c.Version },
	UpdatedAt: func(c *models.Category) *int64 { return &c.UpdatedAt },
	Tombstone: "is_deleted",
	Owner:     "user_id",
	Indexes:   []string{"user_id"},
}))

var receiptMapping = mapping.Register(mapping.MustNew(mapping.Config[models.Receipt]{
	Table: "receipts",
	ID:    func(r *models.Receipt) *string { return &r.ID },
	Properties: []mapping.Property[models.Receipt]{
		mapping.String("user_id", func(r *models.Receipt) *string { return &r.UserID }),
		mapping.String("date", func(r *models.Receipt) *string { return &r.Date }),
		mapping.Float("total_amount", func(r *models.Receipt) *float64 { return &r.TotalAmount }),
		mapping.String("currency", func(r *models.Receipt) *string { return &r.Currency }),
		mapping.String("store_name", func(r *models.Receipt) *string { return &r.StoreName }),
		mapping.String("category", func(r *models.Receipt) *string { return &r.Category }),
		mapping.String("state", func(r *models.Receipt) *string { return &r.State }),
		mapping.String("image_name", func(r *models.Receipt) *string { return &r.ImageName }),
		mapping.Bool("is_deleted", func(r *models.Receipt) *bool { return &r.IsDeleted }),
	},
	Version:   func(r *models.Receipt) *int64 { return &r.Version },
	UpdatedAt: func(r *models.Receipt) *int64 { return &r.UpdatedAt },
	Tombstone: "is_deleted",
	Owner:     "user_id",
	Indexes:   []string{"user_id"},
}))

// Items carry no version of their own; their parent's version guards them.
var receiptItemMapping = mapping.Register(mapping.MustNew(mapping.Config[models.ReceiptItem]{
	Table: "receipt_items",
	ID:    func(i *models.ReceiptItem) *string { return &i.ID },
	Properties: []mapping.Property[models.ReceiptItem]{
		mapping.String("receipt_id", func(i *models.ReceiptItem) *string { return &i.ReceiptID }),
		mapping.String("description", func(i *models.ReceiptItem) *string { return &i.Description }),
		mapping.Float("amount", func(i *models.ReceiptItem) *float64 { return &i.Amount }),
		mapping.String("category", func(i *models.ReceiptItem) *string { return &i.Category }),
		mapping.Int("sort_order", func(i *models.ReceiptItem) *int { return &i.SortOrder }),
	},
	Indexes: []string{"receipt_id"},
}))

var userMapping = mapping.Register(mapping.MustNew(mapping.Config[models.User]{
	Table: "users",
	ID:    func(u *models.User) *string { return &u.ID },
	Properties: []mapping.Property[models.User]{
		mapping.String("email", func(u *models.User) *string { return &u.Email }),
		mapping.String("display_name", func(u *models.User) *string { return &u.DisplayName }),
		mapping.String("password_hash", func(u *models.User) *string { return &u.PasswordHash }),
		mapping.Int("created_at", func(u *models.User) *int64 { return &u.CreatedAt }),
	},
	Indexes: []string{"email"},
}))

var deviceMapping = mapping.Register(mapping.MustNew(mapping.Config[models.UserDevice]{
	Table: "user_devices",
	ID:    func(d *models.UserDevice) *string { return &d.ID },
	Properties: []mapping.Property[models.UserDevice]{
		mapping.String("user_id", func(d *models.UserDevice) *string { return &d.UserID }),
		mapping.String("name", func(d *models.UserDevice) *string { return &d.Name }),
		mapping.String("platform", func(d *models.UserDevice) *string { return &d.Platform }),
		mapping.Int("created_at", func(d *models.UserDevice) *int64 { return &d.CreatedAt }),
	},
	Owner:   "user_id",
	Indexes: []string{"user_id"},
}))
