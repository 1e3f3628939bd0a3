package models

// Receipt processing states.
const (
	ReceiptPending   = "pending"
	ReceiptProcessed = "processed"
	ReceiptFailed    = "failed"
)

// Receipt is a purchase record. It exclusively owns its Items.
type Receipt struct {
	// ID is the unique identifier for the receipt.
	ID string `json:"id"`

	// UserID is the owning user.
	UserID string `json:"user_id"`

	// Date is the purchase date in YYYY-MM-DD format.
	Date string `json:"date"`

	// TotalAmount is the amount paid.
	TotalAmount float64 `json:"total_amount"`

	// Currency is the ISO 4217 code (e.g., "EUR").
	Currency string `json:"currency"`

	// StoreName is the merchant name.
	StoreName string `json:"store_name"`

	// Category is the receipt-level category. It is what the change feed
	// reports when the receipt has no items.
	Category string `json:"category"`

	// State is one of ReceiptPending, ReceiptProcessed, ReceiptFailed.
	State string `json:"state"`

	// ImageName is the object key of the scanned image, if any.
	ImageName string `json:"image_name"`

	// Version is the optimistic concurrency token.
	Version int64 `json:"version"`

	// IsDeleted is the tombstone.
	IsDeleted bool `json:"is_deleted"`

	// UpdatedAt is the last modification time in unix milliseconds.
	UpdatedAt int64 `json:"updated_at"`

	// Items are the line items in presentation order.
	Items []ReceiptItem `json:"items"`
}

// ReceiptItem is a single line item on a receipt.
type ReceiptItem struct {
	// ID is the unique identifier for the item.
	ID string `json:"id"`

	// ReceiptID is the owning receipt. Set by storage.
	ReceiptID string `json:"receipt_id"`

	// Description is the line text (e.g., "Milk 1L").
	Description string `json:"description"`

	// Amount is the line price.
	Amount float64 `json:"amount"`

	// Category is the item-level category.
	Category string `json:"category"`

	// SortOrder is the 0-based position within the receipt. It is derived
	// from the item's index in the stored list, never from the client.
	SortOrder int `json:"sort_order"`
}

// Categories returns the distinct item categories in first-seen order,
// ignoring empty ones. A receipt without item categories reports its own
// category instead.
func (r *Receipt) Categories() []string {
	seen := make(map[string]bool, len(r.Items))
	var out []string
	for _, item := range r.Items {
		if item.Category == "" || seen[item.Category] {
			continue
		}
		seen[item.Category] = true
		out = append(out, item.Category)
	}
	if len(out) == 0 {
		return []string{r.Category}
	}
	return out
}

// ReceiptChange is the change feed body of a receipt.
type ReceiptChange struct {
	Receipt

	// Categories is the de-duplicated union of the item categories, or the
	// receipt category when no item has one.
	Categories []string `json:"categories"`
}
