package models

import (
	"slices"
	"testing"
)

func TestReceiptCategories(t *testing.T) {
	tests := []struct {
		name    string
		receipt Receipt
		want    []string
	}{
		{
			name: "duplicate item categories merge",
			receipt: Receipt{Category: "food", Items: []ReceiptItem{
				{Category: "supermarket"},
				{Category: "supermarket"},
			}},
			want: []string{"supermarket"},
		},
		{
			name: "first seen order is kept",
			receipt: Receipt{Items: []ReceiptItem{
				{Category: "drinks"},
				{Category: "bakery"},
				{Category: "drinks"},
			}},
			want: []string{"drinks", "bakery"},
		},
		{
			name:    "no items falls back to receipt category",
			receipt: Receipt{Category: "fuel"},
			want:    []string{"fuel"},
		},
		{
			name: "empty item categories are skipped",
			receipt: Receipt{Category: "misc", Items: []ReceiptItem{
				{Category: ""},
				{Category: "pharmacy"},
			}},
			want: []string{"pharmacy"},
		},
		{
			name:    "only empty item categories falls back",
			receipt: Receipt{Category: "misc", Items: []ReceiptItem{{Category: ""}}},
			want:    []string{"misc"},
		},
		{
			name: "several items without categories fall back",
			receipt: Receipt{Category: "household", Items: []ReceiptItem{
				{ID: "i1", Category: ""},
				{ID: "i2", Category: ""},
				{ID: "i3", Category: ""},
			}},
			want: []string{"household"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.receipt.Categories()
			if !slices.Equal(got, tt.want) {
				t.Errorf("Categories() = %v, want %v", got, tt.want)
			}
		})
	}
}
