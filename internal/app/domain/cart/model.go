// Package cart holds the shopping cart model used during redemption.
package cart

import "fmt"

// Item is one cart entry. Key disambiguates same-product-different-size
// entries; PointsCost is snapshotted at add time and never re-read from the
// catalog afterwards.
type Item struct {
	Key        string `json:"key"`
	VariantID  int    `json:"variantId"`
	Name       string `json:"name"`
	ImageURL   string `json:"imageUrl,omitempty"`
	PointsCost int    `json:"pointsCost"`
	Quantity   int    `json:"quantity"`
	Size       string `json:"selectedSize,omitempty"`
}

// Key builds the composite cart key for a variant and an optional size label.
func Key(variantID int, size string) string {
	return fmt.Sprintf("%d_%s", variantID, size)
}

// Total returns the point cost of a slice of items.
func Total(items []Item) int {
	sum := 0
	for _, it := range items {
		sum += it.PointsCost * it.Quantity
	}
	return sum
}

// Count returns the total quantity across items.
func Count(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
