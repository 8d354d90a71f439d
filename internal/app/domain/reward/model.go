// Package reward holds the canonical catalog model shared by the catalog,
// cart and order services.
package reward

import "time"

// Item is a stored per-variant catalog row, as managed by the admin surface.
// Rows sharing a ProductID are variants of the same product.
type Item struct {
	ID           int       `json:"id"`
	ProductID    int       `json:"product_id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Details      string    `json:"details"`
	Category     string    `json:"category"`
	Size         string    `json:"size,omitempty"`
	PointsCost   int       `json:"pointsCost"`
	StockInitial int       `json:"stockInitial"`
	StockCurrent int       `json:"stockCurrent"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	Active       bool      `json:"-"`
	Tags         string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// Variant is a purchasable configuration of a Reward. Cost and stock take
// precedence over the parent Reward's when present.
type Variant struct {
	ID         int    `json:"id"`
	Size       string `json:"size,omitempty"`
	PointsCost int    `json:"pointsCost"`
	ImageURL   string `json:"imageUrl,omitempty"`
	Stock      int    `json:"stock"`
	SKU        string `json:"sku,omitempty"`
}

// Reward is a redeemable catalog product. Variants is never empty: rewards
// without explicit variants carry one synthesized from the reward itself.
type Reward struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Details     string    `json:"details,omitempty"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PointsCost  int       `json:"pointsCost"`
	Stock       int       `json:"stock"`
	Sizes       []string  `json:"sizes,omitempty"`
	Variants    []Variant `json:"variants"`
}

// FirstVariant returns the first variant, or nil when none exist.
func (r Reward) FirstVariant() *Variant {
	if len(r.Variants) == 0 {
		return nil
	}
	return &r.Variants[0]
}

// VariantFor resolves a variant by size label. An empty size resolves to the
// first variant; an unmatched size also falls back to the first variant.
func (r Reward) VariantFor(size string) *Variant {
	if len(r.Variants) == 0 {
		return nil
	}
	if size == "" {
		return &r.Variants[0]
	}
	for i := range r.Variants {
		if r.Variants[i].Size == size {
			return &r.Variants[i]
		}
	}
	return &r.Variants[0]
}
