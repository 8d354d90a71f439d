// Package order holds stock movement models for reward redemptions.
package order

import "time"

// Movement types. OUT movements consume stock, IN movements replenish it.
const (
	TypeOut = "OUT"
	TypeIn  = "IN"
)

// Movement statuses. Only confirmed movements affect current stock.
const (
	StatusProcessing = "processing"
	StatusConfirmed  = "confirmed"
	StatusCanceled   = "canceled"
)

// Movement records one redemption line: a quantity of a single variant and
// the total points it consumed.
type Movement struct {
	ID          string    `json:"mov_id"`
	UserID      string    `json:"user_id"`
	VariantID   int       `json:"variant_id"`
	ProductID   int       `json:"product_id"`
	SKU         string    `json:"sku,omitempty"`
	Quantity    int       `json:"qtd"`
	PointsTotal int       `json:"points_total"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// RedemptionItem is one requested line of a checkout.
type RedemptionItem struct {
	VariantID int `json:"variantId"`
	Quantity  int `json:"quantity"`
}
