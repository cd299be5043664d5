package orders

import "time"

type Product struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int       `json:"price_cents"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Order struct {
	ID         string     `json:"id"`
	BuyerID    string     `json:"buyer_id"`
	Items      []LineItem `json:"items"`
	TotalCents int        `json:"total_cents"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// LineItem captures the unit price at the moment the stock was reserved;
// later product price edits never change it.
type LineItem struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}
