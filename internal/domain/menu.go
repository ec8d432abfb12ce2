package domain

import "time"

// MenuItem is a catalog entry. Prices are in cents. Items are referenced,
// never owned, by carts and orders: order lines snapshot the price at
// creation time, so editing an item never rewrites history.
type MenuItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
