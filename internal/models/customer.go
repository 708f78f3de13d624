package models

import "time"

// Customer is a shopper of a single store, deduplicated by phone within it.
type Customer struct {
	ID              string    `db:"id" json:"id"`
	StoreID         string    `db:"store_id" json:"storeId"`
	Name            string    `db:"name" json:"name"`
	Phone           string    `db:"phone" json:"phone"`
	PrefersWhatsApp bool      `db:"prefers_whatsapp" json:"prefersWhatsApp"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// Address is a delivery address of a customer. PostalCode is NULL, never "",
// when absent so that the dedup key compares correctly.
type Address struct {
	ID         string    `db:"id" json:"id"`
	CustomerID string    `db:"customer_id" json:"customerId"`
	Street     string    `db:"street" json:"street"`
	City       string    `db:"city" json:"city"`
	PostalCode *string   `db:"postal_code" json:"postalCode,omitempty"`
	Latitude   *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude  *float64  `db:"longitude" json:"longitude,omitempty"`
	IsDefault  bool      `db:"is_default" json:"isDefault"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}
