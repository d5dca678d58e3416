package models

import "time"

// Product represents an item in a user's catalog. The category reference
// is optional and must point at a category owned by the same user.
type Product struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	ImageURL    *string   `json:"imageUrl"`
	UserID      int       `json:"userId"`
	CategoryID  *int      `json:"categoryId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Virtual fields populated by store methods.
	Category *Category   `json:"category"`
	Owner    *PublicUser `json:"user,omitempty"`
}
