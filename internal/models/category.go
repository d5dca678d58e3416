package models

import "time"

// Category represents a hierarchical product category owned by a user.
// Names are unique per owner, not globally.
type Category struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	UserID    int       `json:"userId"`
	ParentID  *int      `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Virtual fields populated by store methods. Parent and Children are
	// expanded one level deep; Products only on detail lookups.
	Parent       *Category  `json:"parent,omitempty"`
	Children     []Category `json:"children"`
	ProductCount int        `json:"productCount"`
	Products     []Product  `json:"products,omitempty"`
}
