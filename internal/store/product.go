package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"shopdesk/internal/models"
)

// ProductStore manages products in the database.
type ProductStore struct {
	db    *sql.DB
	alloc string
}

// NewProductStore returns a new ProductStore. alloc selects the id
// allocation mode (AllocGapFill or AllocSerial).
func NewProductStore(db *sql.DB, alloc string) *ProductStore {
	return &ProductStore{db: db, alloc: alloc}
}

const productColumns = `id, name, description, price, stock, image_url, user_id, category_id, created_at, updated_at`

// scanProduct scans a row into a Product struct.
func scanProduct(scanner interface{ Scan(...any) error }) (*models.Product, error) {
	p := &models.Product{}
	err := scanner.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.ImageURL, &p.UserID, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ProductUpdate carries the fields of a partial update. Nil pointers mean
// "leave unchanged"; SetCategory distinguishes an explicit category change
// (including clearing with a nil CategoryID) from an absent field.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int
	ImageURL    *string
	SetCategory bool
	CategoryID  *int
}

// Create inserts a new product for userID. categoryID, when given, must
// reference a category owned by the same user. The id is allocated inside
// a serializable transaction (see nextFreeID).
func (s *ProductStore) Create(ctx context.Context, userID int, name, description string, price float64, stock int, categoryID *int, imageURL *string) (*models.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("product name is required")
	}
	if price < 0 {
		return nil, Invalid("price must not be negative")
	}
	if stock < 0 {
		return nil, Invalid("stock must not be negative")
	}

	if categoryID != nil {
		if _, err := resolveOwnedCategory(ctx, s.db, *categoryID, userID); err != nil {
			return nil, err
		}
	}

	tx, err := serializableTx(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var p *models.Product
	if s.alloc == AllocGapFill {
		id, maxID, err := nextFreeID(ctx, tx, "products")
		if err != nil {
			return nil, err
		}
		p, err = scanProduct(tx.QueryRowContext(ctx, `
			INSERT INTO products (id, name, description, price, stock, image_url, user_id, category_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+productColumns,
			id, name, description, price, stock, imageURL, userID, categoryID,
		))
		if err != nil {
			if isUniqueViolation(err) {
				return nil, Conflict("product id already taken, retry")
			}
			return nil, fmt.Errorf("create product: %w", err)
		}
		if err := reseedSequence(ctx, tx, "products", maxID); err != nil {
			return nil, err
		}
	} else {
		p, err = scanProduct(tx.QueryRowContext(ctx, `
			INSERT INTO products (name, description, price, stock, image_url, user_id, category_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+productColumns,
			name, description, price, stock, imageURL, userID, categoryID,
		))
		if err != nil {
			return nil, fmt.Errorf("create product: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create product: %w", err)
	}

	if err := s.attachRelations(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns all products owned by userID with category populated,
// newest first.
func (s *ProductStore) List(ctx context.Context, userID int) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.price, p.stock, p.image_url,
		       p.user_id, p.category_id, p.created_at, p.updated_at,
		       c.id, c.name, c.user_id, c.parent_id, c.created_at, c.updated_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var items []models.Product
	for rows.Next() {
		var p models.Product
		var (
			cID       sql.NullInt64
			cName     sql.NullString
			cUserID   sql.NullInt64
			cParentID sql.NullInt64
			cCreated  sql.NullTime
			cUpdated  sql.NullTime
		)
		err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL,
			&p.UserID, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt,
			&cID, &cName, &cUserID, &cParentID, &cCreated, &cUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if cID.Valid {
			cat := &models.Category{
				ID:        int(cID.Int64),
				Name:      cName.String,
				UserID:    int(cUserID.Int64),
				CreatedAt: cCreated.Time,
				UpdatedAt: cUpdated.Time,
			}
			if cParentID.Valid {
				pid := int(cParentID.Int64)
				cat.ParentID = &pid
			}
			p.Category = cat
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// Get resolves a product by id with category and abbreviated owner
// populated. Ownership is deliberately not checked here: detail lookup is
// available cross-user while every mutation is owner-gated. See DESIGN.md.
func (s *ProductStore) Get(ctx context.Context, id int) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, NotFound("product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find product by id: %w", err)
	}

	if err := s.attachRelations(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update applies a partial update to a product. Only the owner may
// update; a category change must reference a category owned by the same
// user. Omitted fields keep their stored values.
func (s *ProductStore) Update(ctx context.Context, id, userID int, upd ProductUpdate) (*models.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authorize(p.UserID, userID) {
		return nil, Forbidden("no permission to modify this product")
	}

	name := p.Name
	if upd.Name != nil {
		name = strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, Invalid("product name is required")
		}
	}
	description := p.Description
	if upd.Description != nil {
		description = *upd.Description
	}
	price := p.Price
	if upd.Price != nil {
		if *upd.Price < 0 {
			return nil, Invalid("price must not be negative")
		}
		price = *upd.Price
	}
	stock := p.Stock
	if upd.Stock != nil {
		if *upd.Stock < 0 {
			return nil, Invalid("stock must not be negative")
		}
		stock = *upd.Stock
	}
	imageURL := p.ImageURL
	if upd.ImageURL != nil {
		imageURL = upd.ImageURL
	}
	categoryID := p.CategoryID
	if upd.SetCategory {
		if upd.CategoryID != nil {
			if _, err := resolveOwnedCategory(ctx, s.db, *upd.CategoryID, userID); err != nil {
				return nil, err
			}
		}
		categoryID = upd.CategoryID
	}

	updated, err := scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products SET name = $1, description = $2, price = $3, stock = $4,
			image_url = $5, category_id = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING `+productColumns,
		name, description, price, stock, imageURL, categoryID, id,
	))
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if err := s.attachRelations(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a product. Only the owner may delete.
func (s *ProductStore) Delete(ctx context.Context, id, userID int) (*models.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authorize(p.UserID, userID) {
		return nil, Forbidden("no permission to delete this product")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete product: %w", err)
	}
	return p, nil
}

// attachRelations populates the category and abbreviated owner of a product.
func (s *ProductStore) attachRelations(ctx context.Context, p *models.Product) error {
	if p.CategoryID != nil {
		cat, err := categoryByID(ctx, s.db, *p.CategoryID)
		if err != nil {
			return err
		}
		p.Category = cat
	}

	var owner models.PublicUser
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email FROM users WHERE id = $1`, p.UserID,
	).Scan(&owner.ID, &owner.Username, &owner.Email)
	if err != nil {
		return fmt.Errorf("find product owner: %w", err)
	}
	p.Owner = &owner
	return nil
}
