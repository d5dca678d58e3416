package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"shopdesk/internal/models"
)

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db    *sql.DB
	alloc string
}

// NewCategoryStore returns a new CategoryStore. alloc selects the id
// allocation mode (AllocGapFill or AllocSerial).
func NewCategoryStore(db *sql.DB, alloc string) *CategoryStore {
	return &CategoryStore{db: db, alloc: alloc}
}

const categoryColumns = `id, name, user_id, parent_id, created_at, updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	c := &models.Category{}
	err := scanner.Scan(
		&c.ID, &c.Name, &c.UserID, &c.ParentID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// categoryByID fetches a category row without relations. Returns nil if
// not found. Shared with ProductStore for category cross-reference checks.
func categoryByID(ctx context.Context, q querier, id int) (*models.Category, error) {
	c, err := scanCategory(q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// resolveOwnedCategory fetches a category and enforces that callerID owns
// it. Used for parent references and product category references.
func resolveOwnedCategory(ctx context.Context, q querier, id, callerID int) (*models.Category, error) {
	c, err := categoryByID(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, NotFound("category not found")
	}
	if !authorize(c.UserID, callerID) {
		return nil, Forbidden("no permission to use this category")
	}
	return c, nil
}

// Create inserts a new category for userID. The name must be non-empty
// and unique among the user's categories; parentID, when given, must
// reference a category owned by the same user. The id is allocated
// inside a serializable transaction (see nextFreeID).
func (s *CategoryStore) Create(ctx context.Context, userID int, name string, parentID *int) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("category name is required")
	}

	if taken, err := s.nameTaken(ctx, userID, name); err != nil {
		return nil, err
	} else if taken {
		return nil, Conflict("category name already exists")
	}

	if parentID != nil {
		if _, err := resolveOwnedCategory(ctx, s.db, *parentID, userID); err != nil {
			return nil, err
		}
	}

	tx, err := serializableTx(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var c *models.Category
	if s.alloc == AllocGapFill {
		id, maxID, err := nextFreeID(ctx, tx, "categories")
		if err != nil {
			return nil, err
		}
		c, err = scanCategory(tx.QueryRowContext(ctx, `
			INSERT INTO categories (id, name, user_id, parent_id)
			VALUES ($1, $2, $3, $4)
			RETURNING `+categoryColumns,
			id, name, userID, parentID,
		))
		if err != nil {
			if isUniqueViolation(err) {
				return nil, Conflict("category id or name already taken, retry")
			}
			return nil, fmt.Errorf("create category: %w", err)
		}
		if err := reseedSequence(ctx, tx, "categories", maxID); err != nil {
			return nil, err
		}
	} else {
		c, err = scanCategory(tx.QueryRowContext(ctx, `
			INSERT INTO categories (name, user_id, parent_id)
			VALUES ($1, $2, $3)
			RETURNING `+categoryColumns,
			name, userID, parentID,
		))
		if err != nil {
			if isUniqueViolation(err) {
				return nil, Conflict("category name already exists")
			}
			return nil, fmt.Errorf("create category: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create category: %w", err)
	}

	if err := s.attachRelations(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns all categories owned by userID, newest first, each with
// parent, children, and the count of associated products.
func (s *CategoryStore) List(ctx context.Context, userID int) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.user_id, c.parent_id, c.created_at, c.updated_at,
		       COUNT(p.id) AS product_count
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id
		WHERE c.user_id = $1
		GROUP BY c.id
		ORDER BY c.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		var c models.Category
		err := rows.Scan(
			&c.ID, &c.Name, &c.UserID, &c.ParentID, &c.CreatedAt, &c.UpdatedAt,
			&c.ProductCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Parents and children always belong to the same user, so the slice
	// itself holds everything needed to link one level of hierarchy.
	byID := make(map[int]models.Category, len(items))
	for _, c := range items {
		byID[c.ID] = c
	}
	for i := range items {
		items[i].Children = []models.Category{}
		if items[i].ParentID != nil {
			if p, ok := byID[*items[i].ParentID]; ok {
				p.Children = nil
				items[i].Parent = &p
			}
		}
		for _, c := range items {
			if c.ParentID != nil && *c.ParentID == items[i].ID {
				child := c
				child.Children = nil
				child.Parent = nil
				items[i].Children = append(items[i].Children, child)
			}
		}
	}
	return items, nil
}

// Get resolves a category by id with parent, children, and the full
// product list expanded. When callerID is non-nil, the category must be
// owned by the caller.
func (s *CategoryStore) Get(ctx context.Context, id int, callerID *int) (*models.Category, error) {
	c, err := categoryByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, NotFound("category not found")
	}
	if callerID != nil && !authorize(c.UserID, *callerID) {
		return nil, Forbidden("no permission to access this category")
	}

	if err := s.attachRelations(ctx, c); err != nil {
		return nil, err
	}
	if err := s.attachProducts(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update modifies a category's name and/or parent. Only the owner may
// update. setParent distinguishes "leave unchanged" (false) from an
// explicit new value or nil-to-clear (true).
func (s *CategoryStore) Update(ctx context.Context, id, userID int, name *string, setParent bool, parentID *int) (*models.Category, error) {
	c, err := s.Get(ctx, id, &userID)
	if err != nil {
		return nil, err
	}

	newName := c.Name
	if name != nil {
		newName = strings.TrimSpace(*name)
		if newName == "" {
			return nil, Invalid("category name is required")
		}
		if newName != c.Name {
			if taken, err := s.nameTaken(ctx, userID, newName); err != nil {
				return nil, err
			} else if taken {
				return nil, Conflict("category name already exists")
			}
		}
	}

	newParent := c.ParentID
	if setParent {
		if parentID != nil {
			if *parentID == id {
				return nil, Conflict("category cannot be its own parent")
			}
			if _, err := resolveOwnedCategory(ctx, s.db, *parentID, userID); err != nil {
				return nil, err
			}
		}
		newParent = parentID
	}

	updated, err := scanCategory(s.db.QueryRowContext(ctx, `
		UPDATE categories SET name = $1, parent_id = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+categoryColumns,
		newName, newParent, id,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, Conflict("category name already exists")
		}
		return nil, fmt.Errorf("update category: %w", err)
	}

	if err := s.attachRelations(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a category. Fails with Conflict when the category still
// has children. Products referencing the category have their reference
// cleared in the same transaction as the delete, so no intermediate
// state is ever visible.
func (s *CategoryStore) Delete(ctx context.Context, id, userID int) (*models.Category, error) {
	c, err := s.Get(ctx, id, &userID)
	if err != nil {
		return nil, err
	}

	var childCount int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id,
	).Scan(&childCount)
	if err != nil {
		return nil, fmt.Errorf("count child categories: %w", err)
	}
	if childCount > 0 {
		return nil, Conflict("cannot delete a category that has child categories")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET category_id = NULL, updated_at = NOW() WHERE category_id = $1`, id,
	); err != nil {
		return nil, fmt.Errorf("detach products: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1`, id,
	); err != nil {
		return nil, fmt.Errorf("delete category: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete category: %w", err)
	}
	return c, nil
}

// nameTaken reports whether the user already has a category with this name.
func (s *CategoryStore) nameTaken(ctx context.Context, userID int, name string) (bool, error) {
	var existingID int
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE user_id = $1 AND name = $2`,
		userID, name,
	).Scan(&existingID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return true, nil
}

// attachRelations populates Parent and Children one level deep.
func (s *CategoryStore) attachRelations(ctx context.Context, c *models.Category) error {
	c.Children = []models.Category{}

	if c.ParentID != nil {
		parent, err := categoryByID(ctx, s.db, *c.ParentID)
		if err != nil {
			return err
		}
		c.Parent = parent
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE parent_id = $1 ORDER BY created_at DESC`, c.ID)
	if err != nil {
		return fmt.Errorf("list child categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		child, err := scanCategory(rows)
		if err != nil {
			return fmt.Errorf("scan child category: %w", err)
		}
		c.Children = append(c.Children, *child)
	}
	return rows.Err()
}

// attachProducts populates the full product list of a category.
func (s *CategoryStore) attachProducts(ctx context.Context, c *models.Category) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE category_id = $1 ORDER BY created_at DESC`, c.ID)
	if err != nil {
		return fmt.Errorf("list category products: %w", err)
	}
	defer rows.Close()

	c.Products = []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return fmt.Errorf("scan category product: %w", err)
		}
		c.Products = append(c.Products, *p)
	}
	c.ProductCount = len(c.Products)
	return rows.Err()
}
