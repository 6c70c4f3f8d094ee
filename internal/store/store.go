// Package store provides read access to the fridge inventory in Postgres
// and an optional Redis-backed run status store.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/menufest/menufest/internal/schema"
)

type Store struct {
	DB *sql.DB
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store { return &Store{DB: db} }

// NewWithDSN opens a Postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// InventoryPage is one page of fridge lookup results.
type InventoryPage struct {
	Items []schema.InventoryItem `json:"items"`
	Total int                    `json:"total"`
	Page  int                    `json:"page"`
	Pages int                    `json:"pages"`
}

const searchFridgeQuery = `
SELECT ingredient_id, ingredient_name, unit, quantity, expiry_date
FROM ingredients
WHERE user_id = $1
  AND (quantity IS NULL OR quantity > 0)
  AND (expiry_date IS NULL OR expiry_date >= CURRENT_DATE)
  AND ($2 = '' OR ingredient_name ILIKE '%' || $2 || '%')
ORDER BY COALESCE(expiry_date, DATE '9999-12-31') ASC, created_at ASC
LIMIT $3 OFFSET $4`

const countFridgeQuery = `
SELECT COUNT(*)
FROM ingredients
WHERE user_id = $1
  AND (quantity IS NULL OR quantity > 0)
  AND (expiry_date IS NULL OR expiry_date >= CURRENT_DATE)
  AND ($2 = '' OR ingredient_name ILIKE '%' || $2 || '%')`

// SearchFridge returns the user's usable inventory: expired items and
// non-positive quantities are excluded, soonest expiry first (nulls last),
// then insertion order. nameContains is an optional substring filter.
func (s *Store) SearchFridge(ctx context.Context, userID, nameContains string, limit, offset int) (InventoryPage, error) {
	if limit <= 0 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.DB.QueryRowContext(ctx, countFridgeQuery, userID, nameContains).Scan(&total); err != nil {
		return InventoryPage{}, fmt.Errorf("count inventory: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, searchFridgeQuery, userID, nameContains, limit, offset)
	if err != nil {
		return InventoryPage{}, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	items := []schema.InventoryItem{}
	for rows.Next() {
		var (
			item     schema.InventoryItem
			unit     string
			quantity sql.NullFloat64
			expiry   sql.NullTime
		)
		if err := rows.Scan(&item.IngredientID, &item.Name, &unit, &quantity, &expiry); err != nil {
			return InventoryPage{}, fmt.Errorf("scan inventory row: %w", err)
		}
		item.Unit = schema.Unit(unit)
		if quantity.Valid {
			item.QuantityAvailable = quantity.Float64
		}
		if expiry.Valid {
			item.ExpiryDate = expiry.Time.Format("2006-01-02")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return InventoryPage{}, fmt.Errorf("iterate inventory rows: %w", err)
	}

	pages := (total + limit - 1) / limit
	return InventoryPage{Items: items, Total: total, Page: offset/limit + 1, Pages: pages}, nil
}
