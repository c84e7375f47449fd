package store

import (
	"context"
	"fmt"
	"strings"

	"food-delivery/internal/models"
)

// ItemFilter narrows ListFoodItems
type ItemFilter struct {
	CategoryID    *int64
	Search        string
	OnlyAvailable bool
}

const foodItemColumns = `f.id, f.name, f.description, f.price, f.category_id, c.name AS category_name,
	f.restaurant_id, f.is_available, f.stock, f.created_at, f.updated_at`

// ListCategories retrieves all categories by name
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY name")
	return categories, err
}

// GetCategory retrieves a category by ID
func (s *Store) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	if err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE id = $1", id); err != nil {
		return nil, notFound(err, "category", id)
	}
	return &category, nil
}

// CreateCategory inserts a category
func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	err := s.db.GetContext(ctx, category,
		"INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id, created_at",
		category.Name, category.Description)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", category.Name, models.ErrConflict)
	}
	return err
}

// UpdateCategory updates name and description
func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE categories SET name = $1, description = $2 WHERE id = $3",
		category.Name, category.Description, category.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", category.Name, models.ErrConflict)
	}
	if err != nil {
		return err
	}
	return expectAffected(res, "category", category.ID)
}

// DeleteCategory removes a category and, by cascade, its items
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(res, "category", id)
}

// ListFoodItems retrieves items matching the filter, newest first
func (s *Store) ListFoodItems(ctx context.Context, filter ItemFilter) ([]models.FoodItem, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.OnlyAvailable {
		where = append(where, "f.is_available = TRUE")
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		where = append(where, fmt.Sprintf("f.category_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(f.name ILIKE $%d OR f.description ILIKE $%d)", len(args), len(args)))
	}

	query := "SELECT " + foodItemColumns + " FROM food_items f JOIN categories c ON c.id = f.category_id"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY f.created_at DESC, f.id DESC"

	items := []models.FoodItem{}
	err := s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// GetFoodItem retrieves an item by ID
func (s *Store) GetFoodItem(ctx context.Context, id int64) (*models.FoodItem, error) {
	var item models.FoodItem
	err := s.db.GetContext(ctx, &item,
		"SELECT "+foodItemColumns+" FROM food_items f JOIN categories c ON c.id = f.category_id WHERE f.id = $1", id)
	if err != nil {
		return nil, notFound(err, "food item", id)
	}
	return &item, nil
}

// CreateFoodItem inserts an item
func (s *Store) CreateFoodItem(ctx context.Context, item *models.FoodItem) error {
	query := `
		INSERT INTO food_items (name, description, price, category_id, restaurant_id, is_available, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, item, query,
		item.Name, item.Description, item.Price, item.CategoryID, item.RestaurantID, item.IsAvailable, item.Stock)
}

// UpdateFoodItem updates every editable field of an item
func (s *Store) UpdateFoodItem(ctx context.Context, item *models.FoodItem) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE food_items
		SET name = $1, description = $2, price = $3, category_id = $4, is_available = $5, stock = $6, updated_at = NOW()
		WHERE id = $7`,
		item.Name, item.Description, item.Price, item.CategoryID, item.IsAvailable, item.Stock, item.ID)
	if err != nil {
		return err
	}
	return expectAffected(res, "food item", item.ID)
}

// DeleteFoodItem removes an item
func (s *Store) DeleteFoodItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM food_items WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(res, "food item", id)
}

// GetItemRating aggregates approved reviews of an item
func (s *Store) GetItemRating(ctx context.Context, itemID int64) (*models.ItemRating, error) {
	var rating models.ItemRating
	err := s.db.GetContext(ctx, &rating, `
		SELECT COALESCE(ROUND(AVG(rating)::numeric, 1), 0)::float8 AS average, COUNT(*) AS count
		FROM reviews WHERE food_item_id = $1 AND approved = TRUE`, itemID)
	if err != nil {
		return nil, err
	}
	return &rating, nil
}
