package store

import (
	"context"
	"fmt"

	"food-delivery/internal/models"
)

// ListCart retrieves a user's cart lines priced at the current item price
func (s *Store) ListCart(ctx context.Context, userID int64) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	err := s.db.SelectContext(ctx, &lines, `
		SELECT c.id, c.user_id, c.food_item_id, f.name AS item_name, f.price AS item_price, c.quantity, c.created_at
		FROM cart_items c
		JOIN food_items f ON f.id = c.food_item_id
		WHERE c.user_id = $1
		ORDER BY c.id`, userID)
	return lines, err
}

// AddToCart adds quantity to the (user, item) line, creating it if needed
func (s *Store) AddToCart(ctx context.Context, userID, itemID int64, quantity int) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO cart_items (user_id, food_item_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, food_item_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id`,
		userID, itemID, quantity)
	if err != nil {
		return 0, fmt.Errorf("failed to add to cart: %w", err)
	}
	return id, nil
}

// SetCartQuantity replaces the quantity of an existing line
func (s *Store) SetCartQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1 WHERE user_id = $2 AND food_item_id = $3",
		quantity, userID, itemID)
	if err != nil {
		return err
	}
	return expectAffected(res, "cart item", itemID)
}

// RemoveFromCart deletes one line
func (s *Store) RemoveFromCart(ctx context.Context, userID, itemID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = $1 AND food_item_id = $2", userID, itemID)
	if err != nil {
		return err
	}
	return expectAffected(res, "cart item", itemID)
}

// ClearCart deletes every line of a user's cart
func (s *Store) ClearCart(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	return err
}
