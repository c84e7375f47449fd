package store

import (
	"context"
	"fmt"

	"food-delivery/internal/models"

	"github.com/jmoiron/sqlx"
)

// OrderDraft is what a checkout writes: the order with its line items and
// the first entry of its status history.
type OrderDraft struct {
	Order         *models.Order
	InitialStatus *models.DeliveryStatusEntry
}

// BuildOrderFunc turns the locked cart lines into a draft. Returning an
// error aborts the checkout with nothing written.
type BuildOrderFunc func(lines []models.CartLine) (*OrderDraft, error)

// DecideTransitionFunc inspects the locked order and returns the history
// entry to append. Returning an error aborts the transition.
type DecideTransitionFunc func(order *models.Order) (*models.DeliveryStatusEntry, error)

const cartLinesForUpdate = `
	SELECT c.id, c.user_id, c.food_item_id, f.name AS item_name, f.price AS item_price, c.quantity, c.created_at
	FROM cart_items c
	JOIN food_items f ON f.id = c.food_item_id
	WHERE c.user_id = $1
	ORDER BY c.id
	FOR UPDATE OF c`

// Checkout converts the user's cart into an order in a single transaction:
// order, items, stock decrement, cart clear and initial history entry are
// all written or none are.
func (s *Store) Checkout(ctx context.Context, userID int64, build BuildOrderFunc) (*OrderDraft, error) {
	var draft *OrderDraft

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		lines := []models.CartLine{}
		if err := tx.SelectContext(ctx, &lines, cartLinesForUpdate, userID); err != nil {
			return fmt.Errorf("failed to load cart: %w", err)
		}

		d, err := build(lines)
		if err != nil {
			return err
		}
		order := d.Order

		err = tx.GetContext(ctx, order, `
			INSERT INTO orders (order_number, user_id, subtotal, tax, delivery_fee, grand_total,
				delivery_address, phone, notes, status, payment_status, payment_method)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, created_at, updated_at`,
			order.OrderNumber, order.UserID, order.Subtotal, order.Tax, order.DeliveryFee, order.GrandTotal,
			order.DeliveryAddress, order.Phone, order.Notes, order.Status, order.PaymentStatus, order.PaymentMethod)
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			err := tx.GetContext(ctx, &item.ID, `
				INSERT INTO order_items (order_id, food_item_id, item_name, quantity, price)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id`,
				item.OrderID, item.FoodItemID, item.ItemName, item.Quantity, item.Price)
			if err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}

			res, err := tx.ExecContext(ctx,
				"UPDATE food_items SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1",
				item.Quantity, item.FoodItemID)
			if err != nil {
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("food item %d: %w", item.FoodItemID, models.ErrInsufficientStock)
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		entry := d.InitialStatus
		entry.OrderID = order.ID
		if err := insertStatusEntry(ctx, tx, entry); err != nil {
			return err
		}

		draft = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// TransitionOrder locks the order, lets decide validate the change, then
// updates the status and appends the history entry atomically.
func (s *Store) TransitionOrder(ctx context.Context, orderID int64, decide DecideTransitionFunc) (*models.Order, *models.DeliveryStatusEntry, error) {
	var (
		order models.Order
		entry *models.DeliveryStatusEntry
	)

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &order,
			"SELECT * FROM orders WHERE id = $1 AND is_deleted = FALSE FOR UPDATE", orderID)
		if err != nil {
			return notFound(err, "order", orderID)
		}

		entry, err = decide(&order)
		if err != nil {
			return err
		}

		err = tx.GetContext(ctx, &order.UpdatedAt,
			"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at",
			entry.Status, orderID)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		entry.OrderID = orderID
		return insertStatusEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, nil, err
	}

	order.Status = entry.Status
	return &order, entry, nil
}

func insertStatusEntry(ctx context.Context, tx *sqlx.Tx, entry *models.DeliveryStatusEntry) error {
	err := tx.GetContext(ctx, entry, `
		INSERT INTO delivery_statuses (order_id, status, description, latitude, longitude, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, timestamp`,
		entry.OrderID, entry.Status, entry.Description, entry.Latitude, entry.Longitude, entry.UpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to record delivery status: %w", err)
	}
	return nil
}

// GetOrder retrieves a live order with its items
func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 AND is_deleted = FALSE", id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}

	items := []models.OrderItem{}
	if err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", id); err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	order.Items = items
	return &order, nil
}

// ListOrders retrieves live orders newest first. A nil userID lists every
// order.
func (s *Store) ListOrders(ctx context.Context, userID *int64) ([]models.Order, error) {
	orders := []models.Order{}
	var err error
	if userID == nil {
		err = s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE is_deleted = FALSE ORDER BY created_at DESC, id DESC")
	} else {
		err = s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE user_id = $1 AND is_deleted = FALSE ORDER BY created_at DESC, id DESC", *userID)
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListRiderOrders retrieves live orders assigned to a rider, newest first
func (s *Store) ListRiderOrders(ctx context.Context, riderID int64) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE rider_id = $1 AND is_deleted = FALSE ORDER BY created_at DESC, id DESC", riderID)
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListActiveOrders retrieves live orders that are neither delivered nor cancelled
func (s *Store) ListActiveOrders(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE is_deleted = FALSE AND status NOT IN ($1, $2)
		ORDER BY created_at DESC, id DESC`,
		models.OrderStatusDelivered, models.OrderStatusCancelled)
	return orders, err
}

func (s *Store) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	query, args, err := sqlx.In("SELECT * FROM order_items WHERE order_id IN (?) ORDER BY id", ids)
	if err != nil {
		return err
	}

	items := []models.OrderItem{}
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	byOrder := make(map[int64][]models.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return nil
}

// AssignRider sets the order's rider. The user must exist with the rider role.
func (s *Store) AssignRider(ctx context.Context, orderID, riderID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET rider_id = $1, updated_at = NOW()
		WHERE id = $2 AND is_deleted = FALSE
		AND EXISTS (SELECT 1 FROM users WHERE id = $1 AND role = $3)`,
		riderID, orderID, models.RoleRider)
	if err != nil {
		return err
	}
	return expectAffected(res, "order or rider", fmt.Sprintf("%d/%d", orderID, riderID))
}

// SetPaymentIntent records the provider's payment intent for an order
func (s *Store) SetPaymentIntent(ctx context.Context, orderID int64, intentID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_intent_id = $1, updated_at = NOW() WHERE id = $2",
		intentID, orderID)
	if err != nil {
		return err
	}
	return expectAffected(res, "order", orderID)
}

// SetPaymentStatus updates the payment status. It reports false when the
// status was already set, so repeated provider events are no-ops.
func (s *Store) SetPaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2 AND payment_status <> $1",
		status, orderID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SoftDeleteOrder hides an order from every listing
func (s *Store) SoftDeleteOrder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET is_deleted = TRUE, deleted_at = NOW() WHERE id = $1 AND is_deleted = FALSE", id)
	if err != nil {
		return err
	}
	return expectAffected(res, "order", id)
}

// RestoreOrder undoes a soft delete
func (s *Store) RestoreOrder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET is_deleted = FALSE, deleted_at = NULL WHERE id = $1 AND is_deleted = TRUE", id)
	if err != nil {
		return err
	}
	return expectAffected(res, "deleted order", id)
}
