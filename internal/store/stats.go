package store

import (
	"context"
	"fmt"
	"time"

	"food-delivery/internal/models"

	"github.com/shopspring/decimal"
)

const recentOrdersLimit = 10

// DashboardStats aggregates orders created since the given time
func (s *Store) DashboardStats(ctx context.Context, since time.Time) (*models.DashboardStats, error) {
	var counts struct {
		Total   int             `db:"total"`
		Pending int             `db:"pending"`
		Revenue decimal.Decimal `db:"revenue"`
	}
	err := s.db.GetContext(ctx, &counts, `
		SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = $2) AS pending,
			COALESCE(SUM(grand_total) FILTER (WHERE payment_status = $3), 0) AS revenue
		FROM orders
		WHERE created_at >= $1 AND is_deleted = FALSE`,
		since, models.OrderStatusPending, models.PaymentStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var users struct {
		Customers int `db:"customers"`
		Riders    int `db:"riders"`
	}
	err = s.db.GetContext(ctx, &users, `
		SELECT COUNT(*) FILTER (WHERE role = $1) AS customers,
			COUNT(*) FILTER (WHERE role = $2) AS riders
		FROM users`,
		models.RoleCustomer, models.RoleRider)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	recent := []models.Order{}
	err = s.db.SelectContext(ctx, &recent, `
		SELECT * FROM orders
		WHERE created_at >= $1 AND is_deleted = FALSE
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, since, recentOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent orders: %w", err)
	}

	return &models.DashboardStats{
		TotalOrders:    counts.Total,
		PendingOrders:  counts.Pending,
		TotalRevenue:   counts.Revenue,
		TotalCustomers: users.Customers,
		TotalRiders:    users.Riders,
		RecentOrders:   recent,
	}, nil
}
