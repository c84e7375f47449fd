package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"food-delivery/internal/models"

	"github.com/jmoiron/sqlx"
)

// ListDeliveryStatuses retrieves an order's history, newest first
func (s *Store) ListDeliveryStatuses(ctx context.Context, orderID int64) ([]models.DeliveryStatusEntry, error) {
	entries := []models.DeliveryStatusEntry{}
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM delivery_statuses WHERE order_id = $1 ORDER BY timestamp DESC, id DESC", orderID)
	return entries, err
}

// RecordRiderLocation appends a location sample and moves the rider's
// current position on the profile. A zero Timestamp is stamped with the
// current time.
func (s *Store) RecordRiderLocation(ctx context.Context, loc *models.RiderLocation) error {
	if loc.Timestamp.IsZero() {
		loc.Timestamp = time.Now().UTC()
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &loc.ID, `
			INSERT INTO rider_locations (rider_id, latitude, longitude, accuracy, speed, heading, timestamp, order_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			loc.RiderID, loc.Latitude, loc.Longitude, loc.Accuracy, loc.Speed, loc.Heading, loc.Timestamp, loc.OrderID)
		if err != nil {
			return fmt.Errorf("failed to record rider location: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE rider_profiles SET current_latitude = $1, current_longitude = $2 WHERE user_id = $3",
			loc.Latitude, loc.Longitude, loc.RiderID)
		if err != nil {
			return fmt.Errorf("failed to update rider position: %w", err)
		}
		return nil
	})
}

// ListRiderLocations returns stored samples newest first, limited to one
// rider when riderID is set
func (s *Store) ListRiderLocations(ctx context.Context, riderID *int64) ([]models.RiderLocation, error) {
	locs := []models.RiderLocation{}
	var err error
	if riderID == nil {
		err = s.db.SelectContext(ctx, &locs,
			"SELECT * FROM rider_locations ORDER BY timestamp DESC, id DESC")
	} else {
		err = s.db.SelectContext(ctx, &locs,
			"SELECT * FROM rider_locations WHERE rider_id = $1 ORDER BY timestamp DESC, id DESC", *riderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list rider locations: %w", err)
	}
	return locs, nil
}

// LatestRiderLocation returns the rider's newest sample, nil if none.
// With orderID set only samples tagged with that order are considered.
func (s *Store) LatestRiderLocation(ctx context.Context, riderID int64, orderID *int64) (*models.RiderLocation, error) {
	var (
		loc models.RiderLocation
		err error
	)
	if orderID == nil {
		err = s.db.GetContext(ctx, &loc,
			"SELECT * FROM rider_locations WHERE rider_id = $1 ORDER BY timestamp DESC, id DESC LIMIT 1", riderID)
	} else {
		err = s.db.GetContext(ctx, &loc,
			"SELECT * FROM rider_locations WHERE rider_id = $1 AND order_id = $2 ORDER BY timestamp DESC, id DESC LIMIT 1",
			riderID, *orderID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// LatestRiderLocations returns the newest sample per rider
func (s *Store) LatestRiderLocations(ctx context.Context, riderIDs []int64) (map[int64]models.RiderLocation, error) {
	result := make(map[int64]models.RiderLocation, len(riderIDs))
	if len(riderIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`
		SELECT DISTINCT ON (rider_id) * FROM rider_locations
		WHERE rider_id IN (?)
		ORDER BY rider_id, timestamp DESC, id DESC`, riderIDs)
	if err != nil {
		return nil, err
	}

	locs := []models.RiderLocation{}
	if err := s.db.SelectContext(ctx, &locs, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, l := range locs {
		result[l.RiderID] = l
	}
	return result, nil
}
