package service

import (
	"context"
	"fmt"
	"time"

	"food-delivery/internal/models"
	"food-delivery/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultStatsDays is the dashboard window when none is given
const DefaultStatsDays = 30

// DashboardService serves admin analytics
type DashboardService struct {
	store  DashboardStore
	cache  LocationCache
	logger *zap.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(store DashboardStore, cache LocationCache) *DashboardService {
	return &DashboardService{store: store, cache: cache, logger: util.GetLogger()}
}

// Stats aggregates orders and users over the last days days
func (s *DashboardService) Stats(ctx context.Context, caller models.Identity, days int) (*models.DashboardStats, error) {
	ctx, span := util.StartSpan(ctx, "DashboardService.Stats", attribute.Int("days", days))
	defer span.End()

	if err := requireAdmin(caller, "dashboard"); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultStatsDays
	}

	since := time.Now().AddDate(0, 0, -days)
	stats, err := s.store.DashboardStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}
	return stats, nil
}

// ActiveDeliveries lists in-flight orders with each rider's latest position,
// read from the cache and falling back to the store
func (s *DashboardService) ActiveDeliveries(ctx context.Context, caller models.Identity) ([]models.ActiveDelivery, error) {
	ctx, span := util.StartSpan(ctx, "DashboardService.ActiveDeliveries")
	defer span.End()

	if err := requireAdmin(caller, "active deliveries"); err != nil {
		return nil, err
	}

	orders, err := s.store.ListActiveOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active orders: %w", err)
	}

	locations := make(map[int64]*models.RiderLocation)
	var missing []int64
	for _, o := range orders {
		if o.RiderID == nil {
			continue
		}
		riderID := *o.RiderID
		if _, seen := locations[riderID]; seen {
			continue
		}
		loc, err := s.cache.GetRiderLocation(ctx, riderID)
		if err != nil {
			s.logger.Warn("Failed to read cached rider location", zap.Int64("rider_id", riderID), zap.Error(err))
		}
		locations[riderID] = loc
		if loc == nil {
			missing = append(missing, riderID)
		}
	}

	if len(missing) > 0 {
		stored, err := s.store.LatestRiderLocations(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to load rider locations: %w", err)
		}
		for id, loc := range stored {
			loc := loc
			locations[id] = &loc
		}
	}

	deliveries := make([]models.ActiveDelivery, 0, len(orders))
	for _, o := range orders {
		d := models.ActiveDelivery{Order: o}
		if o.RiderID != nil {
			d.RiderLocation = locations[*o.RiderID]
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}
