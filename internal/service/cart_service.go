package service

import (
	"context"
	"errors"

	"food-delivery/config"
	"food-delivery/internal/models"
	"food-delivery/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CartService manages the caller's cart
type CartService struct {
	store   CartStore
	pricing config.BusinessConfig
	logger  *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store CartStore, pricing config.BusinessConfig) *CartService {
	return &CartService{store: store, pricing: pricing, logger: util.GetLogger()}
}

// AddToCartRequest adds a quantity of one item
type AddToCartRequest struct {
	FoodItemID int64 `json:"food_item" binding:"required"`
	Quantity   int   `json:"quantity" binding:"omitempty,min=1"`
}

// SetQuantityRequest replaces the quantity of a line
type SetQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// CartView is the cart with the totals checkout would charge
type CartView struct {
	Lines []models.CartLine `json:"items"`
	models.Totals
}

// GetCart lists the caller's cart with current prices
func (s *CartService) GetCart(ctx context.Context, caller models.Identity) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart", attribute.Int64("user_id", caller.UserID))
	defer span.End()

	lines, err := s.store.ListCart(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	return &CartView{
		Lines:  lines,
		Totals: models.ComputeTotals(lines, s.pricing.TaxRate, s.pricing.DeliveryFee),
	}, nil
}

// AddItem adds to the caller's line for an item, creating it if needed
func (s *CartService) AddItem(ctx context.Context, caller models.Identity, req *AddToCartRequest) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem", attribute.Int64("food_item_id", req.FoodItemID))
	defer span.End()

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	item, err := s.store.GetFoodItem(ctx, req.FoodItemID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NewValidationError("food_item", "unknown food item")
	}
	if err != nil {
		return nil, err
	}
	if !item.IsAvailable {
		return nil, models.NewValidationError("food_item", "item is not available")
	}

	if _, err := s.store.AddToCart(ctx, caller.UserID, item.ID, quantity); err != nil {
		return nil, err
	}
	s.logger.Debug("Cart item added",
		zap.Int64("user_id", caller.UserID),
		zap.Int64("food_item_id", item.ID),
		zap.Int("quantity", quantity))

	return s.GetCart(ctx, caller)
}

// SetQuantity replaces the quantity of an existing line
func (s *CartService) SetQuantity(ctx context.Context, caller models.Identity, itemID int64, req *SetQuantityRequest) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.SetQuantity", attribute.Int64("food_item_id", itemID))
	defer span.End()

	if req.Quantity < 1 {
		return nil, models.NewValidationError("quantity", "must be at least 1")
	}
	if err := s.store.SetCartQuantity(ctx, caller.UserID, itemID, req.Quantity); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, caller)
}

// RemoveItem deletes a line
func (s *CartService) RemoveItem(ctx context.Context, caller models.Identity, itemID int64) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem", attribute.Int64("food_item_id", itemID))
	defer span.End()

	if err := s.store.RemoveFromCart(ctx, caller.UserID, itemID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, caller)
}

// Clear empties the caller's cart
func (s *CartService) Clear(ctx context.Context, caller models.Identity) error {
	ctx, span := util.StartSpan(ctx, "CartService.Clear")
	defer span.End()

	return s.store.ClearCart(ctx, caller.UserID)
}
