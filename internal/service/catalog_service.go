package service

import (
	"context"
	"fmt"
	"strings"

	"food-delivery/internal/models"
	"food-delivery/internal/store"
	"food-delivery/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CatalogService serves categories and food items. Writes are admin only.
type CatalogService struct {
	store  CatalogStore
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store, logger: util.GetLogger()}
}

// CategoryRequest creates or replaces a category
type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// FoodItemRequest creates or replaces a food item
type FoodItemRequest struct {
	Name         string          `json:"name" binding:"required,max=200"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   int64           `json:"category" binding:"required"`
	RestaurantID *int64          `json:"restaurant"`
	IsAvailable  *bool           `json:"is_available"`
	Stock        int             `json:"stock" binding:"min=0"`
}

// FoodItemDetail is a food item with its rating aggregate
type FoodItemDetail struct {
	*models.FoodItem
	models.ItemRating
}

// ItemQuery filters the item listing
type ItemQuery struct {
	CategoryID *int64
	Search     string
}

func requireAdmin(caller models.Identity, action string) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("%s: %w", action, models.ErrForbidden)
	}
	return nil
}

// ListCategories lists every category
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListCategories")
	defer span.End()

	return s.store.ListCategories(ctx)
}

// GetCategory retrieves one category
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetCategory", attribute.Int64("category_id", id))
	defer span.End()

	return s.store.GetCategory(ctx, id)
}

// CreateCategory adds a category
func (s *CatalogService) CreateCategory(ctx context.Context, caller models.Identity, req *CategoryRequest) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateCategory")
	defer span.End()

	if err := requireAdmin(caller, "create category"); err != nil {
		return nil, err
	}

	category := &models.Category{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	s.logger.Info("Category created", zap.Int64("category_id", category.ID))
	return category, nil
}

// UpdateCategory replaces a category's fields
func (s *CatalogService) UpdateCategory(ctx context.Context, caller models.Identity, id int64, req *CategoryRequest) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateCategory", attribute.Int64("category_id", id))
	defer span.End()

	if err := requireAdmin(caller, "update category"); err != nil {
		return nil, err
	}

	category, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = strings.TrimSpace(req.Name)
	category.Description = req.Description
	if err := s.store.UpdateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a category
func (s *CatalogService) DeleteCategory(ctx context.Context, caller models.Identity, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteCategory", attribute.Int64("category_id", id))
	defer span.End()

	if err := requireAdmin(caller, "delete category"); err != nil {
		return err
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Category deleted", zap.Int64("category_id", id))
	return nil
}

// ListFoodItems lists items. Admins also see unavailable ones.
func (s *CatalogService) ListFoodItems(ctx context.Context, caller models.Identity, q ItemQuery) ([]models.FoodItem, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListFoodItems")
	defer span.End()

	return s.store.ListFoodItems(ctx, store.ItemFilter{
		CategoryID:    q.CategoryID,
		Search:        strings.TrimSpace(q.Search),
		OnlyAvailable: !caller.IsAdmin(),
	})
}

// GetFoodItem retrieves an item with its rating
func (s *CatalogService) GetFoodItem(ctx context.Context, id int64) (*FoodItemDetail, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetFoodItem", attribute.Int64("food_item_id", id))
	defer span.End()

	item, err := s.store.GetFoodItem(ctx, id)
	if err != nil {
		return nil, err
	}
	rating, err := s.store.GetItemRating(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load rating: %w", err)
	}
	return &FoodItemDetail{FoodItem: item, ItemRating: *rating}, nil
}

func (r *FoodItemRequest) validate() error {
	if !r.Price.IsPositive() {
		return models.NewValidationError("price", "must be greater than zero")
	}
	return nil
}

func (r *FoodItemRequest) apply(item *models.FoodItem) {
	item.Name = strings.TrimSpace(r.Name)
	item.Description = r.Description
	item.Price = r.Price
	item.CategoryID = r.CategoryID
	item.RestaurantID = r.RestaurantID
	item.Stock = r.Stock
	if r.IsAvailable != nil {
		item.IsAvailable = *r.IsAvailable
	}
}

// CreateFoodItem adds an item, available unless stated otherwise
func (s *CatalogService) CreateFoodItem(ctx context.Context, caller models.Identity, req *FoodItemRequest) (*models.FoodItem, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateFoodItem")
	defer span.End()

	if err := requireAdmin(caller, "create food item"); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetCategory(ctx, req.CategoryID); err != nil {
		return nil, models.NewValidationError("category", "unknown category")
	}

	item := &models.FoodItem{IsAvailable: true}
	req.apply(item)
	if err := s.store.CreateFoodItem(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("Food item created", zap.Int64("food_item_id", item.ID))
	return item, nil
}

// UpdateFoodItem replaces an item's fields
func (s *CatalogService) UpdateFoodItem(ctx context.Context, caller models.Identity, id int64, req *FoodItemRequest) (*models.FoodItem, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateFoodItem", attribute.Int64("food_item_id", id))
	defer span.End()

	if err := requireAdmin(caller, "update food item"); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	item, err := s.store.GetFoodItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.CategoryID != req.CategoryID {
		if _, err := s.store.GetCategory(ctx, req.CategoryID); err != nil {
			return nil, models.NewValidationError("category", "unknown category")
		}
	}

	req.apply(item)
	if err := s.store.UpdateFoodItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteFoodItem removes an item
func (s *CatalogService) DeleteFoodItem(ctx context.Context, caller models.Identity, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteFoodItem", attribute.Int64("food_item_id", id))
	defer span.End()

	if err := requireAdmin(caller, "delete food item"); err != nil {
		return err
	}
	return s.store.DeleteFoodItem(ctx, id)
}
