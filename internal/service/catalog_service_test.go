package service

import (
	"context"
	"testing"

	"food-delivery/internal/models"
	"food-delivery/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCatalog_WritesAreAdminOnly(t *testing.T) {
	st := &mockStore{}
	svc := NewCatalogService(st)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, customer, &CategoryRequest{Name: "Pizza"})
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.UpdateCategory(ctx, restaurant, 1, &CategoryRequest{Name: "Pizza"})
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteCategory(ctx, rider, 1), models.ErrForbidden)
	_, err = svc.CreateFoodItem(ctx, customer, &FoodItemRequest{Name: "Margherita"})
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteFoodItem(ctx, customer, 1), models.ErrForbidden)

	st.AssertNotCalled(t, "CreateCategory", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "CreateFoodItem", mock.Anything, mock.Anything)
}

func TestCatalog_CreateFoodItem(t *testing.T) {
	st := &mockStore{}
	svc := NewCatalogService(st)
	ctx := context.Background()

	_, err := svc.CreateFoodItem(ctx, admin, &FoodItemRequest{Name: "Margherita", CategoryID: 1})
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "price")

	st.On("GetCategory", mock.Anything, int64(1)).Return(&models.Category{ID: 1, Name: "Pizza"}, nil)
	st.On("CreateFoodItem", mock.Anything, mock.MatchedBy(func(item *models.FoodItem) bool {
		return item.Name == "Margherita" && item.IsAvailable && item.Stock == 20
	})).Return(nil)

	item, err := svc.CreateFoodItem(ctx, admin, &FoodItemRequest{
		Name:       " Margherita ",
		Price:      decimal.RequireFromString("9.50"),
		CategoryID: 1,
		Stock:      20,
	})
	require.NoError(t, err)
	assert.Equal(t, "9.50", item.Price.StringFixed(2))
	st.AssertExpectations(t)
}

func TestCatalog_ListFoodItemsHidesUnavailableFromCustomers(t *testing.T) {
	st := &mockStore{}
	svc := NewCatalogService(st)
	category := int64(2)
	st.On("ListFoodItems", mock.Anything, store.ItemFilter{CategoryID: &category, Search: "pizza", OnlyAvailable: true}).
		Return([]models.FoodItem{{ID: 1}}, nil)
	st.On("ListFoodItems", mock.Anything, store.ItemFilter{OnlyAvailable: false}).
		Return([]models.FoodItem{{ID: 1}, {ID: 2}}, nil)
	ctx := context.Background()

	items, err := svc.ListFoodItems(ctx, customer, ItemQuery{CategoryID: &category, Search: " pizza "})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = svc.ListFoodItems(ctx, admin, ItemQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCatalog_GetFoodItemIncludesRating(t *testing.T) {
	st := &mockStore{}
	svc := NewCatalogService(st)
	st.On("GetFoodItem", mock.Anything, int64(1)).Return(&models.FoodItem{ID: 1, Name: "Margherita"}, nil)
	st.On("GetItemRating", mock.Anything, int64(1)).Return(&models.ItemRating{Average: 4.5, Count: 2}, nil)

	detail, err := svc.GetFoodItem(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Margherita", detail.Name)
	assert.Equal(t, 4.5, detail.Average)
	assert.Equal(t, 2, detail.Count)
}

func TestCart_AddItem(t *testing.T) {
	st := &mockStore{}
	svc := NewCartService(st, testPricing())
	ctx := context.Background()

	st.On("GetFoodItem", mock.Anything, int64(1)).Return(&models.FoodItem{ID: 1, IsAvailable: true}, nil)
	st.On("GetFoodItem", mock.Anything, int64(2)).Return(&models.FoodItem{ID: 2, IsAvailable: false}, nil)
	st.On("GetFoodItem", mock.Anything, int64(3)).Return(nil, models.ErrNotFound)
	st.On("AddToCart", mock.Anything, customer.UserID, int64(1), 1).Return(11, nil)
	st.On("ListCart", mock.Anything, customer.UserID).Return([]models.CartLine{
		{FoodItemID: 1, ItemPrice: decimal.RequireFromString("10.00"), Quantity: 3},
	}, nil)

	view, err := svc.AddItem(ctx, customer, &AddToCartRequest{FoodItemID: 1})
	require.NoError(t, err)
	assert.Equal(t, "30.00", view.Subtotal.StringFixed(2))
	assert.Equal(t, "3.00", view.Tax.StringFixed(2))
	assert.Equal(t, "35.00", view.GrandTotal.StringFixed(2))

	for _, itemID := range []int64{2, 3} {
		_, err := svc.AddItem(ctx, customer, &AddToCartRequest{FoodItemID: itemID, Quantity: 1})
		var vErr *models.ValidationError
		require.ErrorAs(t, err, &vErr, itemID)
		assert.Contains(t, vErr.Fields, "food_item")
	}
	st.AssertNumberOfCalls(t, "AddToCart", 1)
}

func TestCart_SetQuantityAndRemove(t *testing.T) {
	st := &mockStore{}
	svc := NewCartService(st, testPricing())
	ctx := context.Background()

	_, err := svc.SetQuantity(ctx, customer, 1, &SetQuantityRequest{Quantity: 0})
	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)

	st.On("SetCartQuantity", mock.Anything, customer.UserID, int64(1), 4).Return(nil)
	st.On("RemoveFromCart", mock.Anything, customer.UserID, int64(9)).Return(models.ErrNotFound)
	st.On("ListCart", mock.Anything, customer.UserID).Return([]models.CartLine{}, nil)
	st.On("ClearCart", mock.Anything, customer.UserID).Return(nil)

	view, err := svc.SetQuantity(ctx, customer, 1, &SetQuantityRequest{Quantity: 4})
	require.NoError(t, err)
	assert.Empty(t, view.Lines)

	_, err = svc.RemoveItem(ctx, customer, 9)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.NoError(t, svc.Clear(ctx, customer))
}
