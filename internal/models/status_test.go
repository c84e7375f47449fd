package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusPreparing, true},
		{OrderStatusConfirmed, OrderStatusPreparing, true},
		{OrderStatusReady, OrderStatusOutForDelivery, true},
		{OrderStatusOutForDelivery, OrderStatusDelivered, true},
		{OrderStatusPreparing, OrderStatusConfirmed, false},
		{OrderStatusReady, OrderStatusReady, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusPreparing, OrderStatusCancelled, false},
		{OrderStatusOutForDelivery, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatusPending, OrderStatus("teleported"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCanCancel(t *testing.T) {
	all := []OrderStatus{
		OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing, OrderStatusReady,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled,
	}
	for _, s := range all {
		order := &Order{Status: s}
		want := s == OrderStatusPending || s == OrderStatusConfirmed
		assert.Equal(t, want, order.CanCancel(), s)
		assert.Equal(t, !s.Terminal(), order.IsActive(), s)
	}
}

func TestStatusAllowedForRole(t *testing.T) {
	assert.True(t, StatusAllowedForRole(RoleAdmin, OrderStatusDelivered))
	assert.True(t, StatusAllowedForRole(RoleRestaurant, OrderStatusPreparing))
	assert.False(t, StatusAllowedForRole(RoleRestaurant, OrderStatusDelivered))
	assert.True(t, StatusAllowedForRole(RoleRider, OrderStatusOutForDelivery))
	assert.False(t, StatusAllowedForRole(RoleRider, OrderStatusConfirmed))
	assert.False(t, StatusAllowedForRole(RoleCustomer, OrderStatusCancelled))
}

func TestOrderAssignedTo(t *testing.T) {
	riderID := int64(7)
	order := &Order{UserID: 1, RiderID: &riderID}

	assert.True(t, order.AssignedTo(7))
	assert.False(t, order.AssignedTo(8))
	assert.True(t, order.OwnedBy(1))
	assert.False(t, (&Order{}).AssignedTo(7))
}
