package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderProcessing.CanTransitionTo(OrderConfirmed))
	assert.True(t, OrderProcessing.CanTransitionTo(OrderCancelled))
	assert.True(t, OrderConfirmed.CanTransitionTo(OrderShipped))
	assert.True(t, OrderShipped.CanTransitionTo(OrderDelivered))

	// Cancellation is only reachable from Processing.
	assert.False(t, OrderConfirmed.CanTransitionTo(OrderCancelled))
	assert.False(t, OrderShipped.CanTransitionTo(OrderCancelled))
	assert.False(t, OrderDelivered.CanTransitionTo(OrderCancelled))
	assert.False(t, OrderCancelled.CanTransitionTo(OrderCancelled))

	// Terminal states.
	assert.False(t, OrderDelivered.CanTransitionTo(OrderProcessing))
	assert.False(t, OrderCancelled.CanTransitionTo(OrderProcessing))

	// No skipping forward.
	assert.False(t, OrderProcessing.CanTransitionTo(OrderShipped))
	assert.False(t, OrderConfirmed.CanTransitionTo(OrderDelivered))
}
