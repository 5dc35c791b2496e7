package domain

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	order, err := NewOrder("user-1", []Line{
		{ProductID: "prod-1", Quantity: 2, UnitPriceCents: 500},
		{ProductID: "prod-2", Quantity: 1, UnitPriceCents: 1250},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPlaced, order.Status)
	assert.Equal(t, int64(2250), order.TotalCents())
	assert.False(t, order.PlacedAt.IsZero())
}

func TestNewOrder_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		userID  string
		lines   []Line
		wantErr error
	}{
		{"missing user", "", []Line{{ProductID: "p", Quantity: 1}}, ErrEmptyUserRef},
		{"no lines", "user-1", nil, ErrEmptyLines},
		{"missing product", "user-1", []Line{{Quantity: 1}}, ErrEmptyProductRef},
		{"zero quantity", "user-1", []Line{{ProductID: "p", Quantity: 0}}, ErrInvalidQuantity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOrder(tc.userID, tc.lines)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestTransition(t *testing.T) {
	order, err := NewOrder("user-1", []Line{{ProductID: "p", Quantity: 1, UnitPriceCents: 100}})
	require.NoError(t, err)

	require.NoError(t, order.Transition(StatusApproved))
	require.NoError(t, order.Transition(StatusShipped))
	require.NoError(t, order.Transition(StatusDelivered))

	require.ErrorIs(t, order.Transition(StatusCancelled), ErrInvalidTransition)
}

func TestTransition_SkippingStates(t *testing.T) {
	order, err := NewOrder("user-1", []Line{{ProductID: "p", Quantity: 1, UnitPriceCents: 100}})
	require.NoError(t, err)

	require.ErrorIs(t, order.Transition(StatusShipped), ErrInvalidTransition)
	require.NoError(t, order.Transition(StatusCancelled))
	require.ErrorIs(t, order.Transition(StatusApproved), ErrInvalidTransition)
}

// Orders cross a service boundary, so the aggregate must carry identifier
// references only. A struct field of a user or product entity type would
// duplicate mutable state owned by another service.
func TestOrderHoldsReferencesOnly(t *testing.T) {
	orderType := reflect.TypeOf(Order{})
	for i := 0; i < orderType.NumField(); i++ {
		field := orderType.Field(i)
		switch field.Type.Kind() {
		case reflect.Struct:
			assert.Equal(t, "time.Time", field.Type.String(), "unexpected embedded struct field %s", field.Name)
		case reflect.Slice:
			assert.Equal(t, reflect.TypeOf([]Line(nil)), field.Type, "unexpected slice field %s", field.Name)
		}
	}
	lineType := reflect.TypeOf(Line{})
	for i := 0; i < lineType.NumField(); i++ {
		kind := lineType.Field(i).Type.Kind()
		assert.Contains(t, []reflect.Kind{reflect.String, reflect.Int32, reflect.Int64}, kind)
	}
}
