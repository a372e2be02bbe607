package domain

import "testing"

func TestValidOrderStatus(t *testing.T) {
	valid := []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusFulfilled, OrderStatusCanceled}
	for _, s := range valid {
		if !ValidOrderStatus(s) {
			t.Errorf("expected %q to be a valid status", s)
		}
	}

	for _, s := range []OrderStatus{"", "shipped", "PAID", "done"} {
		if ValidOrderStatus(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusFulfilled, true},
		{OrderStatusPending, OrderStatusCanceled, true},
		{OrderStatusPaid, OrderStatusFulfilled, true},
		{OrderStatusPaid, OrderStatusCanceled, true},
		{OrderStatusFulfilled, OrderStatusCanceled, true},

		// paid is set only by the payment confirmation path
		{OrderStatusPending, OrderStatusPaid, false},

		// no backward transitions
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusFulfilled, OrderStatusPending, false},
		{OrderStatusFulfilled, OrderStatusPaid, false},
		{OrderStatusCanceled, OrderStatusPending, false},
		{OrderStatusCanceled, OrderStatusFulfilled, false},

		// self transitions are no-ops, not allowed
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatusPaid, OrderStatusPaid, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
