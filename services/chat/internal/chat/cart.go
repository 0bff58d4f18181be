package chat

import "github.com/brewchat/brewchat/pkg/pricing"

// CartItem is one line in the running cart the cashier model reports. The
// cart is a working view for the customer, not the order of record; the
// priced order lines come from the confirmed order draft.
type CartItem struct {
	Name      string  `json:"name" bson:"name"`
	Size      string  `json:"size,omitempty" bson:"size,omitempty"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	UnitPrice float64 `json:"unit_price" bson:"unit_price"`
	Notes     string  `json:"notes,omitempty" bson:"notes,omitempty"`
}

// CartSnapshot is the full cart as reported in one turn.
type CartSnapshot struct {
	Items []CartItem `json:"items" bson:"items"`
}

// Subtotal prices the snapshot for display.
func (s *CartSnapshot) Subtotal() float64 {
	total := 0.0
	for _, item := range s.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return pricing.Round2(total)
}

// Cart is the reconciled cart for one conversation. Each reported snapshot
// replaces the previous state wholesale; a turn with no usable cart segment
// leaves the cart untouched. Replacement rather than merging is what lets
// the model remove or amend items by simply restating the cart.
type Cart struct {
	Items   []CartItem `json:"items" bson:"items"`
	Version int        `json:"version" bson:"version"`
}

// Reconcile applies one extracted cart result. It returns true when the cart
// changed, which callers use to decide whether the session needs persisting.
func (c *Cart) Reconcile(result CartResult) bool {
	if result.State != SegmentPresent || result.Snapshot == nil {
		return false
	}

	c.Items = make([]CartItem, len(result.Snapshot.Items))
	copy(c.Items, result.Snapshot.Items)
	c.Version++
	return true
}

// IsEmpty reports whether the cart currently holds no items. An explicit
// empty snapshot (a cleared cart) still counts as empty, but remains a
// distinct version from never having reported a cart.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Subtotal prices the current cart for display.
func (c *Cart) Subtotal() float64 {
	total := 0.0
	for _, item := range c.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return pricing.Round2(total)
}
