package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"

	"github.com/brewchat/brewchat/pkg/enums/orderstatus"
	"github.com/brewchat/brewchat/pkg/pricing"
)

const DefaultCustomerName = "Guest"

// OrderLine is one drink on an order, fully priced. TotalPrice is the unit
// price (base plus modifications); the line contributes TotalPrice * Quantity
// to the order subtotal.
type OrderLine struct {
	Name               string   `json:"name" bson:"name"`
	Size               string   `json:"size,omitempty" bson:"size,omitempty"`
	Temperature        string   `json:"temperature,omitempty" bson:"temperature,omitempty"`
	Milk               string   `json:"milk,omitempty" bson:"milk,omitempty"`
	IceLevel           string   `json:"ice_level,omitempty" bson:"ice_level,omitempty"`
	Sweetness          string   `json:"sweetness,omitempty" bson:"sweetness,omitempty"`
	Modifications      []string `json:"modifications,omitempty" bson:"modifications,omitempty"`
	BasePrice          float64  `json:"base_price" bson:"base_price"`
	ModificationsPrice float64  `json:"modifications_price" bson:"modifications_price"`
	TotalPrice         float64  `json:"total_price" bson:"total_price"`
	Quantity           int      `json:"quantity" bson:"quantity"`
}

// Order is a confirmed, priced customer order. OrderNumber is the
// customer-facing ticket number assigned by the store; SessionID links back to
// the conversation that produced the order and is unique across orders.
type Order struct {
	ID           uuid.UUID   `json:"id" bson:"_id"`
	OrderNumber  int64       `json:"order_number" bson:"order_number"`
	SessionID    string      `json:"session_id,omitempty" bson:"session_id,omitempty"`
	CustomerName string      `json:"customer_name" bson:"customer_name"`
	Items        []OrderLine `json:"items" bson:"items"`
	Subtotal     float64     `json:"subtotal" bson:"subtotal"`
	Tax          float64     `json:"tax" bson:"tax"`
	Total        float64     `json:"total" bson:"total"`
	Status       string      `json:"status" bson:"status"`
	CancelReason string      `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CreatedAt    time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" bson:"updated_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

func NewOrder() *Order {
	return &Order{
		ID:           apt.GenerateNewID(),
		CustomerName: DefaultCustomerName,
		Status:       orderstatus.Statuses.Pending.Name,
	}
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) SetID(id uuid.UUID) {
	o.ID = id
}

func (o *Order) ResourceType() string {
	return "order"
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = apt.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	if strings.TrimSpace(o.CustomerName) == "" {
		o.CustomerName = DefaultCustomerName
	}
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now()
}

// TransitionTo moves the order to a new status, enforcing the monotonic
// pending -> in_progress -> completed path with cancellation reachable from
// any non-terminal state. CompletedAt is stamped on entering a terminal state.
func (o *Order) TransitionTo(to orderstatus.Status, reason string) error {
	from := orderstatus.ByName(o.Status)
	if from == nil {
		return fmt.Errorf("order has unknown status %q", o.Status)
	}
	if !orderstatus.CanTransition(*from, to) {
		return fmt.Errorf("cannot transition order from %s to %s", from.Name, to.Name)
	}

	o.Status = to.Name
	if to.IsTerminal() {
		now := time.Now()
		o.CompletedAt = &now
	}
	if to.Name == orderstatus.Statuses.Cancelled.Name {
		o.CancelReason = reason
	}
	o.UpdatedAt = time.Now()
	return nil
}

func (o *Order) MarkInProgress() error {
	return o.TransitionTo(orderstatus.Statuses.InProgress, "")
}

func (o *Order) MarkCompleted() error {
	return o.TransitionTo(orderstatus.Statuses.Completed, "")
}

func (o *Order) Cancel(reason string) error {
	return o.TransitionTo(orderstatus.Statuses.Cancelled, reason)
}

// ApplyPricing recomputes Subtotal, Tax, and Total from the items. The
// subtotal is rounded once before tax is derived from it.
func (o *Order) ApplyPricing() {
	lineTotals := make([]float64, 0, len(o.Items))
	for _, line := range o.Items {
		lineTotals = append(lineTotals, pricing.LineTotal(line.TotalPrice, line.Quantity))
	}
	o.Subtotal = pricing.Subtotal(lineTotals)
	o.Tax = pricing.Tax(o.Subtotal)
	o.Total = pricing.Total(o.Subtotal)
}

// Validate checks the submission invariants: non-empty items, sane quantities,
// non-negative prices, and pricing consistent with pkg/pricing to the cent.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return fmt.Errorf("order has no items")
	}

	lineTotals := make([]float64, 0, len(o.Items))
	for i, line := range o.Items {
		if strings.TrimSpace(line.Name) == "" {
			return fmt.Errorf("item %d has no name", i)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("item %q has quantity %d", line.Name, line.Quantity)
		}
		if line.BasePrice < 0 || line.ModificationsPrice < 0 || line.TotalPrice < 0 {
			return fmt.Errorf("item %q has a negative price", line.Name)
		}
		if !centsEqual(line.TotalPrice, line.BasePrice+line.ModificationsPrice) {
			return fmt.Errorf("item %q total price %.2f does not match base %.2f + modifications %.2f",
				line.Name, line.TotalPrice, line.BasePrice, line.ModificationsPrice)
		}
		lineTotals = append(lineTotals, pricing.LineTotal(line.TotalPrice, line.Quantity))
	}

	subtotal := pricing.Subtotal(lineTotals)
	if !centsEqual(o.Subtotal, subtotal) {
		return fmt.Errorf("subtotal %.2f does not match items total %.2f", o.Subtotal, subtotal)
	}
	if !centsEqual(o.Tax, pricing.Tax(subtotal)) {
		return fmt.Errorf("tax %.2f does not match expected %.2f", o.Tax, pricing.Tax(subtotal))
	}
	if !centsEqual(o.Total, pricing.Total(subtotal)) {
		return fmt.Errorf("total %.2f does not match expected %.2f", o.Total, pricing.Total(subtotal))
	}

	return nil
}

func centsEqual(a, b float64) bool {
	return pricing.Round2(a) == pricing.Round2(b)
}
