package event

import "time"

// Type enumerates the trigger events a rule can bind to.
type Type string

const (
	TypeOrderPlaced         Type = "order_placed"
	TypeOrderPendingPayment Type = "order_pending_payment"
	TypeOrderPaid           Type = "order_paid"
	TypeOrderPartiallyPaid  Type = "order_partially_paid"
	TypeOrderCompleted      Type = "order_completed"
	TypeOrderCancelled      Type = "order_cancelled"
	TypeOrderRefunded       Type = "order_refunded"
	TypeOrderShipped        Type = "order_shipped"
	TypeOrderMessage        Type = "order_message"
	TypeTicketCreated       Type = "ticket_created"
	TypeTicketReplied       Type = "ticket_replied"
	TypeManual              Type = "manual"
	TypeCustomerInactive    Type = "customer_inactive"
)

var knownTypes = map[Type]struct{}{
	TypeOrderPlaced:         {},
	TypeOrderPendingPayment: {},
	TypeOrderPaid:           {},
	TypeOrderPartiallyPaid:  {},
	TypeOrderCompleted:      {},
	TypeOrderCancelled:      {},
	TypeOrderRefunded:       {},
	TypeOrderShipped:        {},
	TypeOrderMessage:        {},
	TypeTicketCreated:       {},
	TypeTicketReplied:       {},
	TypeManual:              {},
	TypeCustomerInactive:    {},
}

// Valid reports whether t is one of the known trigger events.
func (t Type) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// Event is the canonical input model for all incoming domain events.
// It carries the order/customer context the evaluator and dispatcher read.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"` // "order_paid", "customer_inactive", etc.
	OccurredAt time.Time `json:"occurred_at"`
	ReceivedAt time.Time `json:"-"`

	Country  string `json:"country"`  // ISO-2 code of the triggering order/customer
	Currency string `json:"currency"` // "USD", "EUR", "GBP"

	OrderID         string   `json:"order_id,omitempty"`
	OrderTotalEUR   float64  `json:"order_total_eur,omitempty"` // EUR-normalized order total
	OrderProductIDs []string `json:"order_product_ids,omitempty"`

	CustomerID string `json:"customer_id,omitempty"`
	// CustomerLastOrderAt is nil for customers with no prior orders.
	CustomerLastOrderAt *time.Time `json:"customer_last_order_at,omitempty"`
}
