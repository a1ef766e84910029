// Package channel fans delivery requests out to their transports. Actual
// transports (SMTP relay, Telegram bot API, in-app notification store) are
// external collaborators; the senders here hand off a fully-formed request.
package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/storekit/promoflow/internal/rule"
)

// Request is one well-formed delivery request for a single channel. It is
// what crosses the boundary to a transport.
type Request struct {
	ID      string       `json:"id"`
	Channel rule.Channel `json:"channel"`

	RuleID     string          `json:"rule_id"`
	RuleName   string          `json:"rule_name"`
	ActionType rule.ActionType `json:"action_type"`

	EventID    string `json:"event_id"`
	OrderID    string `json:"order_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`

	Subject string `json:"subject,omitempty"`
	Message string `json:"message,omitempty"` // rendered HTML body
	URL     string `json:"url,omitempty"`

	CouponCode   string   `json:"coupon_code,omitempty"`
	ProductIDs   []string `json:"product_ids,omitempty"`
	CollectionID string   `json:"collection_id,omitempty"`
}

// Sender delivers requests for one channel.
type Sender interface {
	// Channel returns the key this sender is registered under.
	Channel() rule.Channel
	// Send hands the request to the channel's transport.
	Send(ctx context.Context, req *Request) error
}

// Registry maps channels to their senders.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu      sync.RWMutex
	senders map[rule.Channel]Sender
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[rule.Channel]Sender)}
}

// Register adds a sender. Panics on duplicate channel to surface
// misconfiguration early.
func (r *Registry) Register(s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.senders[s.Channel()]; exists {
		panic(fmt.Sprintf("channel registry: duplicate channel %q", s.Channel()))
	}
	r.senders[s.Channel()] = s
}

// Get returns the sender for the given channel.
func (r *Registry) Get(ch rule.Channel) (Sender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.senders[ch]
	if !ok {
		return nil, fmt.Errorf("no sender registered for channel %q", ch)
	}
	return s, nil
}

// Channels returns all registered channels.
func (r *Registry) Channels() []rule.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]rule.Channel, 0, len(r.senders))
	for ch := range r.senders {
		out = append(out, ch)
	}
	return out
}
