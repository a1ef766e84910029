// Package rule defines the automation rule document model: a stored rule
// binds a trigger event, country/currency scope filters, a condition group,
// and one or more channel-fanned actions.
package rule

import (
	"strings"
	"time"

	"github.com/storekit/promoflow/internal/event"
)

// Rule is a stored automation definition.
type Rule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Enabled  bool `json:"enabled"`
	Priority int  `json:"priority"` // lower runs first; orders delivery sequencing only

	Event event.Type `json:"event"`

	// Countries scopes the rule to orders/customers from these ISO-2 codes.
	// Empty means all countries.
	Countries []string `json:"countries"`
	// OrderCurrencyIn scopes the rule to orders in these currencies.
	// Empty means all currencies.
	OrderCurrencyIn []string `json:"orderCurrencyIn,omitempty"`

	Conditions ConditionGroup `json:"conditions"`
	Actions    []Action       `json:"actions"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Normalize upper-cases country and currency codes and the group operator so
// scope checks are plain set lookups.
func (r *Rule) Normalize() {
	for i, c := range r.Countries {
		r.Countries[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	for i, c := range r.OrderCurrencyIn {
		r.OrderCurrencyIn[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	r.Conditions.normalize()
}

// Patch is a partial update. Nil fields are left untouched; non-nil fields
// replace the stored value wholesale (lists and the condition group are
// documents, not merged element-wise).
type Patch struct {
	Name            *string         `json:"name,omitempty"`
	Description     *string         `json:"description,omitempty"`
	Enabled         *bool           `json:"enabled,omitempty"`
	Priority        *int            `json:"priority,omitempty"`
	Event           *event.Type     `json:"event,omitempty"`
	Countries       *[]string       `json:"countries,omitempty"`
	OrderCurrencyIn *[]string       `json:"orderCurrencyIn,omitempty"`
	Conditions      *ConditionGroup `json:"conditions,omitempty"`
	Actions         *[]Action       `json:"actions,omitempty"`
}

// Apply overlays the patch onto r.
func (p *Patch) Apply(r *Rule) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Enabled != nil {
		r.Enabled = *p.Enabled
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.Event != nil {
		r.Event = *p.Event
	}
	if p.Countries != nil {
		r.Countries = *p.Countries
	}
	if p.OrderCurrencyIn != nil {
		r.OrderCurrencyIn = *p.OrderCurrencyIn
	}
	if p.Conditions != nil {
		r.Conditions = *p.Conditions
	}
	if p.Actions != nil {
		r.Actions = *p.Actions
	}
	r.Normalize()
}
