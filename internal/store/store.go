// Package store persists rule documents. The REST layer relies on PATCH
// semantics: partial updates must not clobber unspecified fields.
package store

import (
	"context"
	"errors"

	"github.com/storekit/promoflow/internal/event"
	"github.com/storekit/promoflow/internal/rule"
)

// ErrNotFound is returned when no rule exists for the given id.
var ErrNotFound = errors.New("rule not found")

// Store is the rule persistence contract.
type Store interface {
	// List returns all rules ordered by ascending priority.
	List(ctx context.Context) ([]rule.Rule, error)
	// ListByEvent returns the enabled rules bound to the given trigger event,
	// ordered by ascending priority (ties broken by creation time, then id).
	ListByEvent(ctx context.Context, ev event.Type) ([]rule.Rule, error)
	// Get returns a single rule by id.
	Get(ctx context.Context, id string) (rule.Rule, error)
	// Create stores a new rule, assigning its id and timestamps. Each create
	// is an independent transaction; concurrent creates never collide.
	Create(ctx context.Context, r *rule.Rule) error
	// Update applies a partial patch and returns the updated document.
	Update(ctx context.Context, id string, p rule.Patch) (rule.Rule, error)
	// Delete removes a rule by id.
	Delete(ctx context.Context, id string) error
}
