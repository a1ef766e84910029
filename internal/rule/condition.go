package rule

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GroupOp combines the items of a condition group.
type GroupOp string

const (
	GroupAnd GroupOp = "AND"
	GroupOr  GroupOp = "OR"
)

// ConditionKind discriminates the condition item union.
type ConditionKind string

const (
	CondContainsProduct  ConditionKind = "contains_product"
	CondOrderTotalGteEUR ConditionKind = "order_total_gte_eur"
	CondNoOrderDaysGte   ConditionKind = "no_order_days_gte"

	// legacy alias still emitted by older clients; normalized on decode
	condOrderTotalGteLegacy ConditionKind = "order_total_gte"
)

// ConditionGroup is a boolean combinator over condition items.
// An empty item list is vacuously true for both operators, matching the
// "empty set means no restriction" convention used by country and currency
// scopes.
type ConditionGroup struct {
	Op    GroupOp         `json:"op"`
	Items []ConditionItem `json:"items"`
}

// ConditionItem is a tagged union discriminated by Kind. Exactly the fields
// relevant to the kind are populated.
type ConditionItem struct {
	Kind ConditionKind `json:"kind"`

	// contains_product
	ProductIDs []string `json:"productIds,omitempty"`
	// order_total_gte_eur
	Amount float64 `json:"amount,omitempty"`
	// no_order_days_gte
	Days int `json:"days,omitempty"`
}

// UnmarshalJSON rejects unknown kinds instead of letting them pass through as
// inert items, and folds the legacy "order_total_gte" alias into
// "order_total_gte_eur".
func (c *ConditionItem) UnmarshalJSON(data []byte) error {
	type alias ConditionItem
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Kind == condOrderTotalGteLegacy {
		a.Kind = CondOrderTotalGteEUR
	}
	switch a.Kind {
	case CondContainsProduct, CondOrderTotalGteEUR, CondNoOrderDaysGte:
	default:
		return fmt.Errorf("condition: unknown kind %q", a.Kind)
	}
	*c = ConditionItem(a)
	return nil
}

func (c *ConditionGroup) normalize() {
	c.Op = GroupOp(strings.ToUpper(string(c.Op)))
}
