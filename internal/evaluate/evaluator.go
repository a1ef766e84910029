// Package evaluate decides whether a rule matches an incoming event.
package evaluate

import (
	"fmt"
	"strings"
	"time"

	"github.com/storekit/promoflow/internal/event"
	"github.com/storekit/promoflow/internal/rule"
)

// Rule reports whether r matches ev at the given time.
//
// Gates apply in order: enabled flag, event type, country scope, currency
// scope, then the condition group. Empty scope sets mean "no restriction",
// and an empty condition group (AND or OR) is vacuously true. Numeric
// comparisons are inclusive.
func Rule(r *rule.Rule, ev *event.Event, now time.Time) (bool, error) {
	if !r.Enabled {
		return false, nil
	}
	if ev.Type != r.Event {
		return false, nil
	}
	if len(r.Countries) > 0 && !containsFold(r.Countries, ev.Country) {
		return false, nil
	}
	if len(r.OrderCurrencyIn) > 0 && !containsFold(r.OrderCurrencyIn, ev.Currency) {
		return false, nil
	}
	return group(&r.Conditions, ev, now)
}

func group(g *rule.ConditionGroup, ev *event.Event, now time.Time) (bool, error) {
	switch g.Op {
	case rule.GroupAnd:
		for i := range g.Items {
			ok, err := item(&g.Items[i], ev, now)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil // short-circuit
			}
		}
		return true, nil
	case rule.GroupOr:
		if len(g.Items) == 0 {
			return true, nil // no restriction
		}
		for i := range g.Items {
			ok, err := item(&g.Items[i], ev, now)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil // short-circuit
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("condition group: unknown op %q", g.Op)
	}
}

func item(c *rule.ConditionItem, ev *event.Event, now time.Time) (bool, error) {
	switch c.Kind {
	case rule.CondContainsProduct:
		return intersects(ev.OrderProductIDs, c.ProductIDs), nil
	case rule.CondOrderTotalGteEUR:
		return ev.OrderTotalEUR >= c.Amount, nil
	case rule.CondNoOrderDaysGte:
		// A customer with no prior orders is inactive by definition.
		if ev.CustomerLastOrderAt == nil {
			return true, nil
		}
		quiet := now.Sub(*ev.CustomerLastOrderAt)
		return quiet >= time.Duration(c.Days)*24*time.Hour, nil
	default:
		// Unknown kinds are rejected at the store boundary; hitting one here
		// means the document predates validation or was written out of band.
		return false, fmt.Errorf("condition item: unknown kind %q", c.Kind)
	}
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
