package rule

import (
	"fmt"
	"strings"
)

// Validate checks a rule document for:
//   - Required fields (name, known event)
//   - At least one action, each with at least one known channel
//   - Per-kind condition payloads (product list, amount, day count)
//
// All problems are reported at once, one per line.
func Validate(r *Rule) error {
	var errs []string

	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	if !r.Event.Valid() {
		errs = append(errs, fmt.Sprintf("unknown event %q", r.Event))
	}
	if r.Priority < 0 {
		errs = append(errs, "priority must be non-negative")
	}
	for _, c := range r.Countries {
		if len(c) != 2 {
			errs = append(errs, fmt.Sprintf("country %q is not an ISO-2 code", c))
		}
	}

	switch r.Conditions.Op {
	case GroupAnd, GroupOr:
	default:
		errs = append(errs, fmt.Sprintf("conditions: op must be AND or OR, got %q", r.Conditions.Op))
	}
	for i, item := range r.Conditions.Items {
		if msg := validateItem(item); msg != "" {
			errs = append(errs, fmt.Sprintf("conditions.items[%d]: %s", i, msg))
		}
	}

	if len(r.Actions) == 0 {
		errs = append(errs, "at least one action is required")
	}
	for i, a := range r.Actions {
		loc := fmt.Sprintf("actions[%d]", i)
		if len(a.Channels) == 0 {
			errs = append(errs, loc+": at least one channel is required")
		}
		for _, ch := range a.Channels {
			if !ch.Valid() {
				errs = append(errs, fmt.Sprintf("%s: unknown channel %q", loc, ch))
			}
		}
		switch a.Type {
		case ActionSendCoupon:
			if a.Payload.CouponID == nil && a.Payload.Code == "" {
				errs = append(errs, loc+": send_coupon needs a couponId or a fallback code")
			}
		case ActionRecommendation:
			if len(a.Payload.ProductIDs) == 0 && a.Payload.CollectionID == "" {
				errs = append(errs, loc+": product_recommendation needs productIds or a collectionId")
			}
		default:
			errs = append(errs, fmt.Sprintf("%s: unknown type %q", loc, a.Type))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("rule validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateItem(item ConditionItem) string {
	switch item.Kind {
	case CondContainsProduct:
		if len(item.ProductIDs) == 0 {
			return "contains_product needs at least one product id"
		}
	case CondOrderTotalGteEUR:
		if item.Amount < 0 {
			return "order_total_gte_eur amount must be non-negative"
		}
	case CondNoOrderDaysGte:
		if item.Days < 1 {
			return "no_order_days_gte days must be >= 1"
		}
	default:
		return fmt.Sprintf("unknown kind %q", item.Kind)
	}
	return ""
}
