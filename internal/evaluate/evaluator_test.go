package evaluate_test

import (
	"testing"
	"time"

	"github.com/storekit/promoflow/internal/evaluate"
	"github.com/storekit/promoflow/internal/event"
	"github.com/storekit/promoflow/internal/rule"
)

var now = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func makeEvent(mutate func(*event.Event)) *event.Event {
	ev := &event.Event{
		ID:            "evt-1",
		Type:          event.TypeOrderPaid,
		Country:       "FR",
		Currency:      "EUR",
		OrderID:       "o-1",
		OrderTotalEUR: 75,
		OrderProductIDs: []string{
			"p2", "p3",
		},
		CustomerID: "cust-1",
	}
	if mutate != nil {
		mutate(ev)
	}
	return ev
}

func makeRule(mutate func(*rule.Rule)) *rule.Rule {
	r := &rule.Rule{
		ID:      "r-1",
		Name:    "test",
		Enabled: true,
		Event:   event.TypeOrderPaid,
		Conditions: rule.ConditionGroup{
			Op: rule.GroupAnd,
		},
		Actions: []rule.Action{
			{Type: rule.ActionSendCoupon, Channels: []rule.Channel{rule.ChannelEmail}, Payload: rule.ActionPayload{Code: "X"}},
		},
	}
	if mutate != nil {
		mutate(r)
	}
	return r
}

func daysAgo(n int) *time.Time {
	t := now.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func TestRule(t *testing.T) {
	cases := []struct {
		name    string
		rule    func(*rule.Rule)
		event   func(*event.Event)
		want    bool
		wantErr bool
	}{
		{
			name: "disabled rule never matches",
			rule: func(r *rule.Rule) { r.Enabled = false },
			want: false,
		},
		{
			name:  "event type mismatch",
			event: func(ev *event.Event) { ev.Type = event.TypeOrderCancelled },
			want:  false,
		},
		{
			name: "empty countries accepts any country",
			rule: func(r *rule.Rule) { r.Countries = nil },
			want: true,
		},
		{
			name: "country in scope",
			rule: func(r *rule.Rule) { r.Countries = []string{"FR", "DE"} },
			want: true,
		},
		{
			name: "country out of scope",
			rule: func(r *rule.Rule) { r.Countries = []string{"DE"} },
			want: false,
		},
		{
			name: "currency out of scope",
			rule: func(r *rule.Rule) { r.OrderCurrencyIn = []string{"USD", "GBP"} },
			want: false,
		},
		{
			name: "currency in scope",
			rule: func(r *rule.Rule) { r.OrderCurrencyIn = []string{"EUR"} },
			want: true,
		},
		{
			name: "empty AND group vacuously true",
			want: true,
		},
		{
			name: "empty OR group vacuously true",
			rule: func(r *rule.Rule) { r.Conditions.Op = rule.GroupOr },
			want: true,
		},
		{
			name: "order total boundary inclusive",
			rule: func(r *rule.Rule) {
				r.Conditions.Items = []rule.ConditionItem{{Kind: rule.CondOrderTotalGteEUR, Amount: 100}}
			},
			event: func(ev *event.Event) { ev.OrderTotalEUR = 100.00 },
			want:  true,
		},
		{
			name: "order total just below",
			rule: func(r *rule.Rule) {
				r.Conditions.Items = []rule.ConditionItem{{Kind: rule.CondOrderTotalGteEUR, Amount: 100}}
			},
			event: func(ev *event.Event) { ev.OrderTotalEUR = 99.99 },
			want:  false,
		},
		{
			name: "contains_product intersection",
			rule: func(r *rule.Rule) {
				r.Conditions.Items = []rule.ConditionItem{{Kind: rule.CondContainsProduct, ProductIDs: []string{"p1", "p2"}}}
			},
			want: true, // order has p2,p3
		},
		{
			name: "contains_product no intersection",
			rule: func(r *rule.Rule) {
				r.Conditions.Items = []rule.ConditionItem{{Kind: rule.CondContainsProduct, ProductIDs: []string{"p1", "p9"}}}
			},
			event: func(ev *event.Event) { ev.OrderProductIDs = []string{"p3", "p4"} },
			want:  false,
		},
		{
			name: "no_order_days satisfied",
			rule: func(r *rule.Rule) {
				r.Conditions.Items = []rule.ConditionItem{{Kind: rule.CondNoOrderDaysGte, Days: 30}}
			},
			event: func(ev *event.Event) { ev.CustomerLastOrderAt = daysAgo(45) },
			want:  true,
		},
		{
			name: "no_order_days not satisfied",
			rule: func(r *rule.Rule) {
				r.Conditions.Items = []rule.ConditionItem{{Kind: rule.CondNoOrderDaysGte, Days: 30}}
			},
			event: func(ev *event.Event) { ev.CustomerLastOrderAt = daysAgo(10) },
			want:  false,
		},
		{
			name: "customer with no orders is inactive for any N",
			rule: func(r *rule.Rule) {
				r.Conditions.Items = []rule.ConditionItem{{Kind: rule.CondNoOrderDaysGte, Days: 365}}
			},
			want: true, // CustomerLastOrderAt nil
		},
		{
			name: "AND needs all items",
			rule: func(r *rule.Rule) {
				r.Conditions.Items = []rule.ConditionItem{
					{Kind: rule.CondOrderTotalGteEUR, Amount: 50},
					{Kind: rule.CondContainsProduct, ProductIDs: []string{"p9"}},
				}
			},
			want: false,
		},
		{
			name: "OR needs one item",
			rule: func(r *rule.Rule) {
				r.Conditions.Op = rule.GroupOr
				r.Conditions.Items = []rule.ConditionItem{
					{Kind: rule.CondOrderTotalGteEUR, Amount: 5000},
					{Kind: rule.CondContainsProduct, ProductIDs: []string{"p2"}},
				}
			},
			want: true,
		},
		{
			name: "unknown kind is an error, not a silent skip",
			rule: func(r *rule.Rule) {
				r.Conditions.Items = []rule.ConditionItem{{Kind: "cart_weight_gte"}}
			},
			wantErr: true,
		},
		{
			name: "unknown group op is an error",
			rule: func(r *rule.Rule) {
				r.Conditions.Op = "XOR"
			},
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := makeRule(tc.rule)
			ev := makeEvent(tc.event)
			got, err := evaluate.Rule(r, ev, now)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got match=%v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if got != tc.want {
				t.Errorf("match = %v, want %v", got, tc.want)
			}
		})
	}
}
