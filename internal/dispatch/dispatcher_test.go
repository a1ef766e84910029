package dispatch_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/storekit/promoflow/internal/channel"
	"github.com/storekit/promoflow/internal/coupon"
	"github.com/storekit/promoflow/internal/dispatch"
	"github.com/storekit/promoflow/internal/event"
	"github.com/storekit/promoflow/internal/rule"
)

// mapSource is an in-memory coupon.Source.
type mapSource map[string]coupon.Coupon

func (m mapSource) Get(id string) (coupon.Coupon, bool) {
	c, ok := m[id]
	return c, ok
}

// captureSender records every request it receives.
type captureSender struct {
	ch   rule.Channel
	mu   sync.Mutex
	reqs []*channel.Request
	fail bool
}

func (s *captureSender) Channel() rule.Channel { return s.ch }

func (s *captureSender) Send(ctx context.Context, req *channel.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("%s transport down", s.ch)
	}
	s.reqs = append(s.reqs, req)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func frRule(couponID string, channels ...rule.Channel) *rule.Rule {
	id := couponID
	return &rule.Rule{
		ID:        "r-fr",
		Name:      "FR paid orders",
		Enabled:   true,
		Event:     event.TypeOrderPaid,
		Countries: []string{"FR"},
		Conditions: rule.ConditionGroup{
			Op:    rule.GroupAnd,
			Items: []rule.ConditionItem{{Kind: rule.CondOrderTotalGteEUR, Amount: 50}},
		},
		Actions: []rule.Action{
			{
				Type:     rule.ActionSendCoupon,
				Channels: channels,
				Payload: rule.ActionPayload{
					CouponID:        &id,
					TemplateSubject: "A gift for {customer}",
					TemplateMessage: "<p>Use code {coupon} on order {order_id} ({total} EUR)</p>",
				},
			},
		},
	}
}

func paidEvent() *event.Event {
	return &event.Event{
		ID:            "evt-1",
		Type:          event.TypeOrderPaid,
		Country:       "FR",
		Currency:      "EUR",
		OrderID:       "o-77",
		OrderTotalEUR: 75,
		CustomerID:    "alice",
	}
}

func TestDispatchSendCoupon(t *testing.T) {
	coupons := mapSource{"c1": {ID: "c1", Code: "BIENVENUE", Countries: coupon.CountryList{"FR", "DE"}}}
	email := &captureSender{ch: rule.ChannelEmail}
	reg := channel.NewRegistry()
	reg.Register(email)

	d := dispatch.New(coupons, reg, discardLogger())
	attempts := d.Dispatch(context.Background(), frRule("c1", rule.ChannelEmail), paidEvent())

	if len(attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(attempts))
	}
	a := attempts[0]
	if a.Status != dispatch.StatusDelivered {
		t.Fatalf("status = %s (%s), want delivered", a.Status, a.Reason)
	}
	if a.CouponCode != "BIENVENUE" {
		t.Errorf("coupon code = %q", a.CouponCode)
	}

	if len(email.reqs) != 1 {
		t.Fatalf("email requests = %d, want 1", len(email.reqs))
	}
	req := email.reqs[0]
	if req.Subject != "A gift for alice" {
		t.Errorf("subject = %q", req.Subject)
	}
	if want := "<p>Use code BIENVENUE on order o-77 (75.00 EUR)</p>"; req.Message != want {
		t.Errorf("message = %q, want %q", req.Message, want)
	}
}

func TestDispatchIncompatibleCouponSkipped(t *testing.T) {
	// c1 is DE-only; the rule is scoped to FR. The action must be reported
	// as skipped, not silently succeed or abort the rule.
	coupons := mapSource{"c1": {ID: "c1", Code: "NUR_DE", Countries: coupon.CountryList{"DE"}}}
	email := &captureSender{ch: rule.ChannelEmail}
	reg := channel.NewRegistry()
	reg.Register(email)

	d := dispatch.New(coupons, reg, discardLogger())
	attempts := d.Dispatch(context.Background(), frRule("c1", rule.ChannelEmail), paidEvent())

	if len(attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(attempts))
	}
	if attempts[0].Status != dispatch.StatusSkipped {
		t.Fatalf("status = %s, want skipped", attempts[0].Status)
	}
	if attempts[0].Reason == "" {
		t.Error("skipped attempt has no reason")
	}
	if len(email.reqs) != 0 {
		t.Errorf("skipped action still sent %d requests", len(email.reqs))
	}
}

func TestDispatchMissingCouponFallsBackToCode(t *testing.T) {
	email := &captureSender{ch: rule.ChannelEmail}
	reg := channel.NewRegistry()
	reg.Register(email)

	r := frRule("gone", rule.ChannelEmail)
	r.Actions[0].Payload.Code = "FALLBACK"

	d := dispatch.New(mapSource{}, reg, discardLogger())
	attempts := d.Dispatch(context.Background(), r, paidEvent())

	if attempts[0].Status != dispatch.StatusDelivered {
		t.Fatalf("status = %s (%s)", attempts[0].Status, attempts[0].Reason)
	}
	if attempts[0].CouponCode != "FALLBACK" {
		t.Errorf("coupon code = %q, want FALLBACK", attempts[0].CouponCode)
	}
}

func TestDispatchMissingCouponNoFallback(t *testing.T) {
	email := &captureSender{ch: rule.ChannelEmail}
	reg := channel.NewRegistry()
	reg.Register(email)

	d := dispatch.New(mapSource{}, reg, discardLogger())
	attempts := d.Dispatch(context.Background(), frRule("gone", rule.ChannelEmail), paidEvent())

	if attempts[0].Status != dispatch.StatusSkipped {
		t.Fatalf("status = %s, want skipped", attempts[0].Status)
	}
}

func TestDispatchChannelFailureIsolated(t *testing.T) {
	coupons := mapSource{"c1": {ID: "c1", Code: "X", Countries: coupon.CountryList{"FR"}}}
	email := &captureSender{ch: rule.ChannelEmail, fail: true}
	telegram := &captureSender{ch: rule.ChannelTelegram}
	reg := channel.NewRegistry()
	reg.Register(email)
	reg.Register(telegram)

	d := dispatch.New(coupons, reg, discardLogger())
	attempts := d.Dispatch(context.Background(), frRule("c1", rule.ChannelEmail, rule.ChannelTelegram), paidEvent())

	if len(attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts))
	}
	byChannel := map[rule.Channel]dispatch.Status{}
	for _, a := range attempts {
		byChannel[a.Channel] = a.Status
	}
	if byChannel[rule.ChannelEmail] != dispatch.StatusFailed {
		t.Errorf("email status = %s, want failed", byChannel[rule.ChannelEmail])
	}
	if byChannel[rule.ChannelTelegram] != dispatch.StatusDelivered {
		t.Errorf("telegram status = %s, want delivered", byChannel[rule.ChannelTelegram])
	}
	if len(telegram.reqs) != 1 {
		t.Errorf("telegram requests = %d, want 1", len(telegram.reqs))
	}
}

func TestDispatchRecommendation(t *testing.T) {
	inapp := &captureSender{ch: rule.ChannelInApp}
	reg := channel.NewRegistry()
	reg.Register(inapp)

	r := &rule.Rule{
		ID:      "r-reco",
		Name:    "recommend",
		Enabled: true,
		Event:   event.TypeOrderCompleted,
		Actions: []rule.Action{
			{
				Type:     rule.ActionRecommendation,
				Channels: []rule.Channel{rule.ChannelInApp},
				Payload: rule.ActionPayload{
					ProductIDs:   []string{"p5", "p6"},
					CollectionID: "summer",
				},
			},
		},
	}

	d := dispatch.New(mapSource{}, reg, discardLogger())
	attempts := d.Dispatch(context.Background(), r, paidEvent())

	if attempts[0].Status != dispatch.StatusDelivered {
		t.Fatalf("status = %s (%s)", attempts[0].Status, attempts[0].Reason)
	}
	req := inapp.reqs[0]
	if len(req.ProductIDs) != 2 || req.CollectionID != "summer" {
		t.Errorf("request payload = %+v", req)
	}
}

func TestRender(t *testing.T) {
	vars := map[string]string{"coupon": "X1", "customer": "bob"}
	cases := []struct {
		in, want string
	}{
		{"Hi {customer}, use {coupon}", "Hi bob, use X1"},
		{"no placeholders", "no placeholders"},
		{"unknown {token} stays", "unknown {token} stays"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := dispatch.Render(tc.in, vars); got != tc.want {
			t.Errorf("Render(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
