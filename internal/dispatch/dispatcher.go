// Package dispatch turns a matched rule into delivery attempts, one per
// (action, channel) pair, and hands each to its channel sender.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/storekit/promoflow/internal/channel"
	"github.com/storekit/promoflow/internal/coupon"
	"github.com/storekit/promoflow/internal/event"
	"github.com/storekit/promoflow/internal/rule"
)

// Status classifies the outcome of one delivery attempt.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Attempt records the outcome of one (rule, action, channel) delivery.
type Attempt struct {
	ID         string          `json:"id"`
	RuleID     string          `json:"rule_id"`
	ActionType rule.ActionType `json:"action_type"`
	Channel    rule.Channel    `json:"channel"`
	Status     Status          `json:"status"`
	Reason     string          `json:"reason,omitempty"`
	CouponCode string          `json:"coupon_code,omitempty"`
}

// Dispatcher executes a matched rule's actions.
type Dispatcher struct {
	coupons coupon.Source
	senders *channel.Registry
	log     *slog.Logger
}

// New creates a Dispatcher.
func New(coupons coupon.Source, senders *channel.Registry, log *slog.Logger) *Dispatcher {
	return &Dispatcher{coupons: coupons, senders: senders, log: log}
}

// Dispatch runs every action of r against ev and returns one attempt per
// (action, channel) pair. Coupon/country compatibility is re-checked here,
// not just at save time: rules and coupons are edited independently and a
// binding that was valid on save can have drifted. A failing channel or
// action never stops the remaining ones.
func (d *Dispatcher) Dispatch(ctx context.Context, r *rule.Rule, ev *event.Event) []*Attempt {
	attempts := make([]*Attempt, 0, len(r.Actions))
	for i := range r.Actions {
		attempts = append(attempts, d.runAction(ctx, r, &r.Actions[i], ev)...)
	}
	return attempts
}

func (d *Dispatcher) runAction(ctx context.Context, r *rule.Rule, a *rule.Action, ev *event.Event) []*Attempt {
	code, skipReason := d.resolveCoupon(r, a)
	if skipReason != "" {
		// Report one skipped attempt per channel so the outcome is visible,
		// never a silent success.
		out := make([]*Attempt, 0, len(a.Channels))
		for _, ch := range a.Channels {
			d.log.Warn("action skipped",
				"rule_id", r.ID, "action_type", a.Type, "channel", ch, "reason", skipReason)
			out = append(out, &Attempt{
				ID:         uuid.New().String(),
				RuleID:     r.ID,
				ActionType: a.Type,
				Channel:    ch,
				Status:     StatusSkipped,
				Reason:     skipReason,
			})
		}
		return out
	}

	vars := map[string]string{
		"coupon":   code,
		"customer": ev.CustomerID,
		"order_id": ev.OrderID,
		"total":    strconv.FormatFloat(ev.OrderTotalEUR, 'f', 2, 64),
	}
	subject := Render(a.Payload.TemplateSubject, vars)
	message := Render(a.Payload.TemplateMessage, vars)

	out := make([]*Attempt, 0, len(a.Channels))
	for _, ch := range a.Channels {
		att := &Attempt{
			ID:         uuid.New().String(),
			RuleID:     r.ID,
			ActionType: a.Type,
			Channel:    ch,
			CouponCode: code,
		}
		req := &channel.Request{
			ID:           att.ID,
			Channel:      ch,
			RuleID:       r.ID,
			RuleName:     r.Name,
			ActionType:   a.Type,
			EventID:      ev.ID,
			OrderID:      ev.OrderID,
			CustomerID:   ev.CustomerID,
			Subject:      subject,
			Message:      message,
			URL:          a.Payload.URL,
			CouponCode:   code,
			ProductIDs:   a.Payload.ProductIDs,
			CollectionID: a.Payload.CollectionID,
		}
		if err := d.send(ctx, ch, req); err != nil {
			att.Status = StatusFailed
			att.Reason = err.Error()
			d.log.Error("delivery failed",
				"rule_id", r.ID, "action_type", a.Type, "channel", ch, "err", err)
		} else {
			att.Status = StatusDelivered
		}
		out = append(out, att)
	}
	return out
}

func (d *Dispatcher) send(ctx context.Context, ch rule.Channel, req *channel.Request) error {
	sender, err := d.senders.Get(ch)
	if err != nil {
		return err
	}
	return sender.Send(ctx, req)
}

// resolveCoupon returns the coupon code for a send_coupon action, or a
// non-empty skip reason. Recommendation actions carry no coupon and always
// pass through.
func (d *Dispatcher) resolveCoupon(r *rule.Rule, a *rule.Action) (code, skipReason string) {
	if a.Type != rule.ActionSendCoupon {
		return "", ""
	}
	if a.Payload.CouponID != nil && *a.Payload.CouponID != "" {
		c, ok := d.coupons.Get(*a.Payload.CouponID)
		if !ok {
			if a.Payload.Code != "" {
				return a.Payload.Code, ""
			}
			return "", fmt.Sprintf("coupon %q not found", *a.Payload.CouponID)
		}
		if !coupon.Compatible(c, r.Countries) {
			return "", fmt.Sprintf("coupon %q not valid for rule countries %v", c.ID, r.Countries)
		}
		return c.Code, ""
	}
	if a.Payload.Code != "" {
		return a.Payload.Code, ""
	}
	return "", "no coupon bound"
}
