package channel

import (
	"context"
	"log/slog"

	"github.com/storekit/promoflow/internal/rule"
)

// OutboundSender covers the channels whose transports live outside this
// process (email relay, Telegram bot, in-app notification store). It emits
// the finished request as a structured log record that the transport side
// tails; the engine's responsibility ends at producing the request.
type OutboundSender struct {
	channel rule.Channel
	log     *slog.Logger
}

// NewEmail returns the email sender.
func NewEmail(log *slog.Logger) *OutboundSender {
	return &OutboundSender{channel: rule.ChannelEmail, log: log}
}

// NewTelegram returns the telegram sender.
func NewTelegram(log *slog.Logger) *OutboundSender {
	return &OutboundSender{channel: rule.ChannelTelegram, log: log}
}

// NewInApp returns the in-app notification sender.
func NewInApp(log *slog.Logger) *OutboundSender {
	return &OutboundSender{channel: rule.ChannelInApp, log: log}
}

func (s *OutboundSender) Channel() rule.Channel { return s.channel }

func (s *OutboundSender) Send(ctx context.Context, req *Request) error {
	s.log.LogAttrs(ctx, slog.LevelInfo, "delivery request",
		slog.String("channel", string(s.channel)),
		slog.String("request_id", req.ID),
		slog.String("rule_id", req.RuleID),
		slog.String("action_type", string(req.ActionType)),
		slog.String("event_id", req.EventID),
		slog.String("customer_id", req.CustomerID),
		slog.String("subject", req.Subject),
		slog.String("coupon_code", req.CouponCode),
	)
	return nil
}
