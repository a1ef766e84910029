package rule

import (
	"encoding/json"
	"fmt"
)

// ActionType discriminates the action union.
type ActionType string

const (
	ActionSendCoupon     ActionType = "send_coupon"
	ActionRecommendation ActionType = "product_recommendation"
)

// Channel is a delivery medium for an action.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
	ChannelInApp    Channel = "in_app"
	ChannelWebhook  Channel = "webhook"
)

var knownChannels = map[Channel]struct{}{
	ChannelEmail:    {},
	ChannelTelegram: {},
	ChannelInApp:    {},
	ChannelWebhook:  {},
}

// Valid reports whether ch is a known delivery channel.
func (ch Channel) Valid() bool {
	_, ok := knownChannels[ch]
	return ok
}

// Action is a unit of work fired when a rule matches, delivered over one or
// more channels.
type Action struct {
	Type     ActionType    `json:"type"`
	Channels []Channel     `json:"channels"`
	Payload  ActionPayload `json:"payload"`
}

// ActionPayload carries the per-type parameters. CouponID/Code apply to
// send_coupon; ProductIDs/CollectionID apply to product_recommendation; the
// template fields and URL are shared.
type ActionPayload struct {
	CouponID *string `json:"couponId,omitempty"` // nullable coupon binding
	Code     string  `json:"code,omitempty"`     // fallback literal code

	ProductIDs   []string `json:"productIds,omitempty"`
	CollectionID string   `json:"collectionId,omitempty"`

	TemplateSubject string `json:"templateSubject,omitempty"`
	TemplateMessage string `json:"templateMessage,omitempty"` // HTML body
	URL             string `json:"url,omitempty"`
}

// UnmarshalJSON rejects unknown action types and channels at the decode
// boundary rather than carrying them into evaluation.
func (a *Action) UnmarshalJSON(data []byte) error {
	type alias Action
	var aa alias
	if err := json.Unmarshal(data, &aa); err != nil {
		return err
	}
	switch aa.Type {
	case ActionSendCoupon, ActionRecommendation:
	default:
		return fmt.Errorf("action: unknown type %q", aa.Type)
	}
	for _, ch := range aa.Channels {
		if !ch.Valid() {
			return fmt.Errorf("action: unknown channel %q", ch)
		}
	}
	*a = Action(aa)
	return nil
}
