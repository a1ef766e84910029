package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/storekit/promoflow/internal/rule"
)

// WebhookSender POSTs delivery requests to a configured endpoint. Outbound
// calls are rate-limited so a burst of matching events cannot hammer the
// receiver.
type WebhookSender struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhook creates a webhook sender. ratePerSec <= 0 disables limiting.
func NewWebhook(url string, timeout time.Duration, ratePerSec float64, burst int) *WebhookSender {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSec > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return &WebhookSender{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

func (s *WebhookSender) Channel() rule.Channel { return rule.ChannelWebhook }

func (s *WebhookSender) Send(ctx context.Context, req *Request) error {
	if s.url == "" {
		return fmt.Errorf("webhook: no endpoint configured")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("webhook: rate limit wait: %w", err)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("webhook: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("webhook: post %s: %w", s.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: post %s: status %d", s.url, resp.StatusCode)
	}
	return nil
}
