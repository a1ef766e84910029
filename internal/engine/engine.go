// Package engine drives event processing: for each incoming event it snapshots
// the enabled rules bound to the event's type, evaluates them, and dispatches
// every match.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/storekit/promoflow/internal/config"
	"github.com/storekit/promoflow/internal/dispatch"
	"github.com/storekit/promoflow/internal/evaluate"
	"github.com/storekit/promoflow/internal/event"
	"github.com/storekit/promoflow/internal/metrics"
	"github.com/storekit/promoflow/internal/rule"
	"github.com/storekit/promoflow/internal/store"
)

// EventResult is the outcome of processing a single event.
type EventResult struct {
	EventID      string              `json:"event_id"`
	DurationMs   int64               `json:"duration_ms"`
	RulesMatched []string            `json:"rules_matched"`
	Attempts     []*dispatch.Attempt `json:"attempts"`
	Error        string              `json:"error,omitempty"`
}

// Engine processes events against the rule store.
type Engine struct {
	rules      store.Store
	dispatcher *dispatch.Dispatcher
	pool       *workerPool[*eventWork]
	conf       *config.EngineConf
	log        *slog.Logger
	now        func() time.Time
}

type eventWork struct {
	ev      *event.Event
	resultC chan *EventResult
}

// New creates an Engine using conf and starts its worker pool.
func New(ctx context.Context, rules store.Store, d *dispatch.Dispatcher, conf config.EngineConf, log *slog.Logger) *Engine {
	e := &Engine{
		rules:      rules,
		dispatcher: d,
		conf:       &conf,
		log:        log,
		now:        time.Now,
	}
	e.pool = newWorkerPool(ctx, conf.EventWorkers, conf.QueueDepth, func(ctx context.Context, w *eventWork) {
		res := e.processEvent(ctx, w.ev)
		if w.resultC != nil {
			w.resultC <- res
		}
	})
	return e
}

// ProcessSync processes an event synchronously and returns the result.
func (e *Engine) ProcessSync(ctx context.Context, ev *event.Event) (*EventResult, error) {
	resultC := make(chan *EventResult, 1)
	w := &eventWork{ev: ev, resultC: resultC}

	timeout := time.Duration(e.conf.EventTimeoutMs) * time.Millisecond
	if !e.pool.Submit(w) {
		metrics.EventsDropped.Inc()
		return nil, fmt.Errorf("event queue full (capacity %d)", e.conf.QueueDepth)
	}
	metrics.EventsEnqueued.Inc()

	select {
	case res := <-resultC:
		return res, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("event processing timeout after %v", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProcessAsync enqueues an event for background processing. Returns false if the queue is full.
func (e *Engine) ProcessAsync(ev *event.Event) bool {
	w := &eventWork{ev: ev}
	if !e.pool.Submit(w) {
		metrics.EventsDropped.Inc()
		return false
	}
	metrics.EventsEnqueued.Inc()
	return true
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

func (e *Engine) processEvent(ctx context.Context, ev *event.Event) *EventResult {
	start := time.Now()
	result := &EventResult{
		EventID:      ev.ID,
		RulesMatched: []string{},
		Attempts:     []*dispatch.Attempt{},
	}

	// ListByEvent returns enabled rules in ascending priority order; priority
	// sequences delivery, it is not a cutoff — every matching rule fires.
	rules, err := e.rules.ListByEvent(ctx, ev.Type)
	if err != nil {
		result.Error = err.Error()
		e.log.Error("rule snapshot failed", "event_id", ev.ID, "event_type", ev.Type, "err", err)
		return result
	}

	now := e.now()
	for i := range rules {
		r := &rules[i]
		ok, err := evaluate.Rule(r, ev, now)
		if err != nil {
			// A malformed rule is skipped and surfaced, never silently dropped.
			metrics.RuleEvalErrors.WithLabelValues(r.ID).Inc()
			e.log.Error("rule evaluation failed", "rule_id", r.ID, "event_id", ev.ID, "err", err)
			continue
		}
		if !ok {
			continue
		}
		result.RulesMatched = append(result.RulesMatched, r.ID)
		metrics.RulesMatched.WithLabelValues(r.ID).Inc()

		attempts := e.dispatcher.Dispatch(ctx, r, ev)
		for _, a := range attempts {
			metrics.DeliveryAttempts.WithLabelValues(string(a.Channel), string(a.Status)).Inc()
		}
		result.Attempts = append(result.Attempts, attempts...)
	}

	result.DurationMs = time.Since(start).Milliseconds()
	metrics.EventsProcessed.Inc()
	return result
}

// TriggerRule evaluates and dispatches a single rule against the given
// context, bypassing the rule snapshot. Used by the manual-trigger endpoint;
// scope and condition checks still apply.
func (e *Engine) TriggerRule(ctx context.Context, r *rule.Rule, ev *event.Event) *EventResult {
	start := time.Now()
	result := &EventResult{
		EventID:      ev.ID,
		RulesMatched: []string{},
		Attempts:     []*dispatch.Attempt{},
	}

	ok, err := evaluate.Rule(r, ev, e.now())
	if err != nil {
		metrics.RuleEvalErrors.WithLabelValues(r.ID).Inc()
		result.Error = err.Error()
	} else if ok {
		result.RulesMatched = append(result.RulesMatched, r.ID)
		metrics.RulesMatched.WithLabelValues(r.ID).Inc()
		result.Attempts = e.dispatcher.Dispatch(ctx, r, ev)
		for _, a := range result.Attempts {
			metrics.DeliveryAttempts.WithLabelValues(string(a.Channel), string(a.Status)).Inc()
		}
	}

	result.DurationMs = time.Since(start).Milliseconds()
	return result
}

// Shutdown drains the worker pool gracefully.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}
