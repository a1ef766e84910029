package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storekit/promoflow/internal/coupon"
	"github.com/storekit/promoflow/internal/engine"
	"github.com/storekit/promoflow/internal/event"
	"github.com/storekit/promoflow/internal/metrics"
	"github.com/storekit/promoflow/internal/rule"
	"github.com/storekit/promoflow/internal/store"
)

const maxBatchSize = 100

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng     *engine.Engine
	rules   store.Store
	coupons *coupon.Catalog
	mux     *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, rules store.Store, coupons *coupon.Catalog) http.Handler {
	h := &Handler{eng: eng, rules: rules, coupons: coupons, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/events", h.ingestEvent)
	h.mux.HandleFunc("POST /v1/events/batch", h.ingestBatch)

	h.mux.HandleFunc("GET /v1/rules", h.listRules)
	h.mux.HandleFunc("POST /v1/rules", h.createRule)
	h.mux.HandleFunc("GET /v1/rules/{id}", h.getRule)
	h.mux.HandleFunc("PATCH /v1/rules/{id}", h.patchRule)
	h.mux.HandleFunc("DELETE /v1/rules/{id}", h.deleteRule)
	h.mux.HandleFunc("POST /v1/rules/{id}/trigger", h.triggerRule)

	h.mux.HandleFunc("GET /v1/coupons", h.listCoupons)

	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// POST /v1/events — synchronous single-event ingestion.
func (h *Handler) ingestEvent(w http.ResponseWriter, r *http.Request) {
	var ev event.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if !ev.Type.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown event type %q", ev.Type))
		return
	}
	ev.ReceivedAt = time.Now()

	res, err := h.eng.ProcessSync(r.Context(), &ev)
	if err != nil {
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	}
	metrics.EventProcessingDuration.Observe(float64(res.DurationMs))
	writeJSON(w, http.StatusOK, res)
}

// POST /v1/events/batch — async batch ingestion (up to 100 events).
func (h *Handler) ingestBatch(w http.ResponseWriter, r *http.Request) {
	var events []*event.Event
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if len(events) == 0 {
		writeError(w, http.StatusBadRequest, "batch must contain at least one event")
		return
	}
	if len(events) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(events), maxBatchSize))
		return
	}

	now := time.Now()
	jobID := uuid.New().String()
	queued := 0
	for _, ev := range events {
		if !ev.Type.Valid() {
			continue
		}
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		ev.ReceivedAt = now
		if h.eng.ProcessAsync(ev) {
			queued++
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":   jobID,
		"total":    len(events),
		"queued":   queued,
		"rejected": len(events) - queued,
	})
}

// GET /v1/rules — list all rules ordered by priority.
func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

// POST /v1/rules — create a rule. Each create is an independent transaction;
// clients fan out multiple creates concurrently and a failing one must not
// affect the others.
func (h *Handler) createRule(w http.ResponseWriter, r *http.Request) {
	var doc rule.Rule
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	doc.ID = "" // server-assigned
	if err := h.rules.Create(r.Context(), &doc); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// GET /v1/rules/{id}
func (h *Handler) getRule(w http.ResponseWriter, r *http.Request) {
	doc, err := h.rules.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// PATCH /v1/rules/{id} — partial update; absent fields are left untouched.
func (h *Handler) patchRule(w http.ResponseWriter, r *http.Request) {
	var p rule.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	doc, err := h.rules.Update(r.Context(), r.PathValue("id"), p)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DELETE /v1/rules/{id}
func (h *Handler) deleteRule(w http.ResponseWriter, r *http.Request) {
	err := h.rules.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /v1/rules/{id}/trigger — manually fire one rule against a caller-
// supplied context. The event type is forced to the rule's own binding so
// scope and condition checks still run; a disabled rule never fires.
func (h *Handler) triggerRule(w http.ResponseWriter, r *http.Request) {
	doc, err := h.rules.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !doc.Enabled {
		writeError(w, http.StatusConflict, fmt.Sprintf("rule %s is disabled", doc.ID))
		return
	}

	var ev event.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	ev.Type = doc.Event
	ev.ReceivedAt = time.Now()

	writeJSON(w, http.StatusOK, h.eng.TriggerRule(r.Context(), &doc, &ev))
}

// GET /v1/coupons — list the active coupon catalog.
func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"coupons": h.coupons.List()})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if event queue >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}
