package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/verdict/internal/condition"
	"github.com/gyaneshwarpardhi/verdict/internal/config"
	"github.com/gyaneshwarpardhi/verdict/internal/engine"
	"github.com/gyaneshwarpardhi/verdict/internal/metrics"
	"github.com/gyaneshwarpardhi/verdict/internal/rule"
	"github.com/gyaneshwarpardhi/verdict/internal/service"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	rules    *service.Rules
	eng      *engine.Engine
	log      *slog.Logger
	conf     config.HTTPConf
	batchMax int
}

// New creates an HTTP handler and registers all routes.
func New(rules *service.Rules, eng *engine.Engine, logger *slog.Logger, conf config.HTTPConf, batchMax int) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{rules: rules, eng: eng, log: logger, conf: conf, batchMax: batchMax}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(h.observe)
	if conf.RateLimitPerMinute > 0 {
		r.Use(httprate.Limit(conf.RateLimitPerMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(h.rateLimited),
		))
	}
	r.Use(h.limitBody)

	r.Get("/healthz", h.healthz)
	r.Get("/health", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/rules", h.listRules)
		r.Post("/rules", h.createRule)
		r.Get("/rules/{id}", h.getRule)
		r.Put("/rules/{id}", h.updateRule)
		r.Delete("/rules/{id}", h.deleteRule)
		r.Post("/evaluate", h.evaluate)
		r.Post("/evaluate/batch", h.evaluateBatch)
		r.Post("/expressions/validate", h.validateExpression)
	})
	return r
}

// GET /api/v1/rules: every rule, with an ETag over the encoded list.
func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if rules == nil {
		rules = []*rule.Rule{}
	}
	body, err := json.Marshal(rules)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

func (h *Handler) getRule(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	found, err := h.rules.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) createRule(w http.ResponseWriter, r *http.Request) {
	var spec rule.Spec
	if !decode(w, r, &spec) {
		return
	}
	created, err := h.rules.Create(r.Context(), spec)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/rules/"+created.ID())
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	var spec rule.Spec
	if !decode(w, r, &spec) {
		return
	}
	updated, err := h.rules.Update(r.Context(), id, spec)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	if err := h.rules.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/evaluate
func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if !decode(w, r, &req) {
		return
	}
	if req.Payload == nil {
		req.Payload = condition.Payload{}
	}
	resp, err := h.eng.Evaluate(r.Context(), req.Payload, req.RuleIDs)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type batchResponse struct {
	BatchID string               `json:"batch_id"`
	Total   int                  `json:"total"`
	Failed  int                  `json:"failed"`
	Results []engine.BatchResult `json:"results"`
}

// POST /api/v1/evaluate/batch: independent evaluations on the worker pool.
func (h *Handler) evaluateBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []engine.Request
	if !decode(w, r, &reqs) {
		return
	}
	if len(reqs) == 0 {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "batch must contain at least one request")
		return
	}
	if len(reqs) > h.batchMax {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest,
			fmt.Sprintf("batch size %d exceeds max %d", len(reqs), h.batchMax))
		return
	}
	for i := range reqs {
		if reqs[i].Payload == nil {
			reqs[i].Payload = condition.Payload{}
		}
	}

	results := h.eng.EvaluateBatch(r.Context(), reqs)
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	writeJSON(w, http.StatusOK, batchResponse{
		BatchID: uuid.NewString(),
		Total:   len(results),
		Failed:  failed,
		Results: results,
	})
}

type validateRequest struct {
	Expression string `json:"expression"`
}

type validateResponse struct {
	Valid     bool     `json:"valid"`
	Fields    []string `json:"fields"`
	Canonical string   `json:"canonical"`
}

// POST /api/v1/expressions/validate
func (h *Handler) validateExpression(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decode(w, r, &req) {
		return
	}
	node, err := condition.Parse(req.Expression)
	if err != nil {
		metrics.SyntaxErrors.Inc()
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Valid:     true,
		Fields:    condition.Fields(node),
		Canonical: condition.Format(node),
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "verdict"})
}

// GET /readyz: 503 if the batch queue is more than 80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"queue_utilization": util,
	})
}

// ruleID extracts the {id} path parameter and rejects anything that is not
// a UUID.
func ruleID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeDomainError(w, r, &engine.InvalidRuleIDError{ID: id})
		return "", false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDomainError(w, r, err)
			return false
		}
		writeError(w, r, http.StatusBadRequest, CodeInvalidJSON, fmt.Sprintf("invalid JSON: %s", err))
		return false
	}
	return true
}
