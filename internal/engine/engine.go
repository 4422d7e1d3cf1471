package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/verdict/internal/condition"
	"github.com/gyaneshwarpardhi/verdict/internal/config"
	"github.com/gyaneshwarpardhi/verdict/internal/metrics"
	"github.com/gyaneshwarpardhi/verdict/internal/reason"
	"github.com/gyaneshwarpardhi/verdict/internal/rule"
	"github.com/gyaneshwarpardhi/verdict/internal/store"
)

var (
	ErrNoRules       = errors.New("At least one rule_id must be provided")
	ErrInvalidRuleID = errors.New("invalid rule id")
	ErrQueueFull     = errors.New("evaluation queue full")
	ErrTimeout       = errors.New("evaluation timed out")
	ErrShutdown      = errors.New("engine is shut down")
)

// InvalidRuleIDError reports a rule id that is not a UUID.
type InvalidRuleIDError struct {
	ID string
}

func (e *InvalidRuleIDError) Error() string { return fmt.Sprintf("Invalid UUID format: %s", e.ID) }

func (e *InvalidRuleIDError) Is(target error) bool { return target == ErrInvalidRuleID }

const (
	formExpression = "expression"
	formPredicates = "predicates"
)

// Engine evaluates payloads against stored rules.
type Engine struct {
	store store.Store
	log   *slog.Logger
	pool  *workerPool[Request, *Response]
	conf  config.EngineConf

	mu     sync.RWMutex
	closed bool
}

// New creates an Engine using conf and starts the batch worker pool.
func New(ctx context.Context, s store.Store, logger *slog.Logger, conf config.EngineConf) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{store: s, log: logger, conf: conf}
	e.pool = newWorkerPool[Request, *Response](
		ctx,
		conf.Workers,
		conf.QueueDepth,
		func(ctx context.Context, req Request) (*Response, error) {
			return e.Evaluate(ctx, req.Payload, req.RuleIDs)
		},
	)
	return e
}

// Evaluate checks payload against every rule in ruleIDs. All ids are
// validated and resolved before any rule is evaluated.
func (e *Engine) Evaluate(ctx context.Context, payload condition.Payload, ruleIDs []string) (*Response, error) {
	if len(ruleIDs) == 0 {
		return nil, ErrNoRules
	}
	for _, id := range ruleIDs {
		if _, err := uuid.Parse(id); err != nil {
			return nil, &InvalidRuleIDError{ID: id}
		}
	}
	rules := make([]*rule.Rule, 0, len(ruleIDs))
	for _, id := range ruleIDs {
		r, err := e.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	start := time.Now()
	resp := &Response{
		Result:  Pass,
		Reasons: make([]string, 0, len(rules)),
		Details: make([]Result, 0, len(rules)),
	}
	for _, r := range rules {
		res := e.EvaluateRule(r, payload)
		if !res.Passed() {
			resp.Result = Fail
		}
		resp.Reasons = append(resp.Reasons, fmt.Sprintf("%s: %s", r.Name(), res.Reason))
		resp.Details = append(resp.Details, res)
	}

	metrics.EvaluationDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	metrics.EvaluationsTotal.WithLabelValues(string(resp.Result)).Inc()
	return resp, nil
}

// EvaluateRule produces the verdict of a single rule. It never fails:
// problems with the payload become FAIL results with explanations.
func (e *Engine) EvaluateRule(r *rule.Rule, payload condition.Payload) Result {
	var res Result
	form := formPredicates
	if r.IsExpression() {
		form = formExpression
		res = e.evaluateExpression(r, payload)
	} else {
		res = e.evaluatePredicates(r, payload)
	}
	metrics.RuleVerdicts.WithLabelValues(form, string(res.Result)).Inc()
	return res
}

func (e *Engine) evaluateExpression(r *rule.Rule, payload condition.Payload) Result {
	node := r.AST()

	var missing []string
	for _, f := range condition.Fields(node) {
		if _, ok := payload[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		metrics.ComparisonErrors.WithLabelValues("missing_field").Add(float64(len(missing)))
		msg := "Missing required fields: " + strings.Join(missing, ", ")
		return Result{
			RuleID:           r.ID(),
			RuleName:         r.Name(),
			Result:           Fail,
			Reason:           msg,
			PredicateResults: []PredicateResult{{Error: msg}},
		}
	}

	ev := condition.Evaluator{Sink: e.sink(r)}
	ok, trace, err := ev.Detailed(node, payload)
	if err != nil {
		e.log.Error("expression evaluation aborted", "rule_id", r.ID(), "error", err)
		return Result{
			RuleID:           r.ID(),
			RuleName:         r.Name(),
			Result:           Fail,
			Reason:           err.Error(),
			PredicateResults: []PredicateResult{{Expression: r.Expression(), Error: err.Error()}},
		}
	}
	return e.summarize(r, ok, trace)
}

func (e *Engine) evaluatePredicates(r *rule.Rule, payload condition.Payload) Result {
	ok, trace := condition.EvaluatePredicates(r.Predicates(), r.LogicalOperator(), payload)
	if sink := e.sink(r); sink != nil {
		for _, c := range trace {
			sink(c)
		}
	}
	return e.summarize(r, ok, trace)
}

func (e *Engine) summarize(r *rule.Rule, ok bool, trace condition.Trace) Result {
	results := make([]PredicateResult, 0, len(trace))
	var failures []string
	for _, c := range trace {
		why := reason.For(c)
		pr := PredicateResult{
			Field:    c.Field,
			Operator: string(c.Operator),
			Expected: c.Expected,
			Actual:   c.Actual,
			Passed:   c.Passed,
			Reason:   why,
		}
		if c.Err != nil {
			pr.Error = c.Err.Error()
			metrics.ComparisonErrors.WithLabelValues(errorKind(c.Err)).Inc()
		}
		results = append(results, pr)
		if !c.Passed {
			failures = append(failures, why)
		}
	}
	return Result{
		RuleID:           r.ID(),
		RuleName:         r.Name(),
		Result:           verdictOf(ok),
		Reason:           reason.Summary(r.Name(), ok, failures),
		PredicateResults: results,
	}
}

// sink streams every check to the debug log. It is nil when debug logging
// is off.
func (e *Engine) sink(r *rule.Rule) func(condition.Check) {
	if !e.log.Enabled(context.Background(), slog.LevelDebug) {
		return nil
	}
	return func(c condition.Check) {
		attrs := []any{
			"rule_id", r.ID(),
			"field", c.Field,
			"operator", string(c.Operator),
			"passed", c.Passed,
		}
		if c.Err != nil {
			attrs = append(attrs, "error", c.Err.Error())
		}
		e.log.Debug("comparison evaluated", attrs...)
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, condition.ErrMissingField):
		return "missing_field"
	case errors.Is(err, condition.ErrTypeMismatch):
		return "type_mismatch"
	default:
		return "other"
	}
}

// EvaluateBatch evaluates independent requests on the worker pool. Items
// that cannot be queued fail with ErrQueueFull; the rest are waited for up
// to the configured timeout.
func (e *Engine) EvaluateBatch(ctx context.Context, reqs []Request) []BatchResult {
	results := make([]BatchResult, len(reqs))
	pending := make([]<-chan outcome[*Response], len(reqs))

	e.mu.RLock()
	closed := e.closed
	for i, req := range reqs {
		results[i].Index = i
		if closed {
			results[i].Err = ErrShutdown
			continue
		}
		ch, ok := e.pool.Submit(ctx, req)
		if !ok {
			metrics.BatchRejected.Inc()
			results[i].Err = fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.pool.QueueCap())
			continue
		}
		pending[i] = ch
	}
	e.mu.RUnlock()
	metrics.QueueUtilization.Set(e.QueueUtilization())

	timer := time.NewTimer(e.timeout())
	defer timer.Stop()
	for i, ch := range pending {
		if ch == nil {
			continue
		}
		select {
		case out := <-ch:
			results[i].Response, results[i].Err = out.value, out.err
		case <-timer.C:
			results[i].Err = ErrTimeout
			// The timer has fired; every later item still pending has timed out too.
			for j := i + 1; j < len(pending); j++ {
				if pending[j] == nil {
					continue
				}
				select {
				case out := <-pending[j]:
					results[j].Response, results[j].Err = out.value, out.err
				default:
					results[j].Err = ErrTimeout
				}
			}
			return finishBatch(results)
		case <-ctx.Done():
			results[i].Err = ctx.Err()
		}
	}
	return finishBatch(results)
}

func finishBatch(results []BatchResult) []BatchResult {
	for i := range results {
		if results[i].Err != nil {
			results[i].Error = results[i].Err.Error()
			results[i].Response = nil
		}
	}
	return results
}

func (e *Engine) timeout() time.Duration {
	if e.conf.EvalTimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(e.conf.EvalTimeoutMs) * time.Millisecond
}

// QueueUtilization returns queue used / capacity (0-1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// Shutdown stops accepting batch work and drains the pool.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.pool.Drain()
}
