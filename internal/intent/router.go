package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/teemow/agendarouter/internal/logging"
)

// Approval warnings attached to results.
const (
	WarningInvolvesOthers = "This involves other people. Please be careful about rescheduling."
	WarningBulk           = "This affects multiple items. Please confirm before proceeding."
)

// Classifier turns a request into a routing decision.
type Classifier interface {
	// Name identifies the classifier in results, logs and metrics.
	Name() string
	Classify(ctx context.Context, req Request) (Decision, error)
}

// Outcome describes one finished classification.
type Outcome struct {
	Result   Result
	Err      error
	Duration time.Duration
	// FallbackBackend and FallbackReason are set when the heuristic answered
	// because the remote classifier failed.
	FallbackBackend string
	FallbackReason  string
}

// Observer receives classification outcomes. Implementations must be safe
// for concurrent use.
type Observer interface {
	ObserveClassification(ctx context.Context, o Outcome)
	ObserveBackendCall(ctx context.Context, backend string, duration time.Duration, err error)
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver sets the outcome observer.
func WithObserver(o Observer) Option {
	return func(r *Router) { r.observer = o }
}

// WithTracer sets the tracer used for classification spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Router) {
		if t != nil {
			r.tracer = t
		}
	}
}

// Router decides which provider handles a query. It holds no per-call state
// and is safe for concurrent use.
type Router struct {
	cfg       Config
	remote    Classifier
	heuristic *KeywordClassifier
	logger    *slog.Logger
	observer  Observer
	tracer    trace.Tracer
}

// NewRouter validates cfg and builds a router. A nil remote classifier means
// the keyword classifier answers every query.
func NewRouter(cfg Config, remote Classifier, opts ...Option) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid router config: %w", err)
	}
	cfg = cfg.clone()
	r := &Router{
		cfg:       cfg,
		remote:    remote,
		heuristic: NewKeywordClassifier(cfg),
		logger:    logging.Discard(),
		tracer:    noop.NewTracerProvider().Tracer(""),
	}
	if _, ok := remote.(*KeywordClassifier); ok {
		r.remote = nil
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns a copy of the router's configuration.
func (r *Router) Config() Config {
	return r.cfg.clone()
}

// Backend names the primary classifier.
func (r *Router) Backend() string {
	if r.remote == nil {
		return SourceHeuristic
	}
	return r.remote.Name()
}

// Classify routes one query. It returns an error wrapping ErrInvalidInput for
// an empty query or an incomplete context, and a *ClassificationError when no
// provider could be decided. A successful Result always names a configured
// provider and a non-empty intent type.
func (r *Router) Classify(ctx context.Context, query string, c Context) (Result, error) {
	return r.ClassifyRequest(ctx, Request{Query: query, Context: c})
}

// ClassifyRequest is Classify with an optional caller note.
func (r *Router) ClassifyRequest(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "intent.classify",
		trace.WithAttributes(attribute.String("intent.backend", r.Backend())))
	defer span.End()

	o := r.classify(ctx, req)
	o.Duration = time.Since(start)

	if o.Err != nil {
		span.RecordError(o.Err)
		span.SetStatus(codes.Error, o.Err.Error())
	} else {
		span.SetAttributes(
			attribute.String("intent.provider", o.Result.Provider),
			attribute.String("intent.type", o.Result.IntentType),
			attribute.String("intent.source", o.Result.Source),
			attribute.Bool("intent.fallback", o.Result.Fallback),
		)
		span.SetStatus(codes.Ok, "")
	}

	r.report(ctx, req, o)
	if o.Err != nil {
		return Result{}, o.Err
	}
	return o.Result, nil
}

func (r *Router) classify(ctx context.Context, req Request) Outcome {
	if strings.TrimSpace(req.Query) == "" {
		return Outcome{Err: &InvalidInputError{Field: "query", Reason: "query must not be empty"}}
	}
	if err := req.Context.Validate(); err != nil {
		return Outcome{Err: err}
	}

	if r.remote == nil {
		res, err := r.runHeuristic(ctx, req)
		return Outcome{Result: res, Err: err}
	}

	backend := r.remote.Name()
	d, err := r.callRemote(ctx, req)
	if err == nil {
		var res Result
		if res, err = r.finish(req, d, backend); err == nil {
			return Outcome{Result: res}
		}
	}

	if ctx.Err() != nil {
		return Outcome{Err: &ClassificationError{Backend: backend, Reason: ReasonTimeout, Err: fmt.Errorf("%w: %w", ErrBackendTimeout, ctx.Err())}}
	}

	reason := reasonFor(err)
	if r.cfg.Fallback != FallbackHeuristic {
		var ce *ClassificationError
		if errors.As(err, &ce) {
			return Outcome{Err: ce}
		}
		return Outcome{Err: &ClassificationError{Backend: backend, Reason: reason, Err: err}}
	}

	r.logger.WarnContext(ctx, "classification backend failed, using keyword fallback",
		logging.Backend(backend),
		logging.Reason(reason),
		logging.Err(err))

	res, herr := r.runHeuristic(ctx, req)
	if herr != nil {
		return Outcome{Err: &ClassificationError{
			Backend: SourceHeuristic,
			Reason:  ReasonUndecided,
			Err:     fmt.Errorf("%s failed (%w) and keyword fallback failed: %w", backend, err, herr),
		}}
	}
	res.Fallback = true
	res.Reasoning = fmt.Sprintf("%s (keyword fallback after %s %s)", res.Reasoning, backend, reason)
	return Outcome{Result: res, FallbackBackend: backend, FallbackReason: reason}
}

func (r *Router) runHeuristic(ctx context.Context, req Request) (Result, error) {
	d, err := r.heuristic.Classify(ctx, req)
	if err != nil {
		return Result{}, &ClassificationError{Backend: SourceHeuristic, Reason: reasonFor(err), Err: err}
	}
	return r.finish(req, d, SourceHeuristic)
}

// callRemote runs the remote classifier under the router timeout, retrying
// transient failures. Malformed answers are not retried.
func (r *Router) callRemote(ctx context.Context, req Request) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.RetryInitialInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Millisecond
	}

	attempts := 0
	d, err := backoff.Retry(ctx, func() (Decision, error) {
		attempts++
		d, err := r.attempt(ctx, req)
		if err != nil && (errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrInvalidInput)) {
			return Decision{}, backoff.Permanent(err)
		}
		return d, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.cfg.MaxRetries+1)),
		backoff.WithMaxElapsedTime(r.cfg.Timeout),
	)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ErrBackendTimeout) {
			err = fmt.Errorf("%w after %d attempt(s): %w", ErrBackendTimeout, attempts, err)
		}
		return Decision{}, err
	}
	return d, nil
}

type attemptResult struct {
	decision Decision
	err      error
}

// attempt calls the remote classifier once. The call runs in its own
// goroutine so the deadline holds even if the classifier ignores ctx.
func (r *Router) attempt(ctx context.Context, req Request) (Decision, error) {
	name := r.remote.Name()
	ctx, span := r.tracer.Start(ctx, "intent.backend."+name)
	defer span.End()

	start := time.Now()
	done := make(chan attemptResult, 1)
	go func() {
		d, err := r.remote.Classify(ctx, req)
		done <- attemptResult{decision: d, err: err}
	}()

	var res attemptResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = fmt.Errorf("%w: %w", ErrBackendTimeout, ctx.Err())
	}
	if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && !errors.Is(res.err, ErrBackendTimeout) {
		res.err = fmt.Errorf("%w: %w", ErrBackendTimeout, res.err)
	}

	if r.observer != nil {
		r.observer.ObserveBackendCall(ctx, name, time.Since(start), res.err)
	}
	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
		r.logger.DebugContext(ctx, "classification backend attempt failed",
			logging.Backend(name),
			logging.Err(res.err))
		return Decision{}, res.err
	}
	span.SetStatus(codes.Ok, "")
	return res.decision, nil
}

// finish checks a decision against the closed provider set and fills in
// what the classifier left out.
func (r *Router) finish(req Request, d Decision, source string) (Result, error) {
	provider := strings.TrimSpace(d.Provider)
	if !r.cfg.IsKnownProvider(provider) {
		return Result{}, &ClassificationError{
			Backend: source,
			Reason:  ReasonMalformed,
			Err:     MalformedError("unknown provider %q", d.Provider),
		}
	}

	domain := r.cfg.resolveDomain(provider, strings.ToLower(strings.TrimSpace(d.Domain)))

	intentType := strings.ToLower(strings.TrimSpace(d.IntentType))
	if intentType == "" {
		intentType = r.heuristic.DetectIntent(req.Query, domain)
	}

	reasoning := strings.TrimSpace(d.Reasoning)
	if reasoning == "" {
		reasoning = fmt.Sprintf("routed to %s as a %s request", provider, domain)
	}

	res := Result{
		Provider:       provider,
		IntentType:     intentType,
		Domain:         domain,
		Reasoning:      reasoning,
		Confidence:     clampConfidence(d.Confidence),
		InvolvesOthers: d.InvolvesOthers || mentionsParticipant(req.Query),
		Time:           d.Time,
		Source:         source,
	}
	if !res.Time.HasSpecificTime {
		res.Time.HasSpecificTime = hasSpecificTime(req.Query)
	}
	if res.Time.DurationMinutes == 0 {
		res.Time.DurationMinutes = durationMinutes(req.Query)
	}
	res.ApprovalRequired, res.Warning = r.approval(req.Query, res)
	return res, nil
}

// approval applies the confirmation policy: changes to events with other
// participants, and bulk changes in either domain.
func (r *Router) approval(query string, res Result) (bool, string) {
	if res.Domain == DomainCalendar && res.InvolvesOthers && res.IntentType != IntentQuery {
		return true, WarningInvolvesOthers
	}
	if r.heuristic.IsBulk(query) {
		switch res.IntentType {
		case IntentDelete, IntentUpdate, IntentComplete, IntentReschedule, IntentCancel:
			return true, WarningBulk
		}
	}
	return false, ""
}

func (r *Router) report(ctx context.Context, req Request, o Outcome) {
	if r.observer != nil {
		r.observer.ObserveClassification(ctx, o)
	}

	attrs := []slog.Attr{
		logging.QueryHash(req.Query),
		slog.Duration(logging.KeyDuration, o.Duration),
	}
	if o.Err != nil {
		var ce *ClassificationError
		level := slog.LevelInfo
		if errors.As(o.Err, &ce) {
			level = slog.LevelWarn
			attrs = append(attrs, logging.Backend(ce.Backend), logging.Reason(ce.Reason))
		}
		attrs = append(attrs, logging.Err(o.Err))
		r.logger.LogAttrs(ctx, level, "intent classification failed", attrs...)
		return
	}
	attrs = append(attrs,
		logging.Provider(o.Result.Provider),
		logging.Intent(o.Result.IntentType),
		logging.Source(o.Result.Source),
		slog.Bool(logging.KeyFallback, o.Result.Fallback),
		slog.Bool(logging.KeyApproval, o.Result.ApprovalRequired),
	)
	r.logger.LogAttrs(ctx, slog.LevelInfo, "intent classified", attrs...)
}
