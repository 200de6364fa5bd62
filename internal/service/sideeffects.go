package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"gateway/internal/model"
)

// Side-effect kinds, used as metric labels and journal values.
const (
	KindOtpEmail          = "otp_email"
	KindOtpSMS            = "otp_sms"
	KindEncryptedDocument = "encrypted_document_email"
	KindPersistDocument   = "persist_document"
	KindDeleteDocument    = "delete_document"
)

var tracer = otel.Tracer("gateway/internal/service")

const journalTimeout = 5 * time.Second

// SideEffectResult is the outcome of one side-channel action. It is only ever
// logged, counted, and journaled; it never reaches the caller.
type SideEffectResult struct {
	Kind     string
	Target   string
	Success  bool
	Err      error
	Duration time.Duration
}

// sideEffect is a pending action. target is the raw destination; it is masked
// before leaving the process.
type sideEffect struct {
	kind   string
	target string
	run    func(ctx context.Context) error
}

// runSideEffects executes effects concurrently and waits for all of them.
// The context is detached from the inbound request and bounded by the side-effect
// timeout, so a client disconnect does not abort a half-sent notification.
func (g *gatewayService) runSideEffects(ctx context.Context, route, requestID string, effects []sideEffect) []SideEffectResult {
	if len(effects) == 0 {
		return nil
	}

	detached := context.WithoutCancel(ctx)
	runCtx, cancel := context.WithTimeout(detached, g.timeout)
	defer cancel()

	results := make([]SideEffectResult, len(effects))
	var grp errgroup.Group
	for i, e := range effects {
		i, e := i, e
		grp.Go(func() error {
			results[i] = g.execute(runCtx, route, e)
			return nil
		})
	}
	_ = grp.Wait()

	journalCtx, cancelJournal := context.WithTimeout(detached, journalTimeout)
	defer cancelJournal()
	for _, r := range results {
		g.record(journalCtx, route, requestID, r)
	}
	return results
}

// execute runs one effect, turning a panic into a failed result.
func (g *gatewayService) execute(ctx context.Context, route string, e sideEffect) (res SideEffectResult) {
	ctx, span := tracer.Start(ctx, "side_effect."+e.kind,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gateway.route", route),
			attribute.String("gateway.side_effect.kind", e.kind),
		),
	)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic: %v", p)
			res.Success = false
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.End()
	}()

	res = SideEffectResult{Kind: e.kind, Target: e.target}
	res.Err = e.run(ctx)
	res.Success = res.Err == nil
	return res
}

func (g *gatewayService) record(ctx context.Context, route, requestID string, r SideEffectResult) {
	target := model.MaskTarget(r.Target)

	ev := g.log.Info()
	if !r.Success {
		ev = g.log.Warn().Err(r.Err)
	}
	ev.Str("event", "side_effect").
		Str("request_id", requestID).
		Str("route", route).
		Str("kind", r.Kind).
		Str("target", target).
		Bool("success", r.Success).
		Int64("duration_ms", r.Duration.Milliseconds()).
		Send()

	g.metrics.observeSideEffect(route, r)

	if g.journal == nil {
		return
	}
	entry := &model.SideEffect{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		Route:      route,
		Kind:       r.Kind,
		Target:     target,
		Success:    r.Success,
		DurationMs: r.Duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if r.Err != nil {
		entry.Error = r.Err.Error()
	}
	if err := g.journal.Record(ctx, entry); err != nil {
		g.log.Error().Err(err).Str("event", "side_effect_journal_failed").Str("request_id", requestID).Send()
	}
}
