package negotiation

import (
	"context"
	"time"

	"github.com/indigo-web/negotiator/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentation = "github.com/indigo-web/negotiator/negotiation"

// OutcomeOK is the outcome of a negotiation which completed without failures. Failed
// ones are labelled by the kind of the error.
const OutcomeOK = "ok"

// Observer records a span and metrics for every negotiation. It's safe for concurrent
// use, so a single instance is shared by all the connections.
type Observer struct {
	tracer       trace.Tracer
	negotiations metric.Int64Counter
	bodySize     metric.Int64Histogram
	duration     metric.Float64Histogram
}

// NewObserver creates the instruments with the passed providers.
func NewObserver(mp metric.MeterProvider, tp trace.TracerProvider) (*Observer, error) {
	meter := mp.Meter(instrumentation)

	negotiations, err := meter.Int64Counter("negotiator.negotiations",
		metric.WithDescription("The number of negotiations by outcome"),
		metric.WithUnit("{negotiation}"))
	if err != nil {
		return nil, err
	}

	bodySize, err := meter.Int64Histogram("negotiator.request.body.size",
		metric.WithDescription("The size of framed request bodies"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("negotiator.duration",
		metric.WithDescription("The time spent from the first read until the close"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Observer{
		tracer:       tp.Tracer(instrumentation),
		negotiations: negotiations,
		bodySize:     bodySize,
		duration:     duration,
	}, nil
}

// GlobalObserver uses the globally registered providers.
func GlobalObserver() (*Observer, error) {
	return NewObserver(otel.GetMeterProvider(), otel.GetTracerProvider())
}

// NoopObserver records nothing.
func NoopObserver() *Observer {
	observer, err := NewObserver(metricnoop.NewMeterProvider(), tracenoop.NewTracerProvider())
	if err != nil {
		// noop instruments are never failing
		panic(err)
	}

	return observer
}

func (o *Observer) start(ctx context.Context, id string) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, "negotiation",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("negotiation.id", id)),
	)
}

type report struct {
	method, path   string
	bodySize       int64
	framed         bool
	failedIn       State
	took           time.Duration
	err            error
}

func (o *Observer) finish(ctx context.Context, span trace.Span, r report) {
	outcome := outcomeOf(r.err)
	attrs := []attribute.KeyValue{
		attribute.String("negotiation.outcome", outcome),
	}

	if len(r.method) > 0 {
		span.SetAttributes(
			attribute.String("http.request.method", r.method),
			attribute.String("url.path", r.path),
		)
	}

	if r.framed {
		span.SetAttributes(attribute.Int64("http.request.body.size", r.bodySize))
		o.bodySize.Record(ctx, r.bodySize)
	}

	if r.err != nil {
		span.SetAttributes(attribute.String("negotiation.failed_in", r.failedIn.String()))
		span.RecordError(r.err)
		span.SetStatus(codes.Error, r.err.Error())
	}

	span.SetAttributes(attrs...)
	o.negotiations.Add(ctx, 1, metric.WithAttributes(attrs...))
	o.duration.Record(ctx, float64(r.took)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	span.End()
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}

	return errors.KindOf(err).String()
}
