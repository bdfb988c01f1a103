package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/diogo/detectchat/internal/chat"
	apierrors "github.com/diogo/detectchat/internal/errors"
	"github.com/diogo/detectchat/internal/models"
)

// Detector wraps another detector with a span and two instruments per call
type Detector struct {
	next     chat.Detector
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// Instrument wraps next so every Detect call is traced and measured
func Instrument(next chat.Detector, tracer trace.Tracer, meter metric.Meter) (*Detector, error) {
	requests, err := meter.Int64Counter(
		"detectchat.detect.requests",
		metric.WithDescription("Detect calls by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"detectchat.detect.duration",
		metric.WithDescription("Detect call duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &Detector{
		next:     next,
		tracer:   tracer,
		requests: requests,
		duration: duration,
	}, nil
}

// Detect implements chat.Detector
func (d *Detector) Detect(ctx context.Context, prompt string) (*models.DetectResult, error) {
	ctx, span := d.tracer.Start(ctx, "detect",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("prompt.length", len(prompt))),
	)
	defer span.End()

	start := time.Now()
	result, err := d.next.Detect(ctx, prompt)
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	outcome := Outcome(result, err)
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	d.requests.Add(ctx, 1, attrs)
	d.duration.Record(ctx, elapsed, attrs)

	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		if status := apierrors.GetHTTPStatus(err); status != 0 {
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}

	if result != nil {
		span.SetAttributes(
			attribute.Bool("sensitive", result.HasSensitiveData()),
			attribute.Int("sensitive.count", len(result.Sensitive)),
		)
		if result.Anomaly != "" {
			span.SetAttributes(attribute.String("anomaly", result.Anomaly))
		}
	}
	return result, nil
}

// Outcome classifies a detect call for metrics
func Outcome(result *models.DetectResult, err error) string {
	switch {
	case err == nil && result != nil:
		return result.Kind.String()
	case err == nil:
		return "empty"
	case apierrors.IsTimeoutError(err):
		return "timeout"
	case apierrors.IsAPIError(err):
		return "api_error"
	case apierrors.IsNetworkError(err):
		return "network_error"
	case apierrors.IsParseError(err):
		return "parse_error"
	default:
		return "error"
	}
}
