package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/cloudbatch/logger"
)

// Operation outcomes recorded on batch.operations.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns defaults for a local collector.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes and installs the global meter provider.
// The caller shuts the provider down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// BatchMetrics holds the instruments recorded by the batch executor.
type BatchMetrics struct {
	executions    metric.Int64Counter
	stages        metric.Int64Counter
	operations    metric.Int64Counter
	stageDuration metric.Float64Histogram
}

// NewBatchMetrics creates the batch instruments on meter.
func NewBatchMetrics(meter metric.Meter) (*BatchMetrics, error) {
	executions, err := meter.Int64Counter("batch.executions",
		metric.WithDescription("Number of batch executions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating batch.executions counter: %w", err)
	}

	stages, err := meter.Int64Counter("batch.stages",
		metric.WithDescription("Number of stages run across all batches"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating batch.stages counter: %w", err)
	}

	operations, err := meter.Int64Counter("batch.operations",
		metric.WithDescription("Finished operations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating batch.operations counter: %w", err)
	}

	stageDuration, err := meter.Float64Histogram("batch.stage.duration",
		metric.WithDescription("Wall time of one stage drain and interpretation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating batch.stage.duration histogram: %w", err)
	}

	return &BatchMetrics{
		executions:    executions,
		stages:        stages,
		operations:    operations,
		stageDuration: stageDuration,
	}, nil
}

// RecordExecution counts one batch execution.
func (m *BatchMetrics) RecordExecution(ctx context.Context) {
	m.executions.Add(ctx, 1)
}

// RecordStage records one completed stage.
func (m *BatchMetrics) RecordStage(ctx context.Context, stage, handles int, duration time.Duration) {
	m.stages.Add(ctx, 1)
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		AttrStage.Int(stage),
		AttrStageHandles.Int(handles),
	))
}

// RecordOperation counts one finished operation by outcome.
func (m *BatchMetrics) RecordOperation(ctx context.Context, failed bool) {
	outcome := OutcomeSucceeded
	if failed {
		outcome = OutcomeFailed
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(outcome)))
}
