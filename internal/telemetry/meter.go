package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the application's custom instruments.
type Metrics struct {
	RequestCounter  metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ConflictCounter metric.Int64Counter
	TasksGauge      metric.Int64ObservableGauge
	taskCountFunc   func() int64
}

// InitMeterProvider sets up the OTLP metric exporter and installs the
// global meter provider with a periodic reader.
func InitMeterProvider(ctx context.Context, serviceName, otlpEndpoint, environment string) (*sdkmetric.MeterProvider, error) {
	conn, err := dialCollector(otlpEndpoint)
	if err != nil {
		return nil, err
	}

	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	res, err := newResource(serviceName, environment)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(10*time.Second),
		)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}

// NewMetrics creates the request, conflict and task-count instruments.
// taskCountFunc is polled on every metric collection.
func NewMetrics(meter metric.Meter, taskCountFunc func() int64) (*Metrics, error) {
	m := &Metrics{
		taskCountFunc: taskCountFunc,
	}

	var err error

	m.RequestCounter, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}

	m.RequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create request duration histogram: %w", err)
	}

	m.ConflictCounter, err = meter.Int64Counter(
		"task_conflicts_total",
		metric.WithDescription("Total number of task creations rejected for time conflicts"),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create conflict counter: %w", err)
	}

	m.TasksGauge, err = meter.Int64ObservableGauge(
		"tasks_total",
		metric.WithDescription("Current number of tasks in the system"),
		metric.WithUnit("{task}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.taskCountFunc())
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create tasks gauge: %w", err)
	}

	return m, nil
}
