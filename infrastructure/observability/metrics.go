package observability

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"spinningrats/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages the OpenTelemetry instruments of the service.
// All Record methods are safe on a nil or disabled provider.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	loginsCounter          metric.Int64Counter
	sessionsEndedCounter   metric.Int64Counter
	viewersGauge           metric.Int64Gauge
	scoreSubmissions       metric.Int64Counter
	notificationsCounter   metric.Int64Counter
	natsPublishedCounter   metric.Int64Counter
	storeOperationsCounter metric.Int64Counter
	storeDurationHist      metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the exporter and instruments
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Println("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Println("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.Printf("Using OTLP metric exporter: %s", mp.config.OTelOTLPEndpoint)

	case "none":
		log.Println("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("spinningrats")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Println("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.loginsCounter, err = mp.meter.Int64Counter(
		LoginsTotal,
		metric.WithDescription("Total number of completed Discord logins"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create logins counter: %w", err)
	}

	mp.sessionsEndedCounter, err = mp.meter.Int64Counter(
		SessionsEnded,
		metric.WithDescription("Total number of sessions ended by logout or disconnect"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sessions ended counter: %w", err)
	}

	mp.viewersGauge, err = mp.meter.Int64Gauge(
		ViewersActive,
		metric.WithDescription("Current number of connected realtime viewers"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create viewers gauge: %w", err)
	}

	mp.scoreSubmissions, err = mp.meter.Int64Counter(
		ScoreSubmissionsTotal,
		metric.WithDescription("Total number of score submissions by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create score submissions counter: %w", err)
	}

	mp.notificationsCounter, err = mp.meter.Int64Counter(
		NotificationsTotal,
		metric.WithDescription("Total number of login notifications by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create notifications counter: %w", err)
	}

	mp.natsPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of events mirrored to NATS"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	mp.storeOperationsCounter, err = mp.meter.Int64Counter(
		StoreOperationsTotal,
		metric.WithDescription("Total number of state store operations by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create store operations counter: %w", err)
	}

	mp.storeDurationHist, err = mp.meter.Float64Histogram(
		StoreOperationDuration,
		metric.WithDescription("Duration of state store operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create store duration histogram: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp == nil {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordLogin records a completed login
func (mp *MetricsProvider) RecordLogin(firstLogin bool) {
	if !mp.isEnabled() {
		return
	}

	loginType := LoginTypeReturning
	if firstLogin {
		loginType = LoginTypeFirst
	}
	mp.loginsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelType, loginType)),
	)
}

// RecordSessionEnded records a session that was closed
func (mp *MetricsProvider) RecordSessionEnded() {
	if !mp.isEnabled() {
		return
	}
	mp.sessionsEndedCounter.Add(context.Background(), 1)
}

// RecordActiveViewers records the current viewer count
func (mp *MetricsProvider) RecordActiveViewers(count int64) {
	if !mp.isEnabled() {
		return
	}
	mp.viewersGauge.Record(context.Background(), count)
}

// RecordScoreSubmission records a score submission with its result
func (mp *MetricsProvider) RecordScoreSubmission(result string) {
	if !mp.isEnabled() {
		return
	}
	mp.scoreSubmissions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelResult, result)),
	)
}

// RecordNotification records a login notification with its result
func (mp *MetricsProvider) RecordNotification(result string) {
	if !mp.isEnabled() {
		return
	}
	mp.notificationsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelResult, result)),
	)
}

// RecordNATSMessagePublished records an event mirrored to NATS
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// RecordStoreOperation records a state store call with its duration
func (mp *MetricsProvider) RecordStoreOperation(backend, method string, err error, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	result := ResultOK
	if err != nil {
		result = ResultError
	}
	attrs := metric.WithAttributes(
		attribute.String(LabelBackend, backend),
		attribute.String(LabelMethod, method),
		attribute.String(LabelResult, result),
	)

	mp.storeOperationsCounter.Add(context.Background(), 1, attrs)
	mp.storeDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// isEnabled checks if instruments exist
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meterProvider != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider, nil before initialization
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
