package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes the finance instruments. A nil *Metrics is a no-op.
type Metrics struct {
	paymentsCreated     metric.Int64Counter
	refunds             metric.Int64Counter
	refundedCents       metric.Int64Counter
	ledgerEntries       metric.Int64Counter
	integrationFailures metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "clubledger"
	}
	meter := provider.Meter(name)

	paymentsCreated, err := meter.Int64Counter("clubledger_payments_created_total")
	if err != nil {
		return nil, err
	}
	refunds, err := meter.Int64Counter("clubledger_refunds_total")
	if err != nil {
		return nil, err
	}
	refundedCents, err := meter.Int64Counter("clubledger_refunded_cents_total")
	if err != nil {
		return nil, err
	}
	ledgerEntries, err := meter.Int64Counter("clubledger_ledger_entries_total")
	if err != nil {
		return nil, err
	}
	integrationFailures, err := meter.Int64Counter("clubledger_integration_failures_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		paymentsCreated:     paymentsCreated,
		refunds:             refunds,
		refundedCents:       refundedCents,
		ledgerEntries:       ledgerEntries,
		integrationFailures: integrationFailures,
	}, nil
}

func (m *Metrics) RecordPaymentCreated(ctx context.Context, method, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("method", strings.TrimSpace(method)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.paymentsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordRefund(ctx context.Context, refundType string, cents int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("refund_type", strings.TrimSpace(refundType)))
	m.refunds.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.refundedCents.Add(ctx, cents)
}

// RecordLedgerEntry counts appended ledger rows by type and category.
func (m *Metrics) RecordLedgerEntry(ctx context.Context, txType, category string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("type", strings.TrimSpace(txType)),
		attribute.String("category", strings.TrimSpace(category)),
	)
	m.ledgerEntries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordIntegrationFailure(ctx context.Context, sourceType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source_type", strings.TrimSpace(sourceType)))
	m.integrationFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"method":      {},
	"status":      {},
	"refund_type": {},
	"type":        {},
	"category":    {},
	"source_type": {},
	"job":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
