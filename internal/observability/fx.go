package observability

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/digiunlocks/soccer-club-sub006/internal/observability/logger"
	"github.com/digiunlocks/soccer-club-sub006/internal/observability/metrics"
	"github.com/digiunlocks/soccer-club-sub006/internal/observability/tracing"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.Reconcile,
	),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
