package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const providerShutdownTimeout = 10 * time.Second

// serviceResource builds the OTEL resource shared by the trace, metric and
// log pipelines so every signal carries the same service identity.
func serviceResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// shutdownWithin flushes and tears down one pipeline, capped at the
// provider shutdown timeout so exit never hangs on a dead collector.
func shutdownWithin(ctx context.Context, logger *zap.Logger, what string, shutdown func(context.Context) error) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, providerShutdownTimeout)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down "+what, zap.Error(err))
		return fmt.Errorf("failed to shutdown %s: %w", what, err)
	}
	return nil
}
