// Package metrics creates the OpenTelemetry instruments used by the services.
// Instruments come from the global meter provider, which is a no-op until
// Init or Install replaces it.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"

	"turf-booking-backend/config"
)

const meterName = "turf-booking-backend"

// Init exports metrics to an OTLP/HTTP collector and installs the provider
// globally. The caller shuts the provider down on exit to flush the last
// interval.
func Init(ctx context.Context, cfg config.MetricsConfig) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	return Install(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
		sdkmetric.WithResource(res),
	), nil
}

// Install builds an SDK meter provider from opts and makes it the global one.
// Instruments created afterwards record into it.
func Install(opts ...sdkmetric.Option) *sdkmetric.MeterProvider {
	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	return mp
}

// Counter returns a named int64 counter, falling back to a no-op counter when
// the provider rejects the instrument.
func Counter(name, description string, logger *zap.Logger) metric.Int64Counter {
	counter, err := otel.Meter(meterName).Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		logger.Warn("failed to create counter", zap.String("name", name), zap.Error(err))
		return noop.Int64Counter{}
	}
	return counter
}
