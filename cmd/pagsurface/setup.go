package main

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/pag-surface/config"
	"github.com/wippyai/pag-surface/engine"
	"github.com/wippyai/pag-surface/surface"
	"github.com/wippyai/pag-surface/target"
)

// newLogger builds a zap logger from the log config and installs it in the
// engine and surface packages.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	engine.SetLogger(logger.Named("engine"))
	surface.SetLogger(logger.Named("surface"))
	return logger, nil
}

// setupTracing installs an OTLP HTTP trace exporter when tracing is enabled.
// The returned shutdown function flushes pending spans.
func setupTracing(ctx context.Context, cfg config.TracingConfig) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return noop, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return noop, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// openEngine creates the engine selected by cfg.
func openEngine(ctx context.Context, cfg *config.Config, targets *target.Registry) (engine.Engine, error) {
	switch cfg.Engine {
	case config.EngineSoftware:
		return engine.NewSoftwareEngine(targets), nil

	case config.EngineWasm:
		data, err := os.ReadFile(cfg.Module)
		if err != nil {
			return nil, fmt.Errorf("read module: %w", err)
		}
		names := engine.ExportNamesFor(cfg.Class)
		eng, err := engine.NewWazeroEngine(ctx, data, &engine.Config{
			Targets:          targets,
			Names:            &names,
			MemoryLimitPages: cfg.MemoryLimitPages,
		})
		if err != nil {
			return nil, fmt.Errorf("load engine: %w", err)
		}
		return eng, nil

	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}
