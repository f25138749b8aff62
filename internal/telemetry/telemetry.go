// Copyright 2025 The mcpkit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry wires OpenTelemetry tracing and metrics for the server.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/mcpkit/mcpkit"

// Instrumentation bundles the tracer and counters used around message
// processing.
type Instrumentation struct {
	Tracer trace.Tracer

	// McpPost counts MCP messages received over HTTP POST.
	McpPost metric.Int64Counter
	// McpSse counts SSE session establishments.
	McpSse metric.Int64Counter
	// McpStdio counts MCP messages received over stdio.
	McpStdio metric.Int64Counter
}

// NewInstrumentation creates the tracer and counters from the globally
// registered providers.
func NewInstrumentation(versionString string) (*Instrumentation, error) {
	tracer := otel.Tracer(scopeName, trace.WithInstrumentationVersion(versionString))
	meter := otel.Meter(scopeName, metric.WithInstrumentationVersion(versionString))

	mcpPost, err := meter.Int64Counter("mcpkit.mcp.post", metric.WithDescription("MCP messages received over HTTP POST"))
	if err != nil {
		return nil, fmt.Errorf("unable to create mcp post counter: %w", err)
	}
	mcpSse, err := meter.Int64Counter("mcpkit.mcp.sse", metric.WithDescription("SSE sessions established"))
	if err != nil {
		return nil, fmt.Errorf("unable to create mcp sse counter: %w", err)
	}
	mcpStdio, err := meter.Int64Counter("mcpkit.mcp.stdio", metric.WithDescription("MCP messages received over stdio"))
	if err != nil {
		return nil, fmt.Errorf("unable to create mcp stdio counter: %w", err)
	}

	return &Instrumentation{
		Tracer:   tracer,
		McpPost:  mcpPost,
		McpSse:   mcpSse,
		McpStdio: mcpStdio,
	}, nil
}

// SetupOTLP installs global trace and metric providers exporting to an OTLP
// HTTP endpoint. The returned shutdown flushes both providers.
func SetupOTLP(ctx context.Context, endpoint, serviceName, versionString string) (func(context.Context) error, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(versionString),
	))
	if err != nil {
		return nil, fmt.Errorf("unable to build otel resource: %w", err)
	}

	traceExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("unable to create trace exporter: %w", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	metricExporter, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(endpoint), otlpmetrichttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("unable to create metric exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	shutdown := func(ctx context.Context) error {
		terr := tracerProvider.Shutdown(ctx)
		merr := meterProvider.Shutdown(ctx)
		if terr != nil {
			return terr
		}
		return merr
	}
	return shutdown, nil
}
