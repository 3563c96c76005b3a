// Package otel binds agencyAuth engine metrics to an OpenTelemetry meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter
// and one Int64ObservableGauge per guard latency bucket. A single callback
// reads the engine snapshot on each collection cycle. Callers own the
// MeterProvider.
package otel
