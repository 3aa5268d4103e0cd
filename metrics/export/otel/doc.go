// Package otel publishes bitguard engine metrics through OpenTelemetry observable
// instruments.
//
// Each engine counter becomes an Int64ObservableCounter. The authorize latency
// histogram is published as one Int64ObservableGauge per cumulative bucket plus a
// count gauge. A single callback reads Engine.MetricsSnapshot per collection. The
// caller owns the MeterProvider.
package otel
