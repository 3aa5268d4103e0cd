// Package prometheus exposes bitguard engine metrics as a prometheus.Collector.
//
// [NewExporter] reads Engine.MetricsSnapshot on each scrape. Counters are named
// bitguard_*_total; the authorize latency histogram is bitguard_authorize_latency_seconds
// and is only present when latency histograms are enabled.
//
// Register the exporter with an existing registry, or mount [Exporter.Handler] which
// serves it from a private one. Nothing is registered globally.
package prometheus
