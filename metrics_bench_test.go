package bitguard

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricAuthorizeAllowed)
	}
}

func BenchmarkMetricsIncDisabledParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricAuthorizeAllowed)
		}
	})
}

var hotMetricIDs = [...]MetricID{
	MetricAuthorizeAllowed,
	MetricAuthorizeInsufficient,
	MetricValidateSuccess,
	MetricRefreshSuccess,
}

func BenchmarkMetricsIncMixedParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(hotMetricIDs[idx])
			idx = (idx + 1) % len(hotMetricIDs)
		}
	})
}

func BenchmarkMetricsObserveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	d := 12 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricAuthorizeLatency, d)
		}
	})
}

func BenchmarkValidate(b *testing.B) {
	env := newTestEnv(b, testConfig())
	raw, err := env.engine.IssueAccess(context.Background(), 1, time.Hour, nil)
	if err != nil {
		b.Fatalf("issue access: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := env.engine.Validate(context.Background(), raw); err != nil {
			b.Fatalf("validate: %v", err)
		}
	}
}

func BenchmarkAuthorize(b *testing.B) {
	env := newTestEnv(b, testConfig())
	ctx := context.Background()
	p := env.createPrincipal(b, "bench", "correct-password-123", true).ID
	if err := env.engine.SetGrant(ctx, p, "articles", 15); err != nil {
		b.Fatalf("set grant: %v", err)
	}
	raw, err := env.engine.IssueAccess(ctx, p, time.Hour, nil)
	if err != nil {
		b.Fatalf("issue access: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := env.engine.Authorize(ctx, raw, "articles", http.MethodGet); err != nil {
			b.Fatalf("authorize: %v", err)
		}
	}
}
