package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jwebster45206/adventure-console/pkg/narrative"
)

// GeneratorMetrics holds the generator call collectors.
type GeneratorMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewGeneratorMetrics registers the collectors with reg.
func NewGeneratorMetrics(reg prometheus.Registerer) *GeneratorMetrics {
	factory := promauto.With(reg)
	return &GeneratorMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "adventure_generation_requests_total",
			Help: "Narrator generation calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "adventure_generation_duration_seconds",
			Help:    "Narrator generation latency by provider.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"provider"}),
	}
}

// InstrumentedGenerator records call counts and latency for the wrapped
// Generator.
type InstrumentedGenerator struct {
	next     Generator
	provider string
	metrics  *GeneratorMetrics
}

func NewInstrumentedGenerator(next Generator, provider string, metrics *GeneratorMetrics) *InstrumentedGenerator {
	return &InstrumentedGenerator{next: next, provider: provider, metrics: metrics}
}

func (g *InstrumentedGenerator) Generate(ctx context.Context, req GenerationRequest) (*narrative.StructuredResponse, error) {
	start := time.Now()
	resp, err := g.next.Generate(ctx, req)
	g.metrics.duration.WithLabelValues(g.provider).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = string(Classify(err).Kind)
	}
	g.metrics.requests.WithLabelValues(g.provider, outcome).Inc()
	return resp, err
}

// Ping forwards to the wrapped generator when it supports it.
func (g *InstrumentedGenerator) Ping(ctx context.Context) error {
	if p, ok := g.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
