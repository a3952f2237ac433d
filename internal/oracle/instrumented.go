package oracle

import (
	"context"
	"time"

	"github.com/staymatch/backend/internal/metrics"
	"github.com/staymatch/backend/internal/storage/models"
)

// Instrumented records every call of the wrapped oracle.
type Instrumented struct {
	next    Oracle
	metrics *metrics.Metrics
	now     func() time.Time
}

// Instrument wraps next with call counters and latency histograms.
func Instrument(next Oracle, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m, now: time.Now}
}

func (o *Instrumented) ResolveTerm(ctx context.Context, term, field string, vocabulary []string) (string, error) {
	start := o.now()
	answer, err := o.next.ResolveTerm(ctx, term, field, vocabulary)
	o.metrics.ObserveOracle("term", outcome(answer, err), o.now().Sub(start))
	return answer, err
}

func (o *Instrumented) ResolveDate(ctx context.Context, text string, defaultYear int) (string, error) {
	start := o.now()
	answer, err := o.next.ResolveDate(ctx, text, defaultYear)
	o.metrics.ObserveOracle("date", outcome(answer, err), o.now().Sub(start))
	return answer, err
}

// InstrumentedExtractor records every call of the wrapped extractor.
type InstrumentedExtractor struct {
	next    Extractor
	metrics *metrics.Metrics
}

// InstrumentExtractor wraps next with call counters.
func InstrumentExtractor(next Extractor, m *metrics.Metrics) *InstrumentedExtractor {
	return &InstrumentedExtractor{next: next, metrics: m}
}

func (e *InstrumentedExtractor) ExtractRequest(ctx context.Context, text string) (models.RawRequest, error) {
	start := time.Now()
	raw, err := e.next.ExtractRequest(ctx, text)
	result := metrics.OutcomeOK
	if err != nil {
		result = metrics.OutcomeUnavailable
	}
	e.metrics.ObserveOracle("extract", result, time.Since(start))
	return raw, err
}

func outcome(answer string, err error) string {
	switch {
	case err != nil:
		return metrics.OutcomeUnavailable
	case answer == "":
		return metrics.OutcomeEmpty
	default:
		return metrics.OutcomeOK
	}
}
