package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistration(t *testing.T) {
	if SessionsCreated == nil {
		t.Error("SessionsCreated metric is nil")
	}
	if SessionsActive == nil {
		t.Error("SessionsActive metric is nil")
	}
	if SessionsOverwritten == nil {
		t.Error("SessionsOverwritten metric is nil")
	}
	if SessionDuration == nil {
		t.Error("SessionDuration metric is nil")
	}
	if EnvelopeOperations == nil {
		t.Error("EnvelopeOperations metric is nil")
	}
	if EnvelopeErrors == nil {
		t.Error("EnvelopeErrors metric is nil")
	}
	if ExecutionsProcessed == nil {
		t.Error("ExecutionsProcessed metric is nil")
	}
	if ExecutionDuration == nil {
		t.Error("ExecutionDuration metric is nil")
	}
	if ExecutionOutputSize == nil {
		t.Error("ExecutionOutputSize metric is nil")
	}
	if QuotesIssued == nil {
		t.Error("QuotesIssued metric is nil")
	}
	if QuoteFailures == nil {
		t.Error("QuoteFailures metric is nil")
	}
	if QuoteDuration == nil {
		t.Error("QuoteDuration metric is nil")
	}
}

func TestMetricsIncrement(t *testing.T) {
	SessionsCreated.WithLabelValues("success").Inc()
	SessionsActive.Set(1)
	SessionsOverwritten.Inc()
	SessionDuration.WithLabelValues("create").Observe(0.001)

	EnvelopeOperations.WithLabelValues("derive").Inc()
	EnvelopeErrors.WithLabelValues("decrypt").Inc()

	ExecutionsProcessed.WithLabelValues("wasm", "success").Inc()
	ExecutionDuration.WithLabelValues("wasm").Observe(0.05)
	ExecutionOutputSize.WithLabelValues("wasm").Observe(128)

	QuotesIssued.WithLabelValues("mock").Inc()
	QuoteDuration.WithLabelValues("mock").Observe(0.0002)

	if count := testutil.CollectAndCount(SessionsCreated); count == 0 {
		t.Error("SessionsCreated has no metrics collected")
	}
	if count := testutil.CollectAndCount(ExecutionsProcessed); count == 0 {
		t.Error("ExecutionsProcessed has no metrics collected")
	}
	if count := testutil.CollectAndCount(QuotesIssued); count == 0 {
		t.Error("QuotesIssued has no metrics collected")
	}
}
