package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/retry"
)

func TestRetryObserverCountsByUpstreamAndKind(t *testing.T) {
	counter := RetriesTotal.WithLabelValues("observer-test", string(retry.KindRateLimit))
	before := testutil.ToFloat64(counter)

	observe := RetryObserver("observer-test")
	observe(retry.KindRateLimit)
	observe(retry.KindRateLimit)

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestRecordOutcome(t *testing.T) {
	counter := ReviewsReconciledTotal.WithLabelValues(string(domain.OutcomeSkipped))
	before := testutil.ToFloat64(counter)

	RecordOutcome(domain.OutcomeSkipped)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
