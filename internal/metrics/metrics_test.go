package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(Predictions.WithLabelValues("Uninfected"))
	Predictions.WithLabelValues("Uninfected").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Predictions.WithLabelValues("Uninfected")))

	before = testutil.ToFloat64(PredictionFailures.WithLabelValues("decode"))
	PredictionFailures.WithLabelValues("decode").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PredictionFailures.WithLabelValues("decode")))
}
