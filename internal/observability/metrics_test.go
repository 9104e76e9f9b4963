package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSubmissionOutcomesCounter(t *testing.T) {
	counter := SubmissionOutcomes().WithLabelValues("final", "graded")
	before := testutil.ToFloat64(counter)

	counter.Inc()
	counter.Inc()

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestObserveTranscription(t *testing.T) {
	ObserveTranscription("rubric", time.Now().Add(-time.Second), nil)
	ObserveTranscription("rubric", time.Now(), errors.New("boom"))

	assert.Equal(t, 2, testutil.CollectAndCount(transcriptionSeconds, "grading_transcription_seconds"))
}
