package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/liuscraft/frequency/internal/audio"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{fmt.Errorf("wrap: %w", audio.ErrInvalidArgument), OutcomeInvalid},
		{fmt.Errorf("wrap: %w", audio.ErrAllocation), OutcomeAllocation},
		{errors.New("boom"), OutcomeError},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Fatalf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserveSynthesis(t *testing.T) {
	okBefore := testutil.ToFloat64(TonesTotal.WithLabelValues(OutcomeOK))
	invalidBefore := testutil.ToFloat64(TonesTotal.WithLabelValues(OutcomeInvalid))
	samplesBefore := testutil.ToFloat64(SamplesGeneratedTotal)

	ObserveSynthesis(441, time.Millisecond, nil)
	ObserveSynthesis(0, 0, audio.ErrInvalidArgument)

	if got := testutil.ToFloat64(TonesTotal.WithLabelValues(OutcomeOK)) - okBefore; got != 1 {
		t.Fatalf("ok counter delta = %v", got)
	}
	if got := testutil.ToFloat64(TonesTotal.WithLabelValues(OutcomeInvalid)) - invalidBefore; got != 1 {
		t.Fatalf("invalid counter delta = %v", got)
	}
	if got := testutil.ToFloat64(SamplesGeneratedTotal) - samplesBefore; got != 441 {
		t.Fatalf("samples delta = %v", got)
	}
}
