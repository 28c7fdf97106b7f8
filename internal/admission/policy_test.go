package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/proofcheck/internal/proof"
)

var zone = time.FixedZone("UTC+2", 2*3600)

func local(d, hh, mm, ss int) time.Time {
	return time.Date(2024, 5, d, hh, mm, ss, 0, zone)
}

func TestAdmit(t *testing.T) {
	p := New(WithLocation(zone))

	tests := []struct {
		name     string
		captured time.Time
		now      time.Time
		want     proof.Reason
	}{
		{"morning photo, late submission", local(1, 9, 0, 0), local(1, 23, 0, 0), ""},
		{"start and end of day", local(1, 0, 5, 0), local(1, 23, 55, 0), ""},
		{"yesterday two minutes ago", local(1, 23, 59, 0), local(2, 0, 1, 0), proof.ReasonNotToday},
		{"ten minutes in the future", local(1, 12, 10, 0), local(1, 12, 0, 0), proof.ReasonFutureDated},
		{"thirty seconds in the future", local(1, 12, 0, 30), local(1, 12, 0, 0), ""},
		{"exactly at tolerance", local(1, 12, 2, 0), local(1, 12, 0, 0), ""},
		{"one second past tolerance", local(1, 12, 2, 1), local(1, 12, 0, 0), proof.ReasonFutureDated},
		{"tomorrow", local(2, 0, 0, 30), local(1, 23, 59, 59), proof.ReasonNotToday},
		{"missing", time.Time{}, local(1, 12, 0, 0), proof.ReasonNoCaptureTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej := p.Admit(tt.captured, tt.now)
			if tt.want == "" {
				assert.Nil(t, rej)
				return
			}
			require.NotNil(t, rej)
			assert.Equal(t, tt.want, rej.Reason)
			assert.NotEmpty(t, rej.Message)
		})
	}
}

func TestAdmit_ComparesInConfiguredZone(t *testing.T) {
	// 23:30 UTC on May 1 is 01:30 on May 2 in UTC+2.
	captured := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)
	now := time.Date(2024, 5, 2, 8, 0, 0, 0, zone)

	assert.Nil(t, New(WithLocation(zone)).Admit(captured, now))

	rej := New(WithLocation(time.UTC)).Admit(captured, now)
	require.NotNil(t, rej)
	assert.Equal(t, proof.ReasonNotToday, rej.Reason)
}

func TestAdmit_CustomSkew(t *testing.T) {
	p := New(WithLocation(zone), WithSkewTolerance(15*time.Minute))
	assert.Nil(t, p.Admit(local(1, 12, 10, 0), local(1, 12, 0, 0)))
	assert.Equal(t, 15*time.Minute, p.SkewTolerance())
}

func TestAdmit_CustomDayComparer(t *testing.T) {
	calls := 0
	always := func(a, b time.Time) bool { calls++; return true }
	p := New(WithDayComparer(always))

	assert.Nil(t, p.Admit(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, calls)
}

func TestNew_Defaults(t *testing.T) {
	assert.Equal(t, DefaultSkewTolerance, New().SkewTolerance())
}

func TestSameDayIn_NilMeansLocal(t *testing.T) {
	now := time.Now()
	assert.True(t, SameDayIn(nil)(now, now))
}

func TestSystemClock(t *testing.T) {
	before := time.Now()
	got := SystemClock{}.Now()
	assert.False(t, got.Before(before))
}
