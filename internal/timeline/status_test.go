package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const now = int64(1_760_000_000_000)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		start  Millis
		end    Millis
		leader bool
		want   Status
	}{
		{name: "no window", start: Absent(), end: Absent(), want: StatusScheduled},
		{name: "no start, end in future", start: Absent(), end: At(now + 1000), want: StatusScheduled},
		{name: "no start, end passed", start: Absent(), end: At(now - 1000), want: StatusComplete},
		{name: "no start, end at now", start: Absent(), end: At(now), want: StatusComplete},
		{name: "future window", start: At(now + 5000), end: At(now + 10000), want: StatusScheduled},
		{name: "future start, open end", start: At(now + 5000), end: Absent(), want: StatusScheduled},
		{name: "active leader", start: At(now - 5000), end: At(now + 5000), leader: true, want: StatusRunning},
		{name: "active follower", start: At(now - 5000), end: At(now + 5000), want: StatusScheduled},
		{name: "active open end leader", start: At(now - 5000), end: Absent(), leader: true, want: StatusRunning},
		{name: "past window", start: At(now - 10000), end: At(now - 5000), want: StatusComplete},
		{name: "start at now is not running", start: At(now), end: At(now + 5000), leader: true, want: StatusScheduled},
		{name: "end at now is complete", start: At(now - 5000), end: At(now), leader: true, want: StatusComplete},
		{name: "inverted window", start: At(now + 5000), end: At(now - 5000), want: StatusUnknown},
		{name: "empty window", start: At(now - 10), end: At(now - 10), want: StatusUnknown},
		{name: "inverted window leader", start: At(now - 10), end: At(now - 20), leader: true, want: StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.start, tt.end, now, tt.leader))
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	values := []Millis{Absent(), At(now - 2), At(now - 1), At(now), At(now + 1), At(now + 2)}
	valid := map[Status]bool{}
	for _, st := range Statuses {
		valid[st] = true
	}

	for _, start := range values {
		for _, end := range values {
			for _, leader := range []bool{false, true} {
				got := Classify(start, end, now, leader)
				assert.Truef(t, valid[got], "start=%s end=%s leader=%v gave %q", start, end, leader, got)
				if !leader {
					assert.NotEqual(t, StatusRunning, got)
				}
			}
		}
	}
}

func TestUnparseableStartFallsIntoAbsentBranch(t *testing.T) {
	start := ParseMillis("abc")
	assert.False(t, start.Valid)
	assert.Equal(t, StatusScheduled, Classify(start, Absent(), now, false))
	assert.Equal(t, StatusComplete, Classify(start, At(now-1), now, false))
}
