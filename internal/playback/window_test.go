package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	testedAt := time.Date(2024, 1, 1, 10, 0, 30, 0, time.UTC)
	examAt := time.UnixMilli(1766572119961).UTC()

	tests := []struct {
		name  string
		hints Hints
		want  Window
	}{
		{
			name: "explicit window wins over everything",
			hints: Hints{
				StreamName: "exam-1766572119961",
				StartTime:  "2024-01-01T09:00:00Z",
				EndTime:    "2024-01-01T09:30:00Z",
				TestedAt:   "2024-01-01T10:00:30Z",
			},
			want: Window{
				Start: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
			},
		},
		{
			name:  "tested at",
			hints: Hints{StreamName: "exam-1766572119961", TestedAt: "2024-01-01T10:00:30Z"},
			want:  Window{Start: testedAt.Add(-2 * time.Minute), End: testedAt.Add(5 * time.Minute)},
		},
		{
			name:  "only start falls through to tested at",
			hints: Hints{StartTime: "2024-01-01T09:00:00Z", TestedAt: "2024-01-01T10:00:30Z"},
			want:  Window{Start: testedAt.Add(-2 * time.Minute), End: testedAt.Add(5 * time.Minute)},
		},
		{
			name:  "malformed explicit falls through to tested at",
			hints: Hints{StartTime: "garbage", EndTime: "2024-01-01T09:30:00Z", TestedAt: "2024-01-01T10:00:30Z"},
			want:  Window{Start: testedAt.Add(-2 * time.Minute), End: testedAt.Add(5 * time.Minute)},
		},
		{
			name:  "stream name timestamp",
			hints: Hints{StreamName: "exam-1766572119961"},
			want: Window{
				Start: time.UnixMilli(1766572119961 - 120000).UTC(),
				End:   time.UnixMilli(1766572119961 + 300000).UTC(),
			},
		},
		{
			name:  "malformed tested at falls through to stream name",
			hints: Hints{StreamName: "exam-1766572119961", TestedAt: "not a time"},
			want:  Window{Start: examAt.Add(-PreRoll), End: examAt.Add(PostRoll)},
		},
		{
			name:  "stream name without timestamp",
			hints: Hints{StreamName: "exam-abc"},
			want:  Window{Start: now.Add(-10 * time.Minute), End: now},
		},
		{
			name:  "stream name with suffix",
			hints: Hints{StreamName: "exam-1766572119961-retry"},
			want:  Window{Start: now.Add(-10 * time.Minute), End: now},
		},
		{
			name:  "nothing usable",
			hints: Hints{StreamName: "camera-3"},
			want:  Window{Start: now.Add(-10 * time.Minute), End: now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.hints, now)
			assert.True(t, tt.want.Start.Equal(got.Start), "start: got %s want %s", got.Start, tt.want.Start)
			assert.True(t, tt.want.End.Equal(got.End), "end: got %s want %s", got.End, tt.want.End)
		})
	}
}

func TestResolve_FallbackUsesWallClock(t *testing.T) {
	before := time.Now()
	got := Resolve(Hints{}, time.Now())
	after := time.Now()

	assert.False(t, got.End.Before(before))
	assert.False(t, got.End.After(after))
	assert.Equal(t, 600000*time.Millisecond, got.End.Sub(got.Start))
}

func TestTiers_Independent(t *testing.T) {
	_, ok := explicitWindow(Hints{StartTime: "2024-01-01T09:00:00Z"})
	assert.False(t, ok)

	_, ok = testedAtWindow(Hints{TestedAt: ""})
	assert.False(t, ok)

	w, ok := streamNameWindow(Hints{StreamName: "exam-1704103230000"})
	assert.True(t, ok)
	assert.Equal(t, 7*time.Minute, w.End.Sub(w.Start))
}
