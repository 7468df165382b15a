package playback

import (
	"regexp"
	"strconv"
	"time"

	"fitadmin/internal/utils"
)

const (
	PreRoll        = 2 * time.Minute
	PostRoll       = 5 * time.Minute
	FallbackWindow = 10 * time.Minute
)

var examStreamPattern = regexp.MustCompile(`^exam-(\d+)$`)

// Hints are the raw timing fields a caller may know about a test event.
// Timestamps stay unparsed so a malformed value can fall through to the next
// tier instead of failing the request.
type Hints struct {
	StreamName string
	StartTime  string
	EndTime    string
	TestedAt   string
}

type Window struct {
	Start time.Time
	End   time.Time
}

type tier func(h Hints) (Window, bool)

// tiers are tried in order; the first that yields a window wins.
var tiers = []tier{
	explicitWindow,
	testedAtWindow,
	streamNameWindow,
}

// Resolve never fails. When no hint is usable the window is the ten minutes
// leading up to now.
func Resolve(h Hints, now time.Time) Window {
	for _, try := range tiers {
		if w, ok := try(h); ok {
			return w
		}
	}
	return fallbackWindow(now)
}

func explicitWindow(h Hints) (Window, bool) {
	start, ok := utils.ParseTimestamp(h.StartTime)
	if !ok {
		return Window{}, false
	}
	end, ok := utils.ParseTimestamp(h.EndTime)
	if !ok {
		return Window{}, false
	}
	return Window{Start: start, End: end}, true
}

func testedAtWindow(h Hints) (Window, bool) {
	testedAt, ok := utils.ParseTimestamp(h.TestedAt)
	if !ok {
		return Window{}, false
	}
	return around(testedAt), true
}

func streamNameWindow(h Hints) (Window, bool) {
	match := examStreamPattern.FindStringSubmatch(h.StreamName)
	if match == nil {
		return Window{}, false
	}
	ms, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return Window{}, false
	}
	return around(time.UnixMilli(ms).UTC()), true
}

func fallbackWindow(now time.Time) Window {
	end := now.UTC()
	return Window{Start: end.Add(-FallbackWindow), End: end}
}

func around(t time.Time) Window {
	return Window{Start: t.Add(-PreRoll), End: t.Add(PostRoll)}
}
