package utils

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewULID returns a 26 character Crockford base32 identifier whose first ten
// characters encode the current millisecond.
func NewULID() string {
	return NewULIDAt(time.Now())
}

// NewULIDAt is not monotonic within a millisecond; ordering only holds across
// distinct milliseconds.
func NewULIDAt(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// ULIDTime returns the instant encoded in id.
func ULIDTime(id string) (time.Time, bool) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()).UTC(), true
}
