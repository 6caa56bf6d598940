// Package hlc implements a Hybrid Logical Clock: a timestamp that combines
// wall-clock milliseconds with a monotonic logical counter so that
// independently-generated timestamps can still be totally ordered.
package hlc

import (
	"fmt"
	"strconv"
	"strings"
)

// Timestamp is a Hybrid Logical Clock reading: wall-clock milliseconds plus
// a logical counter that disambiguates readings taken within the same
// millisecond (or received from a clock that is temporarily ahead).
type Timestamp struct {
	Time    int64  // wall-clock milliseconds
	Logical uint32 // monotonic disambiguator
}

// logicalWidth is the zero-padded width of the serialized logical counter.
// Fixed width is what makes String() lexicographically sortable in the same
// order as Compare() — see spec §4.1.
const logicalWidth = 5

// Compare returns -1, 0 or 1 as t is less than, equal to, or greater than
// other, ordering first by Time then by Logical.
func (t Timestamp) Compare(other Timestamp) int {
	if t.Time != other.Time {
		if t.Time < other.Time {
			return -1
		}
		return 1
	}
	switch {
	case t.Logical < other.Logical:
		return -1
	case t.Logical > other.Logical:
		return 1
	default:
		return 0
	}
}

// Less reports whether t orders strictly before other.
func (t Timestamp) Less(other Timestamp) bool {
	return t.Compare(other) < 0
}

// String renders the timestamp as "{time}-{logical:05d}", the wire format
// from spec §6.3. The fixed logical width guarantees that string ordering
// equals numeric ordering.
func (t Timestamp) String() string {
	return fmt.Sprintf("%d-%0*d", t.Time, logicalWidth, t.Logical)
}

// Parse decodes a timestamp previously produced by String.
func Parse(s string) (Timestamp, error) {
	idx := strings.LastIndexByte(s, '-')
	if idx < 0 {
		return Timestamp{}, fmt.Errorf("hlc: malformed timestamp %q: missing separator", s)
	}
	timePart, logicalPart := s[:idx], s[idx+1:]

	wallMs, err := strconv.ParseInt(timePart, 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("hlc: malformed timestamp %q: %w", s, err)
	}
	logical, err := strconv.ParseUint(logicalPart, 10, 32)
	if err != nil {
		return Timestamp{}, fmt.Errorf("hlc: malformed timestamp %q: %w", s, err)
	}

	return Timestamp{Time: wallMs, Logical: uint32(logical)}, nil
}

// MustParse is Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Timestamp {
	ts, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return ts
}
