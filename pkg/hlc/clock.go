package hlc

import (
	"math"
	"sync"
	"time"
)

// Config tunes the clock's tolerance for drift between nodes. Zero values
// disable the corresponding check, matching spec §4.1 ("if max_offset > 0").
type Config struct {
	// MaxOffset is the largest amount (milliseconds) a candidate timestamp
	// may lead the local wall clock before Update fails with
	// ClockOffsetError. Zero disables the check.
	MaxOffset int64

	// TimeUpperBound caps the wall-clock component of any timestamp this
	// clock produces. Zero means math.MaxInt64 (the spec's MAX_SAFE_INTEGER
	// equivalent for a Go int64 field).
	TimeUpperBound int64

	// ToleratedForwardJump is the largest amount (milliseconds) the wall
	// clock may have advanced past the previous reading before Update fails
	// with ForwardJumpError. Zero disables the check. The check is skipped
	// while there is no previous reading (the zero Timestamp).
	ToleratedForwardJump int64

	// Last seeds the clock's last-observed timestamp, e.g. when restoring
	// from a persisted watermark. Zero value starts from the zero Timestamp.
	Last Timestamp
}

// Clock is a Hybrid Logical Clock. The zero value is not usable; construct
// with New. Safe for concurrent use.
type Clock struct {
	mu   sync.Mutex
	last Timestamp
	cfg  Config

	// nowMillis is overridable in tests to control the wall-clock reading
	// Update compares candidates against.
	nowMillis func() int64
}

// New creates a Clock with the given configuration.
func New(cfg Config) *Clock {
	return &Clock{
		last:      cfg.Last,
		cfg:       cfg,
		nowMillis: defaultNowMillis,
	}
}

func defaultNowMillis() int64 {
	return time.Now().UnixMilli()
}

func (c *Clock) maxWallTime() int64 {
	if c.cfg.TimeUpperBound > 0 {
		return c.cfg.TimeUpperBound
	}
	return math.MaxInt64
}

// Now advances the clock against the current wall-clock reading and returns
// the new reading. Equivalent to Update(last) against a fresh physical time.
func (c *Clock) Now() (Timestamp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateLocked(c.last)
}

// Update folds a foreign timestamp into the clock's state and returns the
// merged reading. See spec §4.1 for the algorithm.
func (c *Clock) Update(other Timestamp) (Timestamp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateLocked(other)
}

func (c *Clock) updateLocked(other Timestamp) (Timestamp, error) {
	physical := c.nowMillis()

	candidate := other
	if c.last.Compare(candidate) > 0 {
		candidate = c.last
	}

	offset := candidate.Time - physical

	var next Timestamp
	if offset < 0 {
		// The wall clock has advanced past both readings.
		jump := -offset
		// A zero candidate means there is no previous reading to measure a
		// jump from, so the first reading of a fresh clock is never rejected.
		if c.cfg.ToleratedForwardJump > 0 && candidate != (Timestamp{}) && jump > c.cfg.ToleratedForwardJump {
			return Timestamp{}, &ForwardJumpError{Delta: jump, Tolerance: c.cfg.ToleratedForwardJump}
		}
		next = Timestamp{Time: physical, Logical: 0}
	} else {
		if c.cfg.MaxOffset > 0 && offset > c.cfg.MaxOffset {
			return Timestamp{}, &ClockOffsetError{Offset: offset, Max: c.cfg.MaxOffset}
		}
		next = Timestamp{Time: candidate.Time, Logical: candidate.Logical + 1}
	}

	if max := c.maxWallTime(); next.Time >= max {
		return Timestamp{}, &WallTimeOverflowError{Time: next.Time, Max: max}
	}

	c.last = next
	return next, nil
}

// Last returns the most recently produced timestamp without advancing the
// clock.
func (c *Clock) Last() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
