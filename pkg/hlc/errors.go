package hlc

import "fmt"

// ForwardJumpError indicates the local wall clock advanced past the previous
// HLC reading by more than the configured tolerance.
type ForwardJumpError struct {
	Delta     int64 // milliseconds the wall clock jumped forward
	Tolerance int64 // configured ToleratedForwardJump
}

func (e *ForwardJumpError) Error() string {
	return fmt.Sprintf("hlc: wall clock jumped forward %dms, exceeding tolerance %dms", e.Delta, e.Tolerance)
}

// ClockOffsetError indicates a candidate timestamp (local or received) leads
// the wall clock by more than the configured maximum offset.
type ClockOffsetError struct {
	Offset int64 // milliseconds the candidate leads the wall clock
	Max    int64 // configured MaxOffset
}

func (e *ClockOffsetError) Error() string {
	return fmt.Sprintf("hlc: clock offset %dms exceeds maximum %dms", e.Offset, e.Max)
}

// WallTimeOverflowError indicates the resulting timestamp exceeds the
// configured (or default) upper bound on wall time.
type WallTimeOverflowError struct {
	Time int64 // resulting wall-clock milliseconds
	Max  int64 // upper bound that was exceeded
}

func (e *WallTimeOverflowError) Error() string {
	return fmt.Sprintf("hlc: wall time %d exceeds upper bound %d", e.Time, e.Max)
}
