package helper

import "sync/atomic"

// RequestSequence is the process wide sequence used to identify
// requests when no other sequence is injected. It is created once
// when the process starts and is never reset.
var RequestSequence = NewSequence(1)

// Sequence generates unique and monotonically increasing identifiers.
// A value is never handed out twice by the same sequence.
type Sequence struct {
	// The last value handed out.
	current uint64
}

// Creates a new sequence where the first generated
// value will be the given start.
func NewSequence(start uint64) *Sequence {
	return &Sequence{current: start - 1}
}

// Next returns the next value of the sequence.
func (s *Sequence) Next() uint64 {
	return atomic.AddUint64(&s.current, 1)
}

// Current returns the last value handed out.
func (s *Sequence) Current() uint64 {
	return atomic.LoadUint64(&s.current)
}
