package helper

import "sync/atomic"

const (
	lowered = 0x0
	raised  = 0x1
)

// The Flag structure.
// This is a one way latch and will not act as an atomic boolean.
// The accepted transitions are:
//
// IsRaised if flag is 0x1, returns `true`;
// Raise iff not IsRaised change value to 0x1.
//
// The start value will be `lowered`. Reading the flag is lock free,
// so the flag can be read without holding the lock that guards the
// transition.
type Flag struct {
	// Holds the current state of the flag.
	flag int32
}

// IsRaised returns `true` if the flag was already raised.
func (f *Flag) IsRaised() bool {
	return atomic.LoadInt32(&f.flag) == raised
}

// Raise will raise the flag.
// Returns `true` if this call raised the flag and `false` if
// it was already raised before.
func (f *Flag) Raise() bool {
	return atomic.CompareAndSwapInt32(&f.flag, lowered, raised)
}
