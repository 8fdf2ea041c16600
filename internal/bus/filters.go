// internal/bus/filters.go
package bus

// FrameFilter decides whether a received frame is accepted.
type FrameFilter func(Frame) bool

// ByMask matches when (frame.ID & mask) == (id & mask).
// This is the acceptance-mask rule bus controllers implement in hardware.
func ByMask(id uint32, mask uint32) FrameFilter {
	want := id & mask
	return func(f Frame) bool { return (f.ID & mask) == want }
}

// StandardOnly matches standard (11-bit) identifiers.
func StandardOnly() FrameFilter {
	return func(f Frame) bool { return !f.Extended }
}

// And composes two filters; the result matches when both match.
// A nil operand is ignored.
func And(a, b FrameFilter) FrameFilter {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return func(f Frame) bool { return a(f) && b(f) }
	}
}

// Acceptance builds the controller acceptance filter for standard frames.
// A zero mask accepts every standard frame.
func Acceptance(id, mask uint32) FrameFilter {
	return And(StandardOnly(), ByMask(id, mask&MaxStdID))
}

// OwnFrames matches standard data frames carrying one of ids, i.e. the
// frames a node publishes itself and gets back through self-reception.
func OwnFrames(ids ...uint32) FrameFilter {
	set := make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(f Frame) bool {
		if f.Extended || f.RTR {
			return false
		}
		_, ok := set[f.ID]
		return ok
	}
}
