package core

import (
	"go.uber.org/atomic"
)

// FrameBuffer is a single-slot, last-write-wins mailbox between the capture
// context and the render context.
//
// Semantics:
//   - Publish replaces whatever is held, read or not. There is no queue.
//   - Latest returns the held frame without removing it, or nil before the
//     first Publish.
//   - Neither call blocks: the slot is a single atomic pointer swap, so a
//     reader never observes a partially written frame.
//
// Dropping frames under load is the intended behavior. Overwrites of a frame
// no reader observed are counted for diagnostics only.
type FrameBuffer struct {
	slot *atomic.Pointer[slotEntry]

	published   *atomic.Uint64
	overwritten *atomic.Uint64
}

// slotEntry pairs a frame with its own read flag, so marking a frame read
// can never touch the flag of a frame published after it.
type slotEntry struct {
	frame *Frame
	read  atomic.Bool
}

// FrameBufferStats is a snapshot of mailbox activity
type FrameBufferStats struct {
	// Published counts every Publish call with a non-nil frame.
	Published uint64

	// Overwritten counts frames replaced before any Latest call saw them.
	// Non-zero is normal when capture runs faster than render.
	Overwritten uint64
}

// NewFrameBuffer creates an empty mailbox
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		slot:        atomic.NewPointer[slotEntry](nil),
		published:   atomic.NewUint64(0),
		overwritten: atomic.NewUint64(0),
	}
}

// Publish stores frame, discarding any predecessor. Nil frames are ignored.
func (fb *FrameBuffer) Publish(frame *Frame) {
	if frame == nil {
		return
	}

	prev := fb.slot.Swap(&slotEntry{frame: frame})
	if prev != nil && !prev.read.Load() {
		fb.overwritten.Inc()
	}
	fb.published.Inc()
}

// Latest returns the most recently published frame, or nil if none
func (fb *FrameBuffer) Latest() *Frame {
	entry := fb.slot.Load()
	if entry == nil {
		return nil
	}
	entry.read.Store(true)
	return entry.frame
}

// Stats returns a snapshot of mailbox counters
func (fb *FrameBuffer) Stats() FrameBufferStats {
	return FrameBufferStats{
		Published:   fb.published.Load(),
		Overwritten: fb.overwritten.Load(),
	}
}
