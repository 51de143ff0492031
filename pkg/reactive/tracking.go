package reactive

import (
	"runtime"
	"sync"
)

// trackingState is the reactive state of one goroutine.
type trackingState struct {
	// listener subscribes to signals read while it is set.
	listener Listener

	// owner receives effects created while it is set.
	owner *Owner

	// batchDepth counts nested Batch calls.
	batchDepth int

	// pending holds listeners to notify when the outermost batch ends.
	pending []Listener
}

var states sync.Map // goroutine id -> *trackingState

// goroutineID parses the current goroutine's id from its stack header,
// which starts with "goroutine <id> [".
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	const prefix = len("goroutine ")
	var id uint64
	for _, c := range buf[prefix:n] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

func state() *trackingState {
	gid := goroutineID()
	if s, ok := states.Load(gid); ok {
		return s.(*trackingState)
	}
	s := &trackingState{}
	states.Store(gid, s)
	return s
}

func currentListener() Listener {
	return state().listener
}

func swapListener(l Listener) Listener {
	s := state()
	old := s.listener
	s.listener = l
	return old
}

func currentOwner() *Owner {
	return state().owner
}

func swapOwner(o *Owner) *Owner {
	s := state()
	old := s.owner
	s.owner = o
	return old
}

// WithOwner runs fn with owner as the current owner. Effects created by fn
// belong to owner.
func WithOwner(owner *Owner, fn func()) {
	old := swapOwner(owner)
	defer swapOwner(old)
	fn()
}

// WithListener runs fn with l tracking the signals fn reads.
func WithListener(l Listener, fn func()) {
	old := swapListener(l)
	defer swapListener(old)
	fn()
}

// Release drops the tracking state of the calling goroutine. Long-lived
// goroutines that deliver changes may call it before exiting.
func Release() {
	states.Delete(goroutineID())
}
