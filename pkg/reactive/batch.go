package reactive

// Batch runs fn and defers signal notifications until it returns. Each
// listener is notified once, however many of its signals changed. Batches
// nest; notifications fire when the outermost batch ends.
func Batch(fn func()) {
	s := state()
	s.batchDepth++
	defer func() {
		s.batchDepth--
		if s.batchDepth == 0 {
			flush(s)
		}
	}()
	fn()
}

func flush(s *trackingState) {
	for len(s.pending) > 0 {
		queued := s.pending
		s.pending = nil

		seen := make(map[uint64]struct{}, len(queued))
		for _, l := range queued {
			if _, dup := seen[l.ID()]; dup {
				continue
			}
			seen[l.ID()] = struct{}{}
			l.MarkDirty()
		}
	}
}

// Untracked runs fn without subscribing the current listener to the
// signals fn reads.
func Untracked(fn func()) {
	old := swapListener(nil)
	defer swapListener(old)
	fn()
}
