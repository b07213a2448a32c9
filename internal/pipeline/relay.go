package pipeline

import "sync"

// relay delivers progress to a callback on its own goroutine. Updates
// posted while the callback is busy are coalesced to the latest one, so
// posting never blocks. The last update posted before stop is always
// delivered.
type relay struct {
	fn ProgressFunc

	mu      sync.Mutex
	pending *Progress

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

func startRelay(fn ProgressFunc) *relay {
	if fn == nil {
		return nil
	}
	r := &relay{
		fn:      fn,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *relay) post(p Progress) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.pending = &p
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *relay) run() {
	defer close(r.stopped)
	for {
		select {
		case <-r.wake:
			r.flush()
		case <-r.done:
			r.flush()
			return
		}
	}
}

func (r *relay) flush() {
	r.mu.Lock()
	p := r.pending
	r.pending = nil
	r.mu.Unlock()

	if p != nil {
		r.fn(*p)
	}
}

// stop delivers any pending update and waits for the goroutine to exit
func (r *relay) stop() {
	if r == nil {
		return
	}
	close(r.done)
	<-r.stopped
}
