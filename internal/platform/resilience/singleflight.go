package resilience

import "sync"

// SingleFlight collapses concurrent calls with the same key into one
// execution. Feed pollers hitting the same provider path share a single
// upstream request; late joiners get the shared result and a true flag.
type SingleFlight struct {
	mu       sync.Mutex
	inflight map[string]*sharedCall
}

type sharedCall struct {
	done chan struct{}
	val  any
	err  error
}

func (g *SingleFlight) Do(key string, fn func() (any, error)) (any, error, bool) {
	g.mu.Lock()
	if g.inflight == nil {
		g.inflight = make(map[string]*sharedCall)
	}

	if c, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		<-c.done
		return c.val, c.err, true
	}

	c := &sharedCall{done: make(chan struct{})}
	g.inflight[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()
	close(c.done)

	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()

	return c.val, c.err, false
}
