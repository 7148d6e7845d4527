package janode

import "sync"

// addressIterator is a circular iterator over a Configuration's endpoints.
// The reconnect loop in a Transport is the only writer; current() is also
// read from logging call sites, hence the mutex.
type addressIterator struct {
	mu        sync.Mutex
	endpoints []Endpoint
	index     int
}

func newAddressIterator(endpoints []Endpoint) *addressIterator {
	cp := make([]Endpoint, len(endpoints))
	copy(cp, endpoints)
	return &addressIterator{endpoints: cp}
}

// current returns the active endpoint without advancing.
func (a *addressIterator) current() Endpoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.endpoints[a.index]
}

// next advances to, and returns, the following endpoint, wrapping around
// after the last one.
func (a *addressIterator) next() Endpoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.index = (a.index + 1) % len(a.endpoints)
	return a.endpoints[a.index]
}
