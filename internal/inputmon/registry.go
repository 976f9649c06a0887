package inputmon

import "sync"

// Injector is a component that produces or observes input and must stand
// aside while the daemon synthesizes events.
type Injector interface {
	Stop()
	Start()
}

// Registry stops and restarts every registered injector together. It
// implements menubar.Injectors.
type Registry struct {
	mu        sync.Mutex
	injectors []Injector
	stopped   int
}

// Register adds inj. If the registry is currently stopped, inj is stopped
// immediately so StartAll stays balanced.
func (r *Registry) Register(inj Injector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.injectors = append(r.injectors, inj)
	if r.stopped > 0 {
		inj.Stop()
	}
}

// StopAll stops every injector. Calls nest; only the outermost reaches the
// injectors.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped++
	if r.stopped > 1 {
		return
	}
	for _, inj := range r.injectors {
		inj.Stop()
	}
}

// StartAll undoes one StopAll.
func (r *Registry) StartAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped == 0 {
		return
	}
	r.stopped--
	if r.stopped > 0 {
		return
	}
	for i := len(r.injectors) - 1; i >= 0; i-- {
		r.injectors[i].Start()
	}
}
