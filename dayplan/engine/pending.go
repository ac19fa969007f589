package engine

// Pending is the outcome of an optimistic command whose remote call may
// still be running. The local change is already visible when a command
// returns its Pending.
type Pending struct {
	name string
	done chan struct{}
	err  error
}

func newPending(name string) *Pending {
	return &Pending{name: name, done: make(chan struct{})}
}

// resolved returns a Pending that is already settled
func resolved(name string, err error) *Pending {
	p := newPending(name)
	p.resolve(err)
	return p
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

// Name returns the mutation name, e.g. "toggle"
func (p *Pending) Name() string {
	return p.name
}

// Done is closed once the remote call settled
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the remote call settled. A non-nil error wraps
// ErrSyncFailed and means the local change was rolled back.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}
