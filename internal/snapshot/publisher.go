package snapshot

import "sync/atomic"

// Publisher is the single slot holding the current snapshot. Publish swaps
// the whole value in one step; Current never blocks and never sees a
// half-written list.
type Publisher struct {
	current atomic.Pointer[Snapshot]
}

// NewPublisher returns a publisher whose current snapshot is empty.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish replaces the visible snapshot.
func (p *Publisher) Publish(s Snapshot) {
	p.current.Store(&s)
}

// Current returns the latest published snapshot, or the empty snapshot if
// nothing has been published yet.
func (p *Publisher) Current() Snapshot {
	if s := p.current.Load(); s != nil {
		return *s
	}
	return Snapshot{}
}
