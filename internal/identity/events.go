package identity

import "time"

// EventKind says what happened to a session.
type EventKind string

// Session event kinds.
const (
	SignedIn  EventKind = "signed_in"
	SignedOut EventKind = "signed_out"
	Deleted   EventKind = "deleted"
)

// SessionEvent is delivered to subscribers when a session changes.
type SessionEvent struct {
	Kind   EventKind
	UserID string
	At     time.Time
}

// subscriberBuffer is how many events a slow subscriber may lag behind
// before further events are dropped for it.
const subscriberBuffer = 16

// Subscribe returns a channel of session events and a function that
// cancels the subscription and closes the channel.
func (p *Provider) Subscribe() (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, subscriberBuffer)

	p.mu.Lock()
	if p.subs == nil {
		p.subs = make(map[int]chan SessionEvent)
	}
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (p *Provider) publish(ev SessionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
