// Package indexhook provides the secondary-index notification hooks the
// persistent collections call at documented transition points. The spec
// names these hooks (add_to_indexes / remove_from_indexes) but deliberately
// leaves their behavior undesigned; protobase routes them through a small
// in-memory pub/sub bus so a concrete subscriber — such as BoltIndex — can be
// wired in without the collections themselves knowing about indexing.
package indexhook

import (
	"sync"
	"time"
)

// Transition identifies which documented hook fired.
type Transition string

const (
	// Added fires when a value is inserted into a list, a key is set in a
	// dictionary, or an element's membership count transitions 0 -> 1 in a
	// set or counted set.
	Added Transition = "added"
	// Removed fires when a value is removed from a list or dictionary, or an
	// element's membership count transitions 1 -> 0.
	Removed Transition = "removed"
)

// Event describes one add_to_indexes / remove_from_indexes call.
type Event struct {
	Transition Transition
	Database   string
	Collection string
	Key        string // textual form: stable_hash (sets), int key (hash dicts), position (lists, ordered dicts)
	Timestamp  time.Time
}

// Subscriber is a buffered channel of hook events.
type Subscriber chan Event

// Bus distributes index-hook events to subscribers. The zero value is not
// usable; construct with NewBus. A nil *Bus is valid and Fire on it is a
// no-op, so collections may hold an optional *Bus field that defaults to nil
// (spec §9: "implementations must call add_to_indexes/remove_from_indexes
// at the documented transition points but may leave the set empty").
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
	eventCh     chan Event
	stopCh      chan struct{}
	started     bool
}

// NewBus creates a new, unstarted index-hook bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the bus's distribution loop. Safe to call once.
func (b *Bus) Start() {
	if b == nil {
		return
	}
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()
	go b.run()
}

// Stop stops the distribution loop.
func (b *Bus) Stop() {
	if b == nil {
		return
	}
	close(b.stopCh)
}

// Subscribe returns a new buffered subscription channel.
func (b *Bus) Subscribe() Subscriber {
	sub := make(Subscriber, 50)
	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes and closes a subscription.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Fire publishes an index-hook event. Nil-safe and non-blocking: a bus with
// no started distribution loop simply drops events past its buffer.
func (b *Bus) Fire(evt Event) {
	if b == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	select {
	case b.eventCh <- evt:
	default:
	}
}

func (b *Bus) run() {
	for {
		select {
		case evt := <-b.eventCh:
			b.broadcast(evt)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Bus) broadcast(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub <- evt:
		default:
		}
	}
}
