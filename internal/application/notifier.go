package application

import "sync"

// Topic names a class of shared-state change.
type Topic string

const (
	// TopicActive fires when the active project pointer may have changed.
	TopicActive Topic = "active-selection-changed"
	// TopicProjects fires when the project list may have changed.
	TopicProjects Topic = "projects-changed"
)

// Notifier is an in-process registry of wake-up channels keyed by topic.
// It carries no payload: subscribers re-read the store when woken, so a
// dropped or coalesced signal never loses state.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[Topic]map[int]chan struct{}
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[Topic]map[int]chan struct{})}
}

// Subscribe returns a channel that receives a signal after each Publish on
// topic, and a cancel func that unregisters it. Signals coalesce: a slow
// subscriber sees at most one pending signal.
func (n *Notifier) Subscribe(topic Topic) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan struct{}, 1)
	if n.subs[topic] == nil {
		n.subs[topic] = make(map[int]chan struct{})
	}
	n.subs[topic][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs[topic], id)
		})
	}
	return ch, cancel
}

// Publish wakes every subscriber of topic without blocking. A nil Notifier
// is a no-op so services can run without one.
func (n *Notifier) Publish(topic Topic) {
	if n == nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions on topic.
func (n *Notifier) Subscribers(topic Topic) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[topic])
}
