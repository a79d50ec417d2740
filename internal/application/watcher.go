package application

import (
	"context"
	"sync"
	"time"
)

// Default poll intervals. Active selection changes drive a visible refetch
// and poll fast; list views tolerate more latency.
const (
	ActivePollInterval = 500 * time.Millisecond
	ListPollInterval   = 1500 * time.Millisecond
)

// ListSnapshot is the cheap comparison value for list views: the number of
// projects and the newest UpdatedAt among them.
type ListSnapshot struct {
	Count      int
	LastUpdate int64 // UnixNano; time.Time is not safe to compare with !=.
}

// Watcher keeps one component's last-known snapshot of shared state and
// calls onChange whenever a fresh read differs from it. Reads happen on a
// ticker and whenever the notifier publishes one of the watched topics; a
// publish from another process is caught by the ticker alone.
//
// All reads and callbacks run on a single goroutine, so ticks never overlap.
// onChange must not call Stop.
type Watcher[T comparable] struct {
	read     func(ctx context.Context) T
	onChange func(T)
	interval time.Duration
	notifier *Notifier
	topics   []Topic

	mu   sync.Mutex
	last T

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewWatcher creates a Watcher that polls read every interval and also wakes
// on the given notifier topics. notifier may be nil.
func NewWatcher[T comparable](
	read func(ctx context.Context) T,
	interval time.Duration,
	notifier *Notifier,
	topics []Topic,
	onChange func(T),
) *Watcher[T] {
	return &Watcher[T]{
		read:     read,
		onChange: onChange,
		interval: interval,
		notifier: notifier,
		topics:   topics,
		done:     make(chan struct{}),
	}
}

// NewActiveWatcher watches the active project id.
func NewActiveWatcher(sel *Selection, notifier *Notifier, interval time.Duration, onChange func(activeID string)) *Watcher[string] {
	return NewWatcher(sel.ActiveID, interval, notifier, []Topic{TopicActive, TopicProjects}, onChange)
}

// NewListWatcher watches the project count and newest update time.
func NewListWatcher(projects *ProjectService, notifier *Notifier, interval time.Duration, onChange func(ListSnapshot)) *Watcher[ListSnapshot] {
	read := func(ctx context.Context) ListSnapshot {
		list := projects.List(ctx)
		snap := ListSnapshot{Count: len(list)}
		for _, p := range list {
			if ts := p.UpdatedAt.UnixNano(); ts > snap.LastUpdate {
				snap.LastUpdate = ts
			}
		}
		return snap
	}
	return NewWatcher(read, interval, notifier, []Topic{TopicProjects}, onChange)
}

// Start seeds the snapshot with a synchronous read, returns it, and starts
// the watch loop. The loop ends when ctx is done or Stop is called.
func (w *Watcher[T]) Start(ctx context.Context) T {
	initial := w.read(ctx)
	w.mu.Lock()
	w.last = initial
	w.mu.Unlock()

	w.startOnce.Do(func() {
		loopCtx, cancel := context.WithCancel(ctx)
		w.cancel = cancel

		var wake <-chan struct{}
		var unsubscribe []func()
		if w.notifier != nil && len(w.topics) > 0 {
			merged := make(chan struct{}, 1)
			for _, topic := range w.topics {
				ch, cancelSub := w.notifier.Subscribe(topic)
				unsubscribe = append(unsubscribe, cancelSub)
				go forward(loopCtx, ch, merged)
			}
			wake = merged
		}

		go func() {
			defer close(w.done)
			defer func() {
				for _, cancelSub := range unsubscribe {
					cancelSub()
				}
			}()
			w.loop(loopCtx, wake)
		}()
	})

	return initial
}

// Stop ends the watch loop and waits for it to exit. No callback runs after
// Stop returns. Stop is safe to call more than once and before Start.
func (w *Watcher[T]) Stop() {
	w.stopOnce.Do(func() {
		w.startOnce.Do(func() { close(w.done) })
		if w.cancel != nil {
			w.cancel()
		}
		<-w.done
	})
}

// Snapshot returns the last-known value.
func (w *Watcher[T]) Snapshot() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *Watcher[T]) loop(ctx context.Context, wake <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-wake:
		}
		w.tick(ctx)
	}
}

func (w *Watcher[T]) tick(ctx context.Context) {
	current := w.read(ctx)
	if ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	changed := current != w.last
	if changed {
		w.last = current
	}
	w.mu.Unlock()

	if changed {
		w.onChange(current)
	}
}

// forward relays signals from src into dst without blocking, until ctx ends.
func forward(ctx context.Context, src <-chan struct{}, dst chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-src:
			select {
			case dst <- struct{}{}:
			default:
			}
		}
	}
}
