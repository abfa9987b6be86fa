package datatree

import (
	"context"
	"errors"
	"sync"

	"github.com/newtron-network/newtflow/pkg/topology"
)

// ErrFeedClosed is returned by Publish after the feed was closed.
var ErrFeedClosed = errors.New("feed closed")

// ChannelFeed is an in-process Feed. Producers call Publish; the consumer
// reads Changes.
type ChannelFeed[T any] struct {
	ch   chan []Modification[T]
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	senders sync.WaitGroup
	once    sync.Once
}

// NewChannelFeed creates a feed buffering up to size batches.
func NewChannelFeed[T any](size int) *ChannelFeed[T] {
	return &ChannelFeed[T]{
		ch:   make(chan []Modification[T], size),
		done: make(chan struct{}),
	}
}

// Publish queues a batch. It blocks while the buffer is full and returns
// ErrFeedClosed if the feed is closed before the batch is queued.
func (f *ChannelFeed[T]) Publish(batch []Modification[T]) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFeedClosed
	}
	f.senders.Add(1)
	f.mu.Unlock()
	defer f.senders.Done()

	select {
	case <-f.done:
		return ErrFeedClosed
	default:
	}
	select {
	case f.ch <- batch:
		return nil
	case <-f.done:
		return ErrFeedClosed
	}
}

// Changes implements Feed.
func (f *ChannelFeed[T]) Changes() <-chan []Modification[T] {
	return f.ch
}

// Close implements Feed. Pending Publish calls return ErrFeedClosed; the
// Changes channel is closed once they have.
func (f *ChannelFeed[T]) Close() error {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	f.mu.Unlock()

	f.senders.Wait()
	f.once.Do(func() { close(f.ch) })
	return nil
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc[T any] func(ctx context.Context, path topology.Path) (Feed[T], error)

// Subscribe implements Subscriber.
func (fn SubscriberFunc[T]) Subscribe(ctx context.Context, path topology.Path) (Feed[T], error) {
	return fn(ctx, path)
}
