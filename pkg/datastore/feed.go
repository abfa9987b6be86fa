package datastore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/newtflow/pkg/datatree"
	"github.com/newtron-network/newtflow/pkg/topology"
	"github.com/newtron-network/newtflow/pkg/util"
)

// Decoder converts a hash read from the store into an entity.
type Decoder[T any] func(path topology.Path, fields map[string]string) (T, error)

// Default batching parameters for Subscriber.
const (
	DefaultBatchWindow = 20 * time.Millisecond
	DefaultBatchSize   = 256
)

// Subscriber watches subtrees of a Redis database through keyspace
// notifications and implements datatree.Subscriber.
type Subscriber[T any] struct {
	client    *Client
	decode    Decoder[T]
	window    time.Duration
	batchSize int
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*subscriberOptions)

type subscriberOptions struct {
	window    time.Duration
	batchSize int
}

// WithBatchWindow sets how long notifications are collected into one batch
// after the first one arrives.
func WithBatchWindow(d time.Duration) SubscriberOption {
	return func(o *subscriberOptions) { o.window = d }
}

// WithBatchSize caps the number of notifications per batch.
func WithBatchSize(n int) SubscriberOption {
	return func(o *subscriberOptions) { o.batchSize = n }
}

// NewSubscriber creates a Subscriber reading entities with decode.
func NewSubscriber[T any](c *Client, decode Decoder[T], opts ...SubscriberOption) *Subscriber[T] {
	o := subscriberOptions{window: DefaultBatchWindow, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.batchSize <= 0 {
		o.batchSize = DefaultBatchSize
	}
	return &Subscriber[T]{client: c, decode: decode, window: o.window, batchSize: o.batchSize}
}

// Subscribe watches the direct children of path. The first batch on the
// returned feed holds a Write (with nil Before) for every child that
// already exists. When the connection drops, go-redis resubscribes on
// reconnect; the feed then rereads the subtree so changes missed during the
// outage are still delivered.
func (s *Subscriber[T]) Subscribe(ctx context.Context, path topology.Path) (datatree.Feed[T], error) {
	prefix := keyspacePrefix(s.client.db)
	ps := s.client.client.PSubscribe(ctx, prefix+path.Pattern())
	// Wait for the subscription confirmation so nothing written after the
	// snapshot below is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("psubscribe %s: %w", path, err)
	}

	f := newFeed(path, s.client.Get, s.decode, s.window, s.batchSize)
	f.list = s.client.Children
	f.prefix = prefix
	f.ps = ps

	initial, err := f.load(ctx)
	if err != nil {
		f.Close()
		return nil, err
	}

	f.wg.Add(1)
	go f.run(initial, ps.ChannelWithSubscriptions(ctx, 100))
	return f, nil
}

func keyspacePrefix(db int) string {
	return fmt.Sprintf("__keyspace@%d__:", db)
}

// getFunc reads one hash; (nil, nil) means the entry does not exist.
type getFunc func(ctx context.Context, path topology.Path) (map[string]string, error)

// listFunc returns the direct children of a path.
type listFunc func(ctx context.Context, path topology.Path) ([]topology.Path, error)

// feed turns keyspace notifications into modification batches. It keeps the
// last value seen for every child so it can supply Before.
type feed[T any] struct {
	root      topology.Path
	get       getFunc
	list      listFunc
	decode    Decoder[T]
	window    time.Duration
	batchSize int

	prefix string
	ps     *redis.PubSub
	out    chan []datatree.Modification[T]

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup

	snapshot map[string]T
}

func newFeed[T any](root topology.Path, get getFunc, decode Decoder[T], window time.Duration, batchSize int) *feed[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &feed[T]{
		root:      root,
		get:       get,
		decode:    decode,
		window:    window,
		batchSize: batchSize,
		out:       make(chan []datatree.Modification[T], 1),
		ctx:       ctx,
		cancel:    cancel,
		snapshot:  make(map[string]T),
	}
}

func (f *feed[T]) Changes() <-chan []datatree.Modification[T] {
	return f.out
}

// Close stops the watch and waits for the delivery goroutine to exit.
func (f *feed[T]) Close() error {
	var err error
	f.closeOnce.Do(func() {
		f.cancel()
		if f.ps != nil {
			err = f.ps.Close()
		}
		f.wg.Wait()
	})
	return err
}

// load reads the current children of root into the snapshot and returns
// them as Write modifications.
func (f *feed[T]) load(ctx context.Context) ([]datatree.Modification[T], error) {
	paths, err := f.list(ctx, f.root)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", f.root, err)
	}
	var mods []datatree.Modification[T]
	for _, p := range paths {
		after, ok, err := f.read(ctx, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		f.snapshot[p.Key()] = after
		mods = append(mods, datatree.Modification[T]{Path: p, Kind: datatree.Write, After: &after})
	}
	return mods, nil
}

func (f *feed[T]) read(ctx context.Context, p topology.Path) (T, bool, error) {
	var zero T
	fields, err := f.get(ctx, p)
	if err != nil {
		return zero, false, fmt.Errorf("reading %s: %w", p, err)
	}
	if fields == nil {
		return zero, false, nil
	}
	v, err := f.decode(p, fields)
	if err != nil {
		return zero, false, fmt.Errorf("decoding %s: %w", p, err)
	}
	return v, true, nil
}

func (f *feed[T]) run(initial []datatree.Modification[T], msgs <-chan interface{}) {
	defer f.wg.Done()
	defer close(f.out)

	if len(initial) > 0 && !f.send(initial) {
		return
	}

	for {
		events, resync, ok := f.collect(msgs)
		if resync {
			events = append(events, f.resyncEvents(f.ctx)...)
		}
		if len(events) > 0 {
			if batch := f.classify(f.ctx, events); len(batch) > 0 && !f.send(batch) {
				return
			}
		}
		if !ok {
			return
		}
	}
}

func (f *feed[T]) send(batch []datatree.Modification[T]) bool {
	select {
	case f.out <- batch:
		return true
	case <-f.ctx.Done():
		return false
	}
}

// keyEvent is one keyspace notification for a child of root.
type keyEvent struct {
	key   string
	event string
}

// collect blocks for the first notification, then gathers more until the
// batch window elapses or the batch is full. resync is set when the
// subscription was re-established after a reconnect. ok is false once the
// subscription has ended.
func (f *feed[T]) collect(msgs <-chan interface{}) (events []keyEvent, resync, ok bool) {
	var timer <-chan time.Time
	for {
		select {
		case <-f.ctx.Done():
			return events, false, false
		case <-timer:
			return events, false, true
		case raw, open := <-msgs:
			if !open {
				return events, false, false
			}
			var msg *redis.Message
			switch m := raw.(type) {
			case *redis.Message:
				msg = m
			case *redis.Subscription:
				if m.Kind == "psubscribe" {
					util.WithField("path", f.root.Key()).Info("Subscription re-established, reloading")
					return events, true, true
				}
				continue
			default:
				continue
			}
			ev, keep := f.parse(msg)
			if !keep {
				continue
			}
			events = append(events, ev)
			if len(events) >= f.batchSize {
				return events, false, true
			}
			if timer == nil {
				timer = time.After(f.window)
			}
		}
	}
}

func (f *feed[T]) parse(msg *redis.Message) (keyEvent, bool) {
	key := strings.TrimPrefix(msg.Channel, f.prefix)
	if !isDirectChild(f.root, topology.ParsePath(key)) {
		return keyEvent{}, false
	}
	return keyEvent{key: key, event: msg.Payload}, true
}

// resyncEvents compares the subtree with the snapshot and returns a
// synthetic event for every child that exists now or existed before.
// classify turns them into the modifications a watcher would have seen.
func (f *feed[T]) resyncEvents(ctx context.Context) []keyEvent {
	paths, err := f.list(ctx, f.root)
	if err != nil {
		util.WithField("path", f.root.Key()).Warnf("Reload failed: %v", err)
		return nil
	}
	var events []keyEvent
	present := make(map[string]bool, len(paths))
	for _, p := range paths {
		present[p.Key()] = true
		events = append(events, keyEvent{key: p.Key(), event: "hset"})
	}
	var gone []string
	for key := range f.snapshot {
		if !present[key] {
			gone = append(gone, key)
		}
	}
	sort.Strings(gone)
	for _, key := range gone {
		events = append(events, keyEvent{key: key, event: "del"})
	}
	return events
}

// classify folds the events of one window into at most one modification per
// key, in order of each key's first event.
func (f *feed[T]) classify(ctx context.Context, events []keyEvent) []datatree.Modification[T] {
	type keyState struct {
		removed bool
		changed bool
		unknown string
	}
	var order []string
	states := make(map[string]*keyState)
	for _, ev := range events {
		st, seen := states[ev.key]
		if !seen {
			st = &keyState{}
			states[ev.key] = st
			order = append(order, ev.key)
		}
		switch eventClass(ev.event) {
		case eventRemove:
			st.removed = true
		case eventChange:
			st.changed = true
		case eventIgnore:
		default:
			if st.unknown == "" {
				st.unknown = ev.event
			}
		}
	}

	var batch []datatree.Modification[T]
	for _, key := range order {
		st := states[key]
		path := topology.ParsePath(key)
		log := util.WithField("key", key)

		if st.unknown != "" {
			batch = append(batch, datatree.Modification[T]{Path: path, Kind: datatree.ModificationKind(st.unknown)})
			continue
		}
		if !st.removed && !st.changed {
			continue
		}

		before, existed := f.snapshot[key]
		after, exists, err := f.read(ctx, path)
		if err != nil {
			log.Warnf("Skipping change: %v", err)
			continue
		}

		var m datatree.Modification[T]
		switch {
		case !exists && !existed:
			// created and removed within one window
			continue
		case !exists:
			m = datatree.Modification[T]{Path: path, Kind: datatree.Delete, Before: &before}
			delete(f.snapshot, key)
		case !existed:
			m = datatree.Modification[T]{Path: path, Kind: datatree.Write, After: &after}
			f.snapshot[key] = after
		case st.removed:
			m = datatree.Modification[T]{Path: path, Kind: datatree.Write, Before: &before, After: &after}
			f.snapshot[key] = after
		default:
			m = datatree.Modification[T]{Path: path, Kind: datatree.SubtreeModified, Before: &before, After: &after}
			f.snapshot[key] = after
		}
		log.Debugf("Classified %s", m.Kind)
		batch = append(batch, m)
	}
	return batch
}

type eventKind int

const (
	eventUnknown eventKind = iota
	eventChange
	eventRemove
	eventIgnore
)

// eventClass maps a keyspace event name to its effect on the entry.
func eventClass(event string) eventKind {
	switch event {
	case "hset", "hdel", "hincrby", "hincrbyfloat", "hexpired",
		"rename_to", "restore", "copy_to", "move_to":
		return eventChange
	case "del", "expired", "evicted", "rename_from", "move_from":
		return eventRemove
	case "expire", "persist", "hexpire", "hpersist", "new":
		return eventIgnore
	}
	return eventUnknown
}
