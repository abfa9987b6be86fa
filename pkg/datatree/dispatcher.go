package datatree

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/newtron-network/newtflow/pkg/topology"
	"github.com/newtron-network/newtflow/pkg/util"
)

// Dispatcher routes the batches of one feed to a Listener. It subscribes when
// created and releases the subscription on Close.
type Dispatcher[T any] struct {
	path     topology.Path
	listener Listener[T]
	feed     Feed[T]

	closeOnce sync.Once
}

// NewDispatcher subscribes to path and returns a dispatcher bound to
// listener. Call Run to start delivering batches.
func NewDispatcher[T any](ctx context.Context, sub Subscriber[T], path topology.Path, listener Listener[T]) (*Dispatcher[T], error) {
	feed, err := sub.Subscribe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", path, err)
	}
	util.WithField("path", path.Key()).Debugf("Subscribed")
	return &Dispatcher[T]{
		path:     path,
		listener: listener,
		feed:     feed,
	}, nil
}

// Dispatch delivers each modification of batch to the listener, in order.
//
// An unrecognized modification kind stops the batch and returns a
// *util.ModificationKindError immediately. Listener errors do not stop the
// batch; they are joined and returned once every modification was handled.
func (d *Dispatcher[T]) Dispatch(ctx context.Context, batch []Modification[T]) error {
	var errs []error
	for _, m := range batch {
		var err error
		switch m.Kind {
		case Delete:
			err = d.listener.Remove(ctx, m.Path, deref(m.Before))
		case SubtreeModified:
			err = d.listener.Update(ctx, m.Path, deref(m.Before), deref(m.After))
		case Write:
			if m.Before == nil {
				err = d.listener.Add(ctx, m.Path, deref(m.After))
			} else {
				err = d.listener.Update(ctx, m.Path, *m.Before, deref(m.After))
			}
		default:
			return util.NewModificationKindError(string(m.Kind), m.Path.Key())
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", m.Kind, m.Path, err))
		}
	}
	return errors.Join(errs...)
}

// Run dispatches batches until the feed ends, ctx is done, or the feed
// reports a modification kind Dispatch cannot route. Listener errors are
// logged and do not stop the loop.
func (d *Dispatcher[T]) Run(ctx context.Context) error {
	changes := d.feed.Changes()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-changes:
			if !ok {
				return nil
			}
			err := d.Dispatch(ctx, batch)
			if errors.Is(err, util.ErrUnhandledModification) {
				return err
			}
			if err != nil {
				util.WithField("path", d.path.Key()).Errorf("Dispatch: %v", err)
			}
		}
	}
}

// Close releases the subscription. Only the first call has an effect; later
// calls return nil.
func (d *Dispatcher[T]) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = d.feed.Close()
		util.WithField("path", d.path.Key()).Debugf("Subscription closed")
	})
	return err
}

func deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
