// Package datatree dispatches change notifications from a watched store
// subtree to typed add/remove/update handlers.
package datatree

import (
	"context"

	"github.com/newtron-network/newtflow/pkg/topology"
)

// ModificationKind classifies a change to a subtree root.
type ModificationKind string

const (
	// Write replaces (or creates) the entry. Before is nil on creation.
	Write ModificationKind = "write"
	// SubtreeModified changes some fields of an existing entry.
	SubtreeModified ModificationKind = "subtree-modified"
	// Delete removes the entry.
	Delete ModificationKind = "delete"
)

// Modification is one change delivered by a Feed. Before and After are nil
// when the entry did not exist before or does not exist after the change.
type Modification[T any] struct {
	Path   topology.Path
	Kind   ModificationKind
	Before *T
	After  *T
}

// Listener receives classified modifications. Implementations that do not
// react to a kind return nil from that method.
type Listener[T any] interface {
	Add(ctx context.Context, path topology.Path, after T) error
	Remove(ctx context.Context, path topology.Path, before T) error
	Update(ctx context.Context, path topology.Path, before, after T) error
}

// Feed delivers batches of modifications for one subscription. The channel is
// closed when the feed ends. Close is idempotent.
type Feed[T any] interface {
	Changes() <-chan []Modification[T]
	Close() error
}

// Subscriber opens feeds on subtrees of a store.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context, path topology.Path) (Feed[T], error)
}
