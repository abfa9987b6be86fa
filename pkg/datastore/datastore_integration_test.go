//go:build integration

package datastore_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/newtron-network/newtflow/internal/testutil"
	"github.com/newtron-network/newtflow/pkg/datastore"
	"github.com/newtron-network/newtflow/pkg/datatree"
	"github.com/newtron-network/newtflow/pkg/topology"
)

func openClient(t *testing.T, db int) *datastore.Client {
	t.Helper()
	testutil.SkipIfNoRedis(t)
	testutil.FlushDB(t, db)

	c := datastore.NewClient(testutil.RedisAddr(), "", db)
	if err := c.Connect(testutil.Context(t)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient_MergePut(t *testing.T) {
	c := openClient(t, datastore.ConfigurationDB)
	ctx := testutil.Context(t)
	path := topology.FlowPath("openflow:1", 0, "L2_Rule_openflow:1:1")

	if err := c.Merge(ctx, path, map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Merge(ctx, path, map[string]string{"b": "3"}); err != nil {
		t.Fatal(err)
	}
	got, err := c.Get(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]string{"a": "1", "b": "3"}, got); diff != "" {
		t.Errorf("after merge (-want +got):\n%s", diff)
	}

	if err := c.Put(ctx, path, map[string]string{"c": "4"}); err != nil {
		t.Fatal(err)
	}
	got, _ = c.Get(ctx, path)
	if diff := cmp.Diff(map[string]string{"c": "4"}, got); diff != "" {
		t.Errorf("after put (-want +got):\n%s", diff)
	}

	if err := c.Delete(ctx, path); err != nil {
		t.Fatal(err)
	}
	if got, err := c.Get(ctx, path); err != nil || got != nil {
		t.Errorf("after delete Get = %v, %v; want nil, nil", got, err)
	}
}

func TestClient_ChildrenAndDescendants(t *testing.T) {
	c := openClient(t, datastore.ConfigurationDB)
	ctx := testutil.Context(t)

	dev := topology.DevicePath("openflow:1")
	for _, p := range []topology.Path{
		dev,
		topology.FlowPath("openflow:1", 0, "L2_Rule_openflow:1:2"),
		topology.FlowPath("openflow:1", 0, "L2_Rule_openflow:1:1"),
		topology.DevicePath("openflow:2"),
	} {
		if err := c.Merge(ctx, p, nil); err != nil {
			t.Fatal(err)
		}
	}

	var keys []string
	desc, err := c.Descendants(ctx, dev)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range desc {
		keys = append(keys, p.Key())
	}
	want := []string{
		"NODE|openflow:1|0|L2_Rule_openflow:1:1",
		"NODE|openflow:1|0|L2_Rule_openflow:1:2",
	}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("Descendants (-want +got):\n%s", diff)
	}

	children, err := c.Children(ctx, topology.Path{topology.NodeTable})
	if err != nil {
		t.Fatal(err)
	}
	keys = nil
	for _, p := range children {
		keys = append(keys, p.Key())
	}
	if diff := cmp.Diff([]string{"NODE|openflow:1", "NODE|openflow:2"}, keys); diff != "" {
		t.Errorf("Children (-want +got):\n%s", diff)
	}
}

func nextBatch(t *testing.T, feed datatree.Feed[topology.Device]) []datatree.Modification[topology.Device] {
	t.Helper()
	select {
	case batch, ok := <-feed.Changes():
		if !ok {
			t.Fatal("feed closed")
		}
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a batch")
	}
	return nil
}

func TestSubscriber_Modifications(t *testing.T) {
	c := openClient(t, datastore.OperationalDB)
	ctx := testutil.Context(t)
	if err := c.EnableKeyspaceEvents(ctx); err != nil {
		t.Fatal(err)
	}

	root := topology.NodesPath("it:1")
	existing := topology.NewDevice("openflow:1", "openflow:1:1", "openflow:1:2")
	if err := c.Put(ctx, root.Child(existing.ID), topology.EncodeDevice(existing)); err != nil {
		t.Fatal(err)
	}

	sub := datastore.NewSubscriber[topology.Device](c, topology.DecodeDevice, datastore.WithBatchWindow(50*time.Millisecond))
	feed, err := sub.Subscribe(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	defer feed.Close()

	// Initial contents
	batch := nextBatch(t, feed)
	if len(batch) != 1 || batch[0].Kind != datatree.Write || batch[0].Before != nil {
		t.Fatalf("initial batch = %+v", batch)
	}
	if diff := cmp.Diff(existing, *batch[0].After); diff != "" {
		t.Errorf("initial device (-want +got):\n%s", diff)
	}

	// New node
	added := topology.NewDevice("openflow:2", "openflow:2:1")
	if err := c.Merge(ctx, root.Child(added.ID), topology.EncodeDevice(added)); err != nil {
		t.Fatal(err)
	}
	batch = nextBatch(t, feed)
	if len(batch) != 1 || batch[0].Kind != datatree.Write || batch[0].Before != nil {
		t.Fatalf("add batch = %+v", batch)
	}

	// Field update on an existing node
	grown := topology.NewDevice("openflow:2", "openflow:2:1", "openflow:2:2")
	if err := c.Merge(ctx, root.Child(grown.ID), topology.EncodeDevice(grown)); err != nil {
		t.Fatal(err)
	}
	batch = nextBatch(t, feed)
	if len(batch) != 1 || batch[0].Kind != datatree.SubtreeModified {
		t.Fatalf("update batch = %+v", batch)
	}
	if diff := cmp.Diff(added, *batch[0].Before); diff != "" {
		t.Errorf("update before (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(grown, *batch[0].After); diff != "" {
		t.Errorf("update after (-want +got):\n%s", diff)
	}

	// Replacement of an existing node
	if err := c.Put(ctx, root.Child(grown.ID), topology.EncodeDevice(added)); err != nil {
		t.Fatal(err)
	}
	batch = nextBatch(t, feed)
	if len(batch) != 1 || batch[0].Kind != datatree.Write || batch[0].Before == nil {
		t.Fatalf("replace batch = %+v", batch)
	}

	// Removal
	if err := c.Delete(ctx, root.Child(existing.ID)); err != nil {
		t.Fatal(err)
	}
	batch = nextBatch(t, feed)
	if len(batch) != 1 || batch[0].Kind != datatree.Delete {
		t.Fatalf("delete batch = %+v", batch)
	}
	if diff := cmp.Diff(existing, *batch[0].Before); diff != "" {
		t.Errorf("deleted device (-want +got):\n%s", diff)
	}

	// Entries below the children are not watched
	if err := c.Merge(ctx, root.Child("openflow:2", "extra"), nil); err != nil {
		t.Fatal(err)
	}
	select {
	case batch := <-feed.Changes():
		t.Errorf("unexpected batch for grandchild: %+v", batch)
	case <-time.After(200 * time.Millisecond):
	}
}
