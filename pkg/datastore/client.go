// Package datastore binds the topology and flow model to Redis. Entries are
// hashes keyed by a '|'-joined path, the layout SONiC uses for CONFIG_DB and
// STATE_DB.
package datastore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/newtflow/pkg/topology"
)

// Well-known database numbers.
const (
	ConfigurationDB = 4
	OperationalDB   = 6
)

// keyspaceFlags are the notify-keyspace-events classes a watch needs:
// keyspace channel, generic, hash, expired, and evicted events.
const keyspaceFlags = "Kghxe"

// Client wraps a Redis connection to one database.
type Client struct {
	client *redis.Client
	db     int
}

// NewClient creates a client for database db at addr.
func NewClient(addr, password string, db int) *Client {
	return &Client{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		db: db,
	}
}

// DB returns the database number.
func (c *Client) DB() int {
	return c.db
}

// Connect tests the connection
func (c *Client) Connect(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Get reads an entry. Returns (nil, nil) if the entry does not exist.
func (c *Client) Get(ctx context.Context, path topology.Path) (map[string]string, error) {
	vals, err := c.client.HGetAll(ctx, path.Key()).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return vals, nil
}

// Merge overlays fields onto the entry at path, keeping any other fields
// already there. An empty field set still creates the entry, using the
// "NULL":"NULL" sentinel (SONiC convention).
func (c *Client) Merge(ctx context.Context, path topology.Path, fields map[string]string) error {
	return c.client.HSet(ctx, path.Key(), hashArgs(fields)...).Err()
}

// Put replaces the entry at path with exactly fields. The delete and the
// write run in one MULTI/EXEC transaction.
func (c *Client) Put(ctx context.Context, path topology.Path, fields map[string]string) error {
	key := path.Key()
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, hashArgs(fields)...)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes an entry
func (c *Client) Delete(ctx context.Context, path topology.Path) error {
	return c.client.Del(ctx, path.Key()).Err()
}

// Children returns the paths of all direct children of path, sorted by key.
func (c *Client) Children(ctx context.Context, path topology.Path) ([]topology.Path, error) {
	all, err := c.Descendants(ctx, path)
	if err != nil {
		return nil, err
	}
	var out []topology.Path
	for _, p := range all {
		if isDirectChild(path, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Descendants returns the paths of all entries beneath path, at any depth,
// sorted by key.
func (c *Client) Descendants(ctx context.Context, path topology.Path) ([]topology.Path, error) {
	keys, err := scanKeys(ctx, c.client, path.Pattern(), 100)
	if err != nil {
		return nil, err
	}
	out := make([]topology.Path, 0, len(keys))
	for _, key := range keys {
		if p := topology.ParsePath(key); len(p) > len(path) && path.Contains(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// KeyspaceEvents returns the server's notify-keyspace-events setting.
func (c *Client) KeyspaceEvents(ctx context.Context) (string, error) {
	res, err := c.client.ConfigGet(ctx, "notify-keyspace-events").Result()
	if err != nil {
		return "", fmt.Errorf("reading notify-keyspace-events: %w", err)
	}
	if len(res) != 2 {
		return "", nil
	}
	current, _ := res[1].(string)
	return current, nil
}

// EnableKeyspaceEvents adds the notification classes Subscribe relies on to
// the server's notify-keyspace-events setting, keeping the classes already
// enabled.
func (c *Client) EnableKeyspaceEvents(ctx context.Context) error {
	current, err := c.KeyspaceEvents(ctx)
	if err != nil {
		return err
	}
	if MissingKeyspaceFlags(current) == "" {
		return nil
	}
	merged := current + MissingKeyspaceFlags(current)
	if err := c.client.ConfigSet(ctx, "notify-keyspace-events", merged).Err(); err != nil {
		return fmt.Errorf("setting notify-keyspace-events: %w", err)
	}
	return nil
}

// MissingKeyspaceFlags returns the notify-keyspace-events classes Subscribe
// needs that current lacks. "A" covers every class except the K/E channel
// selectors and the key-miss and new-key events.
func MissingKeyspaceFlags(current string) string {
	var missing strings.Builder
	for _, f := range keyspaceFlags {
		if strings.ContainsRune(current, f) {
			continue
		}
		if f != 'K' && strings.ContainsRune(current, 'A') {
			continue
		}
		missing.WriteRune(f)
	}
	return missing.String()
}

func hashArgs(fields map[string]string) []interface{} {
	if len(fields) == 0 {
		return []interface{}{"NULL", "NULL"}
	}
	// One HSET per entry so watchers see a single notification with all
	// fields present.
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

func isDirectChild(parent, p topology.Path) bool {
	return len(p) == len(parent)+1 && parent.Contains(p)
}

// scanKeys iterates Redis keys matching the given pattern using cursor-based
// SCAN instead of the blocking O(N) KEYS command.
func scanKeys(ctx context.Context, client *redis.Client, pattern string, countHint int64) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, nextCursor, err := client.Scan(ctx, cursor, pattern, countHint).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
