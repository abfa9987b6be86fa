package datastore

import (
	"context"
	"fmt"
	"sync"

	"github.com/newtron-network/newtflow/pkg/util"
)

// Options selects the Redis server and databases to open.
type Options struct {
	Addr            string
	Password        string
	OperationalDB   int
	ConfigurationDB int
	// Tunnel, when non-nil, connects through SSH and Addr is ignored.
	Tunnel *TunnelConfig
}

// Store holds the two databases newtflow uses: the operational database it
// watches and the configuration database it writes flows to.
type Store struct {
	Operational   *Client
	Configuration *Client

	tunnel    *SSHTunnel
	closeOnce sync.Once
}

// Open connects to both databases, through an SSH tunnel if configured.
func Open(ctx context.Context, opts Options) (*Store, error) {
	s := &Store{}

	addr := opts.Addr
	if opts.Tunnel != nil {
		tun, err := NewSSHTunnel(*opts.Tunnel)
		if err != nil {
			return nil, fmt.Errorf("SSH tunnel to %s: %w", opts.Tunnel.Host, err)
		}
		s.tunnel = tun
		addr = tun.LocalAddr()
	}

	s.Operational = NewClient(addr, opts.Password, opts.OperationalDB)
	if err := s.Operational.Connect(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("connecting to operational db %d at %s: %w", opts.OperationalDB, addr, err)
	}

	s.Configuration = NewClient(addr, opts.Password, opts.ConfigurationDB)
	if err := s.Configuration.Connect(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("connecting to configuration db %d at %s: %w", opts.ConfigurationDB, addr, err)
	}

	util.WithField("addr", addr).Info("Connected")
	return s, nil
}

// Close closes both connections and the tunnel. Safe to call more than once.
func (s *Store) Close() error {
	var firstErr error
	s.closeOnce.Do(func() {
		for _, c := range []*Client{s.Operational, s.Configuration} {
			if c == nil {
				continue
			}
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if s.tunnel != nil {
			if err := s.tunnel.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
