package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var ErrConnectorClosed = errors.New("store connector is closed")

// DialFunc establishes a new store handle.
type DialFunc func(ctx context.Context) (Store, error)

// Connector hands out one process-wide Store, dialing it lazily on first use.
// Concurrent callers share a single in-flight dial; a failed dial is not
// cached, so the next call tries again.
type Connector struct {
	dial  DialFunc
	group singleflight.Group

	mu     sync.RWMutex
	store  Store
	closed bool
}

func NewConnector(dial DialFunc) *Connector {
	return &Connector{dial: dial}
}

// Get returns the cached store or dials a new one.
func (c *Connector) Get(ctx context.Context) (Store, error) {
	c.mu.RLock()
	s, closed := c.store, c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrConnectorClosed
	}
	if s != nil {
		return s, nil
	}

	v, err, _ := c.group.Do("connect", func() (interface{}, error) {
		c.mu.RLock()
		cached := c.store
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		// The dial outlives any single caller's context.
		dialed, err := c.dial(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			if err := dialed.Close(); err != nil {
				log.WithError(err).Warn("Failed to close store dialed after shutdown")
			}
			return nil, ErrConnectorClosed
		}
		c.store = dialed
		c.mu.Unlock()
		log.Info("Database connection established")
		return dialed, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	return v.(Store), nil
}

// Close releases the cached store, if any. Later calls to Get fail with
// ErrConnectorClosed, and a dial still in flight has its handle closed.
func (c *Connector) Close() error {
	c.mu.Lock()
	s := c.store
	c.store = nil
	c.closed = true
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close()
}
