package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gwi.com/deepchat/internal/store"
)

func newTestConnector(t *testing.T) *store.Connector {
	t.Helper()
	path := filepath.Join(t.TempDir(), "core.db")
	c := store.NewConnector(func(ctx context.Context) (store.Store, error) {
		return store.NewSQLiteStore(path)
	})
	t.Cleanup(func() { c.Close() })
	return c
}

func mustStore(t *testing.T, c *store.Connector) store.Store {
	t.Helper()
	s, err := c.Get(context.Background())
	require.NoError(t, err)
	return s
}

// scriptedProvider replays fragments, then returns err.
type scriptedProvider struct {
	fragments []string
	err       error
	prompts   []string
}

func (p *scriptedProvider) StreamCompletion(ctx context.Context, prompt string, onFragment func(string) error) error {
	p.prompts = append(p.prompts, prompt)
	for _, f := range p.fragments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onFragment(f); err != nil {
			return err
		}
	}
	return p.err
}

// blockingProvider emits nothing until its context is done.
type blockingProvider struct{}

func (blockingProvider) StreamCompletion(ctx context.Context, prompt string, onFragment func(string) error) error {
	<-ctx.Done()
	return ctx.Err()
}
