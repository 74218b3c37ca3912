package reconcile

import (
	"context"

	"github.com/puzpuzpuz/xsync/v4"
)

// Manager keeps one Engine per viewer. Opening a poll for a viewer stops whatever that
// viewer was reconciling before.
type Manager struct {
	ctx     context.Context
	client  Client
	cfg     Config
	engines *xsync.Map[string, *Engine]
}

func NewManager(ctx context.Context, client Client, cfg Config) *Manager {
	return &Manager{
		ctx:     ctx,
		client:  client,
		cfg:     cfg,
		engines: xsync.NewMap[string, *Engine](),
	}
}

// Open starts reconciling pollID for viewer.
func (m *Manager) Open(viewer string, pollID uint64) *Engine {
	e := Start(m.ctx, pollID, m.client, m.cfg)
	if old, loaded := m.engines.LoadAndStore(viewer, e); loaded {
		old.Stop()
	}
	return e
}

// Get returns the engine of viewer.
func (m *Manager) Get(viewer string) (*Engine, bool) {
	return m.engines.Load(viewer)
}

// Close stops the engine of viewer, if any.
func (m *Manager) Close(viewer string) {
	if e, ok := m.engines.LoadAndDelete(viewer); ok {
		e.Stop()
	}
}

// CloseAll stops every engine.
func (m *Manager) CloseAll() {
	m.engines.Range(func(viewer string, _ *Engine) bool {
		m.Close(viewer)
		return true
	})
}

// Len returns the number of registered viewers.
func (m *Manager) Len() int {
	return m.engines.Size()
}

// Range calls fn for every registered viewer until fn returns false.
func (m *Manager) Range(fn func(viewer string, e *Engine) bool) {
	m.engines.Range(fn)
}
