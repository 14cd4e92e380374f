// Package registry holds the authoritative table of known nodes and their
// liveness.
package registry

import (
	"sync"
	"time"

	"vmstore/pkg/types"

	"github.com/emirpasic/gods/maps/treemap"
)

// Registry is safe for concurrent use. Readers always receive copies of the
// stored records.
type Registry struct {
	mu    sync.RWMutex
	nodes *treemap.Map // string(NodeID) -> *types.NodeRecord
	now   func() time.Time
}

type Option func(*Registry)

// WithClock overrides the time source used for lastSeen stamps and staleness
// checks.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		nodes: treemap.NewWithStringComparator(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register upserts a node record and marks it online. Re-registering an id
// overwrites its previous location.
func (r *Registry) Register(id types.NodeID, address string, port int) types.NodeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := &types.NodeRecord{
		ID:       id,
		Address:  address,
		Port:     port,
		Online:   true,
		LastSeen: r.now(),
	}
	r.nodes.Put(string(id), rec)
	return *rec
}

// Heartbeat refreshes lastSeen and forces the node online. It reports false
// for unknown ids and leaves the table untouched.
func (r *Registry) Heartbeat(id types.NodeID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.lookup(id)
	if !ok {
		return false
	}
	rec.LastSeen = r.now()
	rec.Online = true
	return true
}

// SetOffline flips a node offline immediately. lastSeen is kept.
func (r *Registry) SetOffline(id types.NodeID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.lookup(id)
	if !ok {
		return false
	}
	rec.Online = false
	return true
}

func (r *Registry) IsOnline(id types.NodeID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.lookup(id)
	return ok && rec.Online
}

func (r *Registry) Get(id types.NodeID) (types.NodeRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.lookup(id)
	if !ok {
		return types.NodeRecord{}, false
	}
	return *rec, true
}

// Snapshot returns every record ordered by node id.
func (r *Registry) Snapshot() []types.NodeRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.NodeRecord, 0, r.nodes.Size())
	it := r.nodes.Iterator()
	for it.Next() {
		out = append(out, *it.Value().(*types.NodeRecord))
	}
	return out
}

// OnlinePeers returns the online records whose id differs from exclude.
func (r *Registry) OnlinePeers(exclude types.NodeID) []types.NodeRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []types.NodeRecord
	it := r.nodes.Iterator()
	for it.Next() {
		rec := it.Value().(*types.NodeRecord)
		if rec.Online && rec.ID != exclude {
			out = append(out, *rec)
		}
	}
	return out
}

// ExpireStale marks offline every online node whose lastSeen is older than
// timeout and returns the records that transitioned. Nodes already offline are
// never returned again until a heartbeat or registration revives them.
func (r *Registry) ExpireStale(timeout time.Duration) []types.NodeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var expired []types.NodeRecord
	it := r.nodes.Iterator()
	for it.Next() {
		rec := it.Value().(*types.NodeRecord)
		if rec.Online && now.Sub(rec.LastSeen) > timeout {
			rec.Online = false
			expired = append(expired, *rec)
		}
	}
	return expired
}

// Counts returns the number of registered and online nodes.
func (r *Registry) Counts() (registered, online int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it := r.nodes.Iterator()
	for it.Next() {
		registered++
		if it.Value().(*types.NodeRecord).Online {
			online++
		}
	}
	return registered, online
}

func (r *Registry) lookup(id types.NodeID) (*types.NodeRecord, bool) {
	v, ok := r.nodes.Get(string(id))
	if !ok {
		return nil, false
	}
	return v.(*types.NodeRecord), true
}
