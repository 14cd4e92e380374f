// Package directory maps filenames to the nodes that announced them.
package directory

import (
	"sort"
	"sync"
	"time"

	"vmstore/pkg/types"

	"github.com/emirpasic/gods/sets/linkedhashset"
)

// LivenessChecker resolves whether an owner is currently online.
type LivenessChecker interface {
	IsOnline(id types.NodeID) bool
}

type entry struct {
	owners     *linkedhashset.Set // of types.Location
	uploadTime time.Time
}

// Directory is safe for concurrent use. Lock order is directory then
// registry: liveness checks may run while the directory lock is held, the
// registry never calls back into the directory.
type Directory struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	liveness LivenessChecker
	now      func() time.Time
}

type Option func(*Directory)

func WithClock(now func() time.Time) Option {
	return func(d *Directory) {
		d.now = now
	}
}

func New(liveness LivenessChecker, opts ...Option) *Directory {
	d := &Directory{
		entries:  make(map[string]*entry),
		liveness: liveness,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Announce records owner as a holder of filename and stamps the upload time.
// Owners are deduplicated by the full (id, address, port) triple.
func (d *Directory) Announce(filename string, owner types.Location) time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[filename]
	if !ok {
		e = &entry{owners: linkedhashset.New()}
		d.entries[filename] = e
	}
	e.owners.Add(owner)
	e.uploadTime = d.now()
	return e.uploadTime
}

// Locations returns the owners of filename that are online right now. An
// unknown filename yields an empty result.
func (d *Directory) Locations(filename string) []types.Location {
	d.mu.RLock()
	e, ok := d.entries[filename]
	if !ok {
		d.mu.RUnlock()
		return nil
	}
	owners := ownersOf(e)
	d.mu.RUnlock()

	return d.online(owners)
}

// ListVisible returns, sorted, every filename with at least one online owner.
func (d *Directory) ListVisible() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var names []string
	for name, e := range d.entries {
		if d.hasOnlineOwner(e) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Delete removes the entry regardless of owner liveness.
func (d *Directory) Delete(filename string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[filename]; !ok {
		return false
	}
	delete(d.entries, filename)
	return true
}

// EvictIfOrphaned removes filename iff none of its owners is online.
func (d *Directory) EvictIfOrphaned(filename string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[filename]
	if !ok || d.hasOnlineOwner(e) {
		return false
	}
	delete(d.entries, filename)
	return true
}

// EvictOrphans removes every entry without an online owner and returns the
// evicted filenames, sorted.
func (d *Directory) EvictOrphans() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var evicted []string
	for name, e := range d.entries {
		if !d.hasOnlineOwner(e) {
			delete(d.entries, name)
			evicted = append(evicted, name)
		}
	}
	sort.Strings(evicted)
	return evicted
}

// Entry returns a copy of the raw entry, including offline owners.
func (d *Directory) Entry(filename string) (types.FileEntry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.entries[filename]
	if !ok {
		return types.FileEntry{}, false
	}
	return types.FileEntry{
		Name:       filename,
		Owners:     ownersOf(e),
		UploadTime: e.uploadTime,
	}, true
}

// Entries returns copies of every entry, sorted by name, including those
// no online owner serves.
func (d *Directory) Entries() []types.FileEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]types.FileEntry, 0, len(d.entries))
	for name, e := range d.entries {
		out = append(out, types.FileEntry{
			Name:       name,
			Owners:     ownersOf(e),
			UploadTime: e.uploadTime,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

func (d *Directory) hasOnlineOwner(e *entry) bool {
	it := e.owners.Iterator()
	for it.Next() {
		if d.liveness.IsOnline(it.Value().(types.Location).NodeID) {
			return true
		}
	}
	return false
}

func (d *Directory) online(owners []types.Location) []types.Location {
	out := make([]types.Location, 0, len(owners))
	for _, o := range owners {
		if d.liveness.IsOnline(o.NodeID) {
			out = append(out, o)
		}
	}
	return out
}

func ownersOf(e *entry) []types.Location {
	out := make([]types.Location, 0, e.owners.Size())
	for _, v := range e.owners.Values() {
		out = append(out, v.(types.Location))
	}
	return out
}
