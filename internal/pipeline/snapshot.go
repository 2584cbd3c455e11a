package pipeline

import "sync/atomic"

// SnapshotHolder publishes the current reference tables to concurrent
// readers. Runs in flight keep whatever snapshot they loaded; a swap only
// affects runs that start afterwards.
type SnapshotHolder struct {
	cur atomic.Pointer[Tables]
}

// NewSnapshotHolder seeds the holder with an initial validated bundle.
func NewSnapshotHolder(t *Tables) (*SnapshotHolder, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	h := &SnapshotHolder{}
	h.cur.Store(t)
	return h, nil
}

// Load returns the current snapshot.
func (h *SnapshotHolder) Load() *Tables {
	return h.cur.Load()
}

// Swap installs a replacement bundle and returns the one it displaced. The
// current snapshot stays in place unless the replacement validates.
func (h *SnapshotHolder) Swap(t *Tables) (*Tables, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return h.cur.Swap(t), nil
}
