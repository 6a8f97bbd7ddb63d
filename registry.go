package artree

import (
	"sync"

	"github.com/AfshinJalili/artree/internal/rwlock"
)

// Handle is an opaque reference to a lock or tree owned by a Registry. The
// zero Handle is never issued.
type Handle uint64

// Registry is the handle based surface a host adapter calls into. It owns
// every lock and tree it creates until they are destroyed. Tree values are
// pointer sized words.
//
// Using a lock handle in the wrong mode (releasing what is not held,
// acquiring twice from one caller) is not detected.
type Registry struct {
	mu    sync.RWMutex
	next  Handle
	locks map[Handle]*rwlock.TicketLock
	trees map[Handle]*Tree[uint64]
	opts  []Option
	log   Logger
}

// NewRegistry returns an empty registry. opts apply to every tree it creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		locks: make(map[Handle]*rwlock.TicketLock),
		trees: make(map[Handle]*Tree[uint64]),
		opts:  opts,
		log:   applyOptions(opts).Logger,
	}
}

func (r *Registry) issue() Handle {
	r.next++
	return r.next
}

// LockSize is the in-memory size of one lock in bytes.
func (r *Registry) LockSize() int {
	return rwlock.Size()
}

func (r *Registry) LockCreate() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.issue()
	r.locks[h] = rwlock.New()
	return h
}

func (r *Registry) LockDestroy(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locks[h]; !ok {
		logf(r.log, "artree: destroy of unknown lock handle %d", h)
		return ErrInvalidHandle
	}
	delete(r.locks, h)
	return nil
}

func (r *Registry) lock(h Handle) (*rwlock.TicketLock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.locks[h]
	if !ok {
		return nil, ErrInvalidHandle
	}
	return l, nil
}

// LockAcquireExclusive spins until the lock is held exclusively. The registry
// mutex is not held while spinning.
func (r *Registry) LockAcquireExclusive(h Handle) error {
	l, err := r.lock(h)
	if err != nil {
		return err
	}
	l.Lock()
	return nil
}

func (r *Registry) LockReleaseExclusive(h Handle) error {
	l, err := r.lock(h)
	if err != nil {
		return err
	}
	l.Unlock()
	return nil
}

func (r *Registry) LockAcquireShared(h Handle) error {
	l, err := r.lock(h)
	if err != nil {
		return err
	}
	l.RLock()
	return nil
}

func (r *Registry) LockReleaseShared(h Handle) error {
	l, err := r.lock(h)
	if err != nil {
		return err
	}
	l.RUnlock()
	return nil
}

func (r *Registry) TreeInit() Handle {
	t := New[uint64](r.opts...)
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.issue()
	r.trees[h] = t
	return h
}

// TreeDestroy releases every node of the tree and invalidates h.
func (r *Registry) TreeDestroy(h Handle) error {
	r.mu.Lock()
	t, ok := r.trees[h]
	delete(r.trees, h)
	r.mu.Unlock()
	if !ok {
		logf(r.log, "artree: destroy of unknown tree handle %d", h)
		return ErrInvalidHandle
	}
	return t.Close()
}

func (r *Registry) tree(h Handle) (*Tree[uint64], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trees[h]
	if !ok {
		return nil, ErrInvalidHandle
	}
	return t, nil
}

// TreeInsert stores value under key and returns the value it replaced.
func (r *Registry) TreeInsert(h Handle, key []byte, value uint64) (prev uint64, replaced bool, err error) {
	t, err := r.tree(h)
	if err != nil {
		return 0, false, err
	}
	return t.Insert(key, value)
}

// TreeInsertNoReplace stores value only when key is absent. found reports
// that key was present, existing is its unchanged value.
func (r *Registry) TreeInsertNoReplace(h Handle, key []byte, value uint64) (existing uint64, found bool, err error) {
	t, err := r.tree(h)
	if err != nil {
		return 0, false, err
	}
	return t.InsertNoReplace(key, value)
}

func (r *Registry) TreeDelete(h Handle, key []byte) (uint64, bool, error) {
	t, err := r.tree(h)
	if err != nil {
		return 0, false, err
	}
	v, ok := t.Delete(key)
	return v, ok, nil
}

func (r *Registry) TreeLookup(h Handle, key []byte) (uint64, bool, error) {
	t, err := r.tree(h)
	if err != nil {
		return 0, false, err
	}
	v, ok := t.Lookup(key)
	return v, ok, nil
}

func (r *Registry) TreeByteSize(h Handle) (int64, error) {
	t, err := r.tree(h)
	if err != nil {
		return 0, err
	}
	return t.Bytes(), nil
}

func (r *Registry) TreeSize(h Handle) (int, error) {
	t, err := r.tree(h)
	if err != nil {
		return 0, err
	}
	return t.Len(), nil
}

func (r *Registry) TreeMinimum(h Handle) ([]byte, uint64, bool, error) {
	t, err := r.tree(h)
	if err != nil {
		return nil, 0, false, err
	}
	k, v, ok := t.Min()
	return k, v, ok, nil
}

func (r *Registry) TreeMaximum(h Handle) ([]byte, uint64, bool, error) {
	t, err := r.tree(h)
	if err != nil {
		return nil, 0, false, err
	}
	k, v, ok := t.Max()
	return k, v, ok, nil
}
