// Package rwlock provides a ticket based reader-writer spin lock.
//
// Requests are served strictly in arrival order: a reader that arrives after a
// queued writer waits for that writer, so writers cannot be starved by a steady
// stream of readers. Waiting is a busy loop that yields to the scheduler after
// a bounded number of spins. Keep critical sections short.
package rwlock

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

const spinTries = 64

// TicketLock is a fair reader-writer spin lock. The zero value is unlocked.
//
// users hands out tickets, read is the next ticket allowed to enter as a
// reader, write is the next ticket allowed to enter as a writer.
type TicketLock struct {
	users atomic.Uint32
	read  atomic.Uint32
	write atomic.Uint32
}

func New() *TicketLock {
	return &TicketLock{}
}

// Size reports the in-memory size of one lock in bytes.
func Size() int {
	return int(unsafe.Sizeof(TicketLock{}))
}

// Lock acquires the lock exclusively.
func (l *TicketLock) Lock() {
	ticket := l.users.Add(1) - 1
	var b backoff
	for l.write.Load() != ticket {
		b.wait()
	}
}

// Unlock releases an exclusive hold.
func (l *TicketLock) Unlock() {
	l.read.Add(1)
	l.write.Add(1)
}

// RLock acquires the lock in shared mode. Readers that hold consecutive
// tickets enter together.
func (l *TicketLock) RLock() {
	ticket := l.users.Add(1) - 1
	var b backoff
	for l.read.Load() != ticket {
		b.wait()
	}
	l.read.Add(1)
}

// RUnlock releases a shared hold.
func (l *TicketLock) RUnlock() {
	l.write.Add(1)
}

// TryLock acquires the lock exclusively only if nobody holds or waits for it.
func (l *TicketLock) TryLock() bool {
	u := l.users.Load()
	if l.write.Load() != u {
		return false
	}
	return l.users.CompareAndSwap(u, u+1)
}

// TryRLock acquires a shared hold only if no writer holds or waits for the lock.
func (l *TicketLock) TryRLock() bool {
	u := l.users.Load()
	if l.read.Load() != u {
		return false
	}
	if !l.users.CompareAndSwap(u, u+1) {
		return false
	}
	l.read.Add(1)
	return true
}

// RLocker returns a sync.Locker that takes the lock in shared mode.
func (l *TicketLock) RLocker() sync.Locker {
	return (*rlocker)(l)
}

type rlocker TicketLock

func (r *rlocker) Lock()   { (*TicketLock)(r).RLock() }
func (r *rlocker) Unlock() { (*TicketLock)(r).RUnlock() }

type backoff struct {
	spins int
}

func (b *backoff) wait() {
	if b.spins < spinTries {
		b.spins++
		return
	}
	runtime.Gosched()
}
