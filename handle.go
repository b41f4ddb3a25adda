package slotpool

import "sync/atomic"

// InvalidId is the identity of an empty or released Handle.
const InvalidId = -1

// Handle is one counted reference to a slot of an AutoPool. The zero value is an empty Handle.
//
// Use Clone, Assign or Move to share or hand over a reference. A Handle copied by value is an
// alias of the same reference, not a new one: releasing either releases both. Every reference
// obtained from MakeHandle, MakeHandles, Clone or Assign must be given up with Release (or
// transferred with Move) exactly once; Release on an already empty Handle does nothing.
//
// A Handle must not be used after its pool has been shut down, and a single *Handle must not be
// used from more than one goroutine at a time. Distinct Handles to the same slot may be used
// concurrently.
type Handle[T any] struct {
	noCopy noCopy
	r      *reference[T]
}

// reference is shared by a Handle and any value copies of it, so the reference it stands for can
// only be dropped once.
type reference[T any] struct {
	pool  *AutoPool[T]
	index int
	live  int32
}

func newHandle[T any](pool *AutoPool[T], index int) *Handle[T] {
	return &Handle[T]{r: &reference[T]{pool: pool, index: index, live: 1}}
}

func (self *Handle[T]) Id() int {
	if !self.Valid() {
		return InvalidId
	}
	return self.r.index
}

func (self *Handle[T]) Valid() bool {
	return self != nil && self.r != nil && atomic.LoadInt32(&self.r.live) == 1
}

// Value returns the slot's stored value. The value itself is not synchronized.
func (self *Handle[T]) Value() (*T, error) {
	if !self.Valid() {
		return nil, ErrInvalidHandle
	}
	return &self.r.pool.entry(self.r.index).value, nil
}

// Clone returns a new reference to the same slot. Cloning an empty Handle yields an empty Handle.
func (self *Handle[T]) Clone() *Handle[T] {
	if !self.Valid() {
		return &Handle[T]{}
	}
	self.r.pool.ref(self.r.index)
	return newHandle(self.r.pool, self.r.index)
}

// Assign makes self reference the slot held by other, releasing whatever self referenced before.
// The new reference is taken before the old one is dropped, so assigning between two Handles to
// the same slot never releases it.
func (self *Handle[T]) Assign(other *Handle[T]) {
	if self == other || (other != nil && self.r != nil && self.r == other.r) {
		return
	}
	var next *reference[T]
	if other.Valid() {
		other.r.pool.ref(other.r.index)
		next = &reference[T]{pool: other.r.pool, index: other.r.index, live: 1}
	}
	self.Release()
	self.r = next
}

// Move transfers the reference to a new Handle, leaving self empty.
func (self *Handle[T]) Move() *Handle[T] {
	if self == nil || self.r == nil || !atomic.CompareAndSwapInt32(&self.r.live, 1, 0) {
		return &Handle[T]{}
	}
	return newHandle(self.r.pool, self.r.index)
}

// Release drops the reference. The slot goes back to the pool when its last reference is released.
func (self *Handle[T]) Release() {
	if self == nil || self.r == nil || !atomic.CompareAndSwapInt32(&self.r.live, 1, 0) {
		return
	}
	self.r.pool.unref(self.r.index)
}

// noCopy lets go vet's copylocks check flag Handles copied by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
