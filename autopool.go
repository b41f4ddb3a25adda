package slotpool

import "sync/atomic"

type entry[T any] struct {
	refs  int32
	value T
}

// AutoPool is an Allocator whose slots are released when the last Handle referencing them is
// released. Only the handle-oriented subset of the Allocator is exposed.
type AutoPool[T any] struct {
	alloc        *Allocator[entry[T]]
	defaultValue T
}

// NewAutoPool creates a pool whose slots all start as a copy of defaultValue. A nil cfg uses
// NewDefaultConfig().
func NewAutoPool[T any](defaultValue T, cfg *Config) (*AutoPool[T], error) {
	alloc, err := newAllocator[entry[T]](cfg, func(_ int, e *entry[T]) { e.value = defaultValue })
	if err != nil {
		return nil, err
	}
	return &AutoPool[T]{alloc: alloc, defaultValue: defaultValue}, nil
}

// MakeHandle reserves a slot and returns the first reference to it.
func (self *AutoPool[T]) MakeHandle() (*Handle[T], error) {
	index, err := self.alloc.Reserve()
	if err != nil {
		return nil, err
	}
	return self.adopt(index), nil
}

func (self *AutoPool[T]) MakeHandles(n int) ([]*Handle[T], error) {
	ids, err := self.alloc.ReserveMultiple(n)
	if err != nil {
		return nil, err
	}
	handles := make([]*Handle[T], 0, len(ids))
	for _, index := range ids {
		handles = append(handles, self.adopt(index))
	}
	return handles, nil
}

func (self *AutoPool[T]) IsInUse(index int) bool {
	return self.alloc.IsInUse(index)
}

func (self *AutoPool[T]) DefaultValue() T {
	return self.defaultValue
}

func (self *AutoPool[T]) Capacity() int {
	return self.alloc.Capacity()
}

func (self *AutoPool[T]) Stats() Stats {
	return self.alloc.Stats()
}

func (self *AutoPool[T]) Id() string {
	return self.alloc.Id()
}

func (self *AutoPool[T]) Shutdown() {
	self.alloc.Shutdown()
}

func (self *AutoPool[T]) adopt(index int) *Handle[T] {
	atomic.StoreInt32(&self.entry(index).refs, 1)
	return newHandle(self, index)
}

func (self *AutoPool[T]) entry(index int) *entry[T] {
	table := self.alloc.store.load()
	return &self.alloc.store.slot(table, index).value
}

func (self *AutoPool[T]) ref(index int) {
	atomic.AddInt32(&self.entry(index).refs, 1)
}

// unref drops one reference. A drop against an unreferenced slot is reported as a double release
// and ignored, so the count never goes below zero.
func (self *AutoPool[T]) unref(index int) {
	e := self.entry(index)
	for {
		refs := atomic.LoadInt32(&e.refs)
		if refs < 1 {
			self.alloc.ii.DoubleRelease(index)
			return
		}
		if atomic.CompareAndSwapInt32(&e.refs, refs, refs-1) {
			if refs == 1 {
				self.resetObject(index)
			}
			return
		}
	}
}

// resetObject returns an unreferenced slot to the allocator. The stored value is left as is.
func (self *AutoPool[T]) resetObject(index int) {
	_ = self.alloc.Release(index)
}

func (self *AutoPool[T]) refs(index int) int32 {
	return atomic.LoadInt32(&self.entry(index).refs)
}
