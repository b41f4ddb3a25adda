package slotpool

import (
	"github.com/openziti/slotpool/util"
	"github.com/pkg/errors"
	"sync"
	"sync/atomic"
)

// Allocator hands out stable integer indices into block-structured storage of T. Reservation and
// release are lock-free; only capacity growth takes a lock.
//
// The allocator guarantees that no two live reservations share an index. It does not synchronize
// access to the stored values themselves.
type Allocator[T any] struct {
	hint         int64
	inUse        int64
	reservations int64
	releases     int64

	id       string
	store    *blockStore[T]
	growLock sync.Mutex
	ii       InstrumentInstance
}

type Stats struct {
	Capacity     int
	Blocks       int
	InUse        int64
	Reservations int64
	Releases     int64
}

// NewAllocator creates an allocator whose slots all start as a copy of defaultValue. A nil cfg
// uses NewDefaultConfig().
func NewAllocator[T any](defaultValue T, cfg *Config) (*Allocator[T], error) {
	return newAllocator[T](cfg, func(_ int, v *T) { *v = defaultValue })
}

func newAllocator[T any](cfg *Config, init func(int, *T)) (*Allocator[T], error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	id := cfg.Id
	if id == "" {
		id = util.GenerateId()
	}
	i := cfg.Instrument
	if i == nil {
		i = NewNilInstrument()
	}
	a := &Allocator[T]{
		id:    id,
		store: newBlockStore[T](cfg.BlockSz, cfg.MaxBlocks, init),
		ii:    i.NewInstance(id),
	}
	if err := a.IncreaseCapacity(cfg.InitialCapacity); err != nil {
		a.ii.Shutdown()
		return nil, err
	}
	return a, nil
}

// Reserve claims one free slot and returns its index.
//
// The shared hint is a suggestion for the next free index. A claim that fails at the hint is
// contention: the hint is nudged forward (only if nobody else moved it) and the claim retried at
// the refreshed hint. A hint at or past capacity grows storage by one block first.
func (self *Allocator[T]) Reserve() (int, error) {
	for {
		hint := atomic.LoadInt64(&self.hint)
		table := self.store.load()
		if int(hint) >= table.capacity {
			if err := self.IncreaseCapacity(int(hint) + 1); err != nil {
				if errors.Cause(err) != ErrCapacityExhausted {
					return -1, err
				}
				swept := self.sweep(1)
				if len(swept) == 1 {
					atomic.CompareAndSwapInt64(&self.hint, hint, int64(swept[0])+1)
					self.ii.Reserved(swept[0])
					return swept[0], nil
				}
				self.ii.CapacityExhausted(int(hint) + 1)
				return -1, err
			}
			continue
		}

		if self.claim(table, int(hint)) {
			atomic.CompareAndSwapInt64(&self.hint, hint, hint+1)
			self.ii.Reserved(int(hint))
			return int(hint), nil
		}
		self.ii.Contention(int(hint))
		atomic.CompareAndSwapInt64(&self.hint, hint, hint+1)
	}
}

// ReserveMultiple claims n slots. Each round advances the hint over a window as wide as the
// remaining shortfall in a single step, then claims every free slot inside it. Slots lost to a
// racing caller are made up by further windows. Indices are ascending within a round, rounds are
// concatenated in claim order.
//
// On capacity exhaustion every slot already claimed by the call is released before the error is
// returned.
func (self *Allocator[T]) ReserveMultiple(n int) ([]int, error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "reserve count [%d]", n)
	}
	ids := make([]int, 0, n)
	rounds := 0
	for len(ids) < n {
		width := int64(n - len(ids))
		start, table, err := self.advance(width)
		if err != nil {
			if errors.Cause(err) == ErrCapacityExhausted {
				ids = append(ids, self.sweep(n-len(ids))...)
				if len(ids) == n {
					rounds++
					break
				}
			}
			self.unclaim(ids)
			self.ii.CapacityExhausted(n)
			return nil, err
		}
		rounds++
		for i := start; i < start+width; i++ {
			if self.claim(table, int(i)) {
				ids = append(ids, int(i))
			}
		}
	}
	if n > 0 {
		self.ii.BatchReserved(n, rounds)
	}
	return ids, nil
}

// Release marks index free. If index is below the hint, the hint is lowered to it so the slot is
// rediscovered before untouched higher indices. Releasing a free slot is a no-op.
func (self *Allocator[T]) Release(index int) error {
	table := self.store.load()
	if index < 0 || index >= table.capacity {
		return outOfRange(index, table.capacity)
	}
	if !atomic.CompareAndSwapInt32(&self.store.slot(table, index).inUse, 1, 0) {
		self.ii.DoubleRelease(index)
		return nil
	}
	atomic.AddInt64(&self.inUse, -1)
	atomic.AddInt64(&self.releases, 1)
	self.lowerHint(index)
	self.ii.Released(index)
	return nil
}

func (self *Allocator[T]) IsInUse(index int) bool {
	table := self.store.load()
	if index < 0 || index >= table.capacity {
		return false
	}
	return atomic.LoadInt32(&self.store.slot(table, index).inUse) == 1
}

// At returns the stored value for index. The caller must hold the reservation; the in-use flag is
// not checked.
func (self *Allocator[T]) At(index int) (*T, error) {
	table := self.store.load()
	if index < 0 || index >= table.capacity {
		return nil, outOfRange(index, table.capacity)
	}
	return &self.store.slot(table, index).value, nil
}

// IncreaseCapacity grows storage to hold at least capacity slots. Concurrent callers are
// serialized; whoever arrives after the storage is already large enough does nothing.
func (self *Allocator[T]) IncreaseCapacity(capacity int) error {
	self.growLock.Lock()
	defer self.growLock.Unlock()

	from, to, err := self.store.grow(capacity)
	if err != nil {
		return err
	}
	if to > from {
		self.ii.CapacityIncreased(from, to)
	}
	return nil
}

func (self *Allocator[T]) Capacity() int {
	return self.store.load().capacity
}

func (self *Allocator[T]) BlockSz() int {
	return self.store.blockSz
}

func (self *Allocator[T]) Id() string {
	return self.id
}

func (self *Allocator[T]) Stats() Stats {
	table := self.store.load()
	return Stats{
		Capacity:     table.capacity,
		Blocks:       len(table.blocks),
		InUse:        atomic.LoadInt64(&self.inUse),
		Reservations: atomic.LoadInt64(&self.reservations),
		Releases:     atomic.LoadInt64(&self.releases),
	}
}

func (self *Allocator[T]) Shutdown() {
	self.ii.Shutdown()
}

func (self *Allocator[T]) claim(table *blockTable[T], index int) bool {
	if atomic.CompareAndSwapInt32(&self.store.slot(table, index).inUse, 0, 1) {
		atomic.AddInt64(&self.inUse, 1)
		atomic.AddInt64(&self.reservations, 1)
		return true
	}
	return false
}

func (self *Allocator[T]) unclaim(ids []int) {
	table := self.store.load()
	for _, index := range ids {
		if atomic.CompareAndSwapInt32(&self.store.slot(table, index).inUse, 1, 0) {
			atomic.AddInt64(&self.inUse, -1)
			atomic.AddInt64(&self.reservations, -1)
			self.lowerHint(index)
		}
	}
}

// advance moves the hint forward by width in one step, growing storage first when the window
// would not fit, and returns the start of the window together with a table covering it.
func (self *Allocator[T]) advance(width int64) (int64, *blockTable[T], error) {
	for {
		start := atomic.LoadInt64(&self.hint)
		table := self.store.load()
		end := start + width
		if end > int64(table.capacity) {
			if err := self.IncreaseCapacity(int(end)); err != nil {
				return 0, nil, err
			}
			continue
		}
		if atomic.CompareAndSwapInt64(&self.hint, start, end) {
			return start, table, nil
		}
	}
}

// sweep scans from index 0 claiming up to n free slots. It only runs once storage can no longer
// grow, picking up slots the hint moved past.
func (self *Allocator[T]) sweep(n int) []int {
	var ids []int
	table := self.store.load()
	for i := 0; i < table.capacity && len(ids) < n; i++ {
		if self.claim(table, i) {
			ids = append(ids, i)
		}
	}
	return ids
}

func (self *Allocator[T]) lowerHint(index int) {
	for {
		hint := atomic.LoadInt64(&self.hint)
		if int64(index) >= hint || atomic.CompareAndSwapInt64(&self.hint, hint, int64(index)) {
			return
		}
	}
}
