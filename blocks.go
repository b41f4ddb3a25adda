package slotpool

import "sync/atomic"

type slot[T any] struct {
	inUse int32
	value T
}

type block[T any] struct {
	slots []slot[T]
}

// blockTable is immutable once published. Growth builds a new table sharing the existing blocks,
// so a reader holding an older table still addresses the same slots.
type blockTable[T any] struct {
	blocks   []*block[T]
	capacity int
}

type blockStore[T any] struct {
	blockSz   int
	maxBlocks int
	init      func(index int, v *T)
	table     atomic.Value
}

func newBlockStore[T any](blockSz, maxBlocks int, init func(int, *T)) *blockStore[T] {
	bs := &blockStore[T]{
		blockSz:   blockSz,
		maxBlocks: maxBlocks,
		init:      init,
	}
	bs.table.Store(&blockTable[T]{})
	return bs
}

func (self *blockStore[T]) load() *blockTable[T] {
	return self.table.Load().(*blockTable[T])
}

func (self *blockStore[T]) slot(t *blockTable[T], index int) *slot[T] {
	return &t.blocks[index/self.blockSz].slots[index%self.blockSz]
}

func (self *blockStore[T]) blocksFor(capacity int) int {
	return (capacity + self.blockSz - 1) / self.blockSz
}

// grow publishes a table holding at least capacity slots, rounded up to whole blocks. It is a
// no-op when the current table is already large enough. Callers must serialize grow.
func (self *blockStore[T]) grow(capacity int) (from, to int, err error) {
	current := self.load()
	need := self.blocksFor(capacity)
	if need <= len(current.blocks) {
		return current.capacity, current.capacity, nil
	}
	if self.maxBlocks > 0 && need > self.maxBlocks {
		return current.capacity, current.capacity, exhausted(capacity, self.maxBlocks*self.blockSz)
	}

	blocks := make([]*block[T], need)
	copy(blocks, current.blocks)
	for b := len(current.blocks); b < need; b++ {
		blk := &block[T]{slots: make([]slot[T], self.blockSz)}
		if self.init != nil {
			base := b * self.blockSz
			for i := range blk.slots {
				self.init(base+i, &blk.slots[i].value)
			}
		}
		blocks[b] = blk
	}
	next := &blockTable[T]{blocks: blocks, capacity: need * self.blockSz}
	self.table.Store(next)
	return current.capacity, next.capacity, nil
}
