package stress

import (
	"github.com/emirpasic/gods/trees/btree"
	"github.com/emirpasic/gods/utils"
	"github.com/pkg/errors"
	"sync"
)

// ledger records every index currently held by a worker, catching an index handed to two holders
// at once.
type ledger struct {
	lock sync.Mutex
	tree *btree.Tree
	peak int
}

func newLedger() *ledger {
	return &ledger{tree: btree.NewWith(32, utils.IntComparator)}
}

func (self *ledger) claim(holder int, ids ...int) error {
	self.lock.Lock()
	defer self.lock.Unlock()

	for _, id := range ids {
		if other, found := self.tree.Get(id); found {
			return errors.Errorf("index [%d] held by [%d] and [%d]", id, other, holder)
		}
		self.tree.Put(id, holder)
	}
	if size := self.tree.Size(); size > self.peak {
		self.peak = size
	}
	return nil
}

// release must be called before the index goes back to the pool.
func (self *ledger) release(holder int, ids ...int) error {
	self.lock.Lock()
	defer self.lock.Unlock()

	for _, id := range ids {
		other, found := self.tree.Get(id)
		if !found {
			return errors.Errorf("index [%d] released by [%d] but not held", id, holder)
		}
		if other.(int) != holder {
			return errors.Errorf("index [%d] released by [%d] but held by [%d]", id, holder, other)
		}
		self.tree.Remove(id)
	}
	return nil
}

func (self *ledger) highWater() int {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.peak
}
