package slotpool

import (
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"sync"
	"testing"
)

func TestMakeHandle(t *testing.T) {
	p, err := NewAutoPool("x", nil)
	assert.NoError(t, err)
	assert.Equal(t, "x", p.DefaultValue())

	h0, err := p.MakeHandle()
	assert.NoError(t, err)
	h1, err := p.MakeHandle()
	assert.NoError(t, err)
	h2, err := p.MakeHandle()
	assert.NoError(t, err)
	assert.Equal(t, 0, h0.Id())
	assert.Equal(t, 1, h1.Id())
	assert.Equal(t, 2, h2.Id())

	h0.Release()
	assert.False(t, p.IsInUse(0))

	h3, err := p.MakeHandle()
	assert.NoError(t, err)
	assert.Equal(t, 0, h3.Id())
}

func TestReuse(t *testing.T) {
	p, err := NewAutoPool(0, nil)
	assert.NoError(t, err)

	a, _ := p.MakeHandle()
	b, _ := p.MakeHandle()
	assert.Equal(t, 0, a.Id())
	assert.Equal(t, 1, b.Id())

	a.Release()
	c, _ := p.MakeHandle()
	assert.Equal(t, 0, c.Id())

	d, _ := p.MakeHandle()
	assert.Equal(t, 2, d.Id())
}

func TestHandleValue(t *testing.T) {
	p, err := NewAutoPool("x", nil)
	assert.NoError(t, err)

	h, err := p.MakeHandle()
	assert.NoError(t, err)
	v, err := h.Value()
	assert.NoError(t, err)
	assert.Equal(t, "x", *v)
	*v = "y"

	c := h.Clone()
	cv, err := c.Value()
	assert.NoError(t, err)
	assert.Equal(t, "y", *cv)

	index := h.Id()
	h.Release()
	c.Release()
	assert.False(t, p.IsInUse(index))

	// released values persist into the next occupant
	h, err = p.MakeHandle()
	assert.NoError(t, err)
	assert.Equal(t, index, h.Id())
	v, err = h.Value()
	assert.NoError(t, err)
	assert.Equal(t, "y", *v)
}

func TestEmptyHandle(t *testing.T) {
	var h Handle[string]
	assert.Equal(t, InvalidId, h.Id())
	assert.False(t, h.Valid())
	_, err := h.Value()
	assert.Equal(t, ErrInvalidHandle, errors.Cause(err))
	h.Release()

	c := h.Clone()
	assert.Equal(t, InvalidId, c.Id())
	m := h.Move()
	assert.Equal(t, InvalidId, m.Id())

	var nilHandle *Handle[string]
	assert.Equal(t, InvalidId, nilHandle.Id())
	nilHandle.Release()
}

func TestReleasedHandle(t *testing.T) {
	p, err := NewAutoPool(0, nil)
	assert.NoError(t, err)

	h, _ := p.MakeHandle()
	h.Release()
	assert.Equal(t, InvalidId, h.Id())
	_, err = h.Value()
	assert.Equal(t, ErrInvalidHandle, errors.Cause(err))

	h2, _ := p.MakeHandle()
	assert.Equal(t, 0, h2.Id())
	h.Release()
	assert.True(t, p.IsInUse(0))
	assert.Equal(t, int32(1), p.refs(0))
}

func TestHandleValueCopyAliases(t *testing.T) {
	p, err := NewAutoPool(0, nil)
	assert.NoError(t, err)

	h, _ := p.MakeHandle()
	// the same state a value copy (cp := *h) produces
	cp := &Handle[int]{r: h.r}
	assert.Equal(t, 0, cp.Id())

	h.Release()
	assert.False(t, cp.Valid())
	assert.False(t, p.IsInUse(0))

	other, _ := p.MakeHandle()
	assert.Equal(t, 0, other.Id())
	cp.Release()
	assert.True(t, other.Valid())
	assert.True(t, p.IsInUse(0))
	assert.Equal(t, int32(1), p.refs(0))

	other.Release()
	assert.False(t, p.IsInUse(0))
	assert.Equal(t, int32(0), p.refs(0))
}

func TestUnrefNeverNegative(t *testing.T) {
	i := &countingInstrument{}
	p, err := NewAutoPool(0, &Config{BlockSz: 10, InitialCapacity: 10, Instrument: i})
	assert.NoError(t, err)

	h, _ := p.MakeHandle()
	h.Release()
	assert.Equal(t, int32(0), i.ii.doubleRelease)

	p.unref(0)
	assert.Equal(t, int32(0), p.refs(0))
	assert.Equal(t, int32(1), i.ii.doubleRelease)
	assert.Equal(t, int32(1), i.ii.released)

	next, _ := p.MakeHandle()
	assert.Equal(t, 0, next.Id())
	assert.Equal(t, int32(1), p.refs(0))
	next.Release()
}

func TestCloneBalance(t *testing.T) {
	p, err := NewAutoPool(0, nil)
	assert.NoError(t, err)

	h, _ := p.MakeHandle()
	clones := []*Handle[int]{h}
	for i := 0; i < 9; i++ {
		clones = append(clones, clones[i].Clone())
	}
	assert.Equal(t, int32(10), p.refs(0))

	for i, c := range clones {
		assert.True(t, p.IsInUse(0))
		c.Release()
		assert.Equal(t, int32(9-i), p.refs(0))
	}
	assert.False(t, p.IsInUse(0))
}

func TestMoveBalance(t *testing.T) {
	p, err := NewAutoPool(0, nil)
	assert.NoError(t, err)

	h, _ := p.MakeHandle()
	m := h.Move()
	assert.Equal(t, InvalidId, h.Id())
	assert.Equal(t, 0, m.Id())
	assert.Equal(t, int32(1), p.refs(0))

	h.Release()
	assert.True(t, p.IsInUse(0))

	m.Release()
	assert.False(t, p.IsInUse(0))
	assert.Equal(t, int32(0), p.refs(0))
}

func TestAssignBalance(t *testing.T) {
	p, err := NewAutoPool(0, nil)
	assert.NoError(t, err)

	a, _ := p.MakeHandle()
	b, _ := p.MakeHandle()

	a.Assign(b)
	assert.Equal(t, 1, a.Id())
	assert.False(t, p.IsInUse(0))
	assert.Equal(t, int32(2), p.refs(1))

	a.Assign(a)
	assert.Equal(t, int32(2), p.refs(1))

	c := b.Clone()
	a.Assign(c)
	assert.Equal(t, int32(3), p.refs(1))
	assert.True(t, p.IsInUse(1))

	a.Release()
	b.Release()
	assert.True(t, p.IsInUse(1))
	c.Release()
	assert.False(t, p.IsInUse(1))
	assert.Equal(t, int32(0), p.refs(1))
}

func TestAssignEmpty(t *testing.T) {
	p, err := NewAutoPool(0, nil)
	assert.NoError(t, err)

	a, _ := p.MakeHandle()
	a.Assign(&Handle[int]{})
	assert.Equal(t, InvalidId, a.Id())
	assert.False(t, p.IsInUse(0))

	b, _ := p.MakeHandle()
	var empty Handle[int]
	empty.Assign(b)
	assert.Equal(t, 0, empty.Id())
	assert.Equal(t, int32(2), p.refs(0))
	b.Release()
	empty.Release()
	assert.False(t, p.IsInUse(0))
}

func TestMakeHandles(t *testing.T) {
	p, err := NewAutoPool(0, nil)
	assert.NoError(t, err)

	handles, err := p.MakeHandles(400)
	assert.NoError(t, err)
	assert.Equal(t, 400, len(handles))
	for i, h := range handles {
		assert.Equal(t, i, h.Id())
		assert.Equal(t, int32(1), p.refs(i))
	}
	for _, h := range handles {
		h.Release()
	}
	assert.Equal(t, int64(0), p.Stats().InUse)

	_, err = p.MakeHandles(-1)
	assert.Equal(t, ErrInvalidArgument, errors.Cause(err))
}

func TestAutoPoolExhausted(t *testing.T) {
	p, err := NewAutoPool(0, &Config{BlockSz: 4, MaxBlocks: 1, InitialCapacity: 4})
	assert.NoError(t, err)

	handles, err := p.MakeHandles(4)
	assert.NoError(t, err)
	_, err = p.MakeHandle()
	assert.Equal(t, ErrCapacityExhausted, errors.Cause(err))
	_, err = p.MakeHandles(1)
	assert.Equal(t, ErrCapacityExhausted, errors.Cause(err))

	handles[2].Release()
	h, err := p.MakeHandle()
	assert.NoError(t, err)
	assert.Equal(t, 2, h.Id())
}

func TestConcurrentHandles(t *testing.T) {
	p, err := NewAutoPool(0, nil)
	assert.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				h, err := p.MakeHandle()
				if !assert.NoError(t, err) {
					return
				}
				c := h.Clone()
				done := make(chan struct{})
				go func() {
					c.Release()
					close(done)
				}()
				m := h.Move()
				m.Release()
				<-done
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(0), p.Stats().InUse)
	assert.Equal(t, int64(16000), p.Stats().Releases)
}

func BenchmarkMakeHandle(b *testing.B) {
	p, err := NewAutoPool(0, nil)
	assert.NoError(b, err)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, _ := p.MakeHandle()
		h.Release()
	}
}

func BenchmarkCloneRelease(b *testing.B) {
	p, err := NewAutoPool(0, nil)
	assert.NoError(b, err)
	h, _ := p.MakeHandle()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c := h.Clone()
			c.Release()
		}
	})
}
