// Package handle implements the fixed 256-entry handle table: every
// boxed value.Value holds an index into this table rather than a raw
// pointer, so a backing pointer never escapes the core.
package handle

import (
	"fmt"

	"github.com/arl-lang/arl/internal/ierr"
	"github.com/arl-lang/arl/internal/pool"
	"github.com/arl-lang/arl/internal/value"
)

const numHandles = 256

// Entry is one handle table slot: a base buffer from a pool size
// class, a refcount, and the class it was allocated from (needed to
// return the block to the right free list on release).
type Entry struct {
	Base     []byte
	Refcount uint8
	Class    int8
	ElemTag  uint64
	Elements []value.Value // populated only when ElemTag == mixed
	next     int16         // free-list link; -1 when in use
}

const mixedTag = uint64(value.TagMixed)

// Table is the global array of handles plus the free list threaded
// through Entry.next; the allocator pops from the head.
type Table struct {
	entries  [numHandles]Entry
	freeHead int16
	pool     *pool.Allocator
}

func New(p *pool.Allocator) *Table {
	t := &Table{pool: p}
	for i := range t.entries {
		t.entries[i].next = int16(i + 1)
	}
	t.entries[numHandles-1].next = -1
	t.freeHead = 0
	return t
}

// AllocArray chooses a size class for n elements of the given tag's
// bit width rounded up to 64 bytes, pops a free handle, and sets
// refcount 1.
func (t *Table) AllocArray(tag uint64, n int) (value.Value, error) {
	bits := value.ElementBits[tag]
	nbytes := (n*bits + 7) / 8
	if nbytes == 0 {
		nbytes = 1
	}
	class, err := pool.ClassFor(nbytes)
	if err != nil {
		return 0, err
	}
	buf, err := t.pool.Alloc(class)
	if err != nil {
		return 0, err
	}
	h := t.freeHead
	if h < 0 {
		t.pool.Free(buf, class)
		return 0, ierr.Wrap(ierr.OOM, 0, fmt.Errorf("handle table exhausted: all %d handles live", numHandles))
	}
	e := &t.entries[h]
	t.freeHead = e.next
	e.Base = buf
	e.Refcount = 1
	e.Class = int8(class)
	e.ElemTag = tag
	e.Elements = nil
	e.next = -1
	return value.MakeBoxed(tag, int(h), n, 0, 0), nil
}

// AllocMixed is AllocArray's counterpart for boxed arrays of boxed
// values; Release decrements the contained element handles
// recursively.
func (t *Table) AllocMixed(n int) (value.Value, error) {
	h := t.freeHead
	if h < 0 {
		return 0, ierr.Wrap(ierr.OOM, 0, fmt.Errorf("handle table exhausted: all %d handles live", numHandles))
	}
	e := &t.entries[h]
	t.freeHead = e.next
	e.Refcount = 1
	e.Class = -1
	e.ElemTag = mixedTag
	e.Elements = make([]value.Value, n)
	e.next = -1
	return value.MakeBoxed(mixedTag, int(h), n, 0, 0), nil
}

func (t *Table) Entry(v value.Value) *Entry {
	return &t.entries[value.Handle(v)]
}

// Bytes returns the backing buffer for a boxed scalar-element array.
func (t *Table) Bytes(v value.Value) []byte {
	return t.entries[value.Handle(v)].Base
}

// Retain increments a boxed value's refcount. Atomic values pass
// through untouched. Fails with refcount-overflow past 63, the
// 6-bit field's ceiling.
func (t *Table) Retain(v value.Value) (value.Value, error) {
	if !value.IsBoxed(v) {
		return v, nil
	}
	e := t.Entry(v)
	if e.Refcount >= 63 {
		return v, ierr.Wrap(ierr.Overflow, 0, fmt.Errorf("handle %d refcount already at the 6-bit ceiling (63)", value.Handle(v)))
	}
	e.Refcount++
	return v, nil
}

// Release decrements a boxed value's refcount, returning its block
// to the pool and freeing the handle at refcount zero. Element
// handles of a mixed array are released first.
func (t *Table) Release(v value.Value) {
	if !value.IsBoxed(v) {
		return
	}
	h := value.Handle(v)
	e := &t.entries[h]
	if e.Refcount > 1 {
		e.Refcount--
		return
	}
	for _, elem := range e.Elements {
		t.Release(elem)
	}
	if e.Class >= 0 {
		t.pool.Free(e.Base, int(e.Class))
	}
	*e = Entry{next: t.freeHead}
	t.freeHead = int16(h)
}

// Live reports how many handles are currently allocated, used by
// tests to check that teardown frees everything.
func (t *Table) Live() int {
	n := 0
	for i := range t.entries {
		if t.entries[i].Refcount > 0 {
			n++
		}
	}
	return n
}
