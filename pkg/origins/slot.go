package origins

import (
	"sync/atomic"
	"time"
)

// Entry is one cached allow-list together with its expiry.
type Entry struct {
	Set     *Set
	Expires time.Time
}

// Slot holds the single authoritative Entry. Readers observe either the
// previous or the replacement entry, never a partially built one.
type Slot interface {
	Load() (*Entry, bool)
	Store(e *Entry)
	Clear()
}

// atomicSlot is a lock-free Slot; concurrent Stores are last-writer-wins.
type atomicSlot struct {
	p atomic.Pointer[Entry]
}

// NewSlot returns the default in-process Slot.
func NewSlot() Slot { return &atomicSlot{} }

func (s *atomicSlot) Load() (*Entry, bool) {
	e := s.p.Load()
	return e, e != nil
}

func (s *atomicSlot) Store(e *Entry) { s.p.Store(e) }

func (s *atomicSlot) Clear() { s.p.Store(nil) }
