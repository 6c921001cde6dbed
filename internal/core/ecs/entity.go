package ecs

import "errors"

// ErrSlotsExhausted is returned by Alloc when every slot is occupied.
var ErrSlotsExhausted = errors.New("ecs: slot table exhausted")

// NoIndex is the slot index carried by an empty handle.
const NoIndex = ^uint32(0)

// EntityID encodes a 32-bit slot index in the lower bits and a 32-bit generation
// in the upper bits. Generations start at 1, so the zero EntityID never names a
// live slot.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32 {
	if id == 0 {
		return NoIndex
	}
	return uint32(id)
}

func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

type slot struct {
	generation uint32
	occupant   any
	live       bool
}

// SlotTable is a fixed-capacity array of object slots with generational indices
// and a free list. Single-goroutine access only (simulation thread).
type SlotTable struct {
	slots    []slot
	freeList []uint32
	capacity int
	live     int
	onFree   func(id EntityID, occupant any)
}

func NewSlotTable(capacity int) *SlotTable {
	if capacity <= 0 {
		capacity = 1
	}
	return &SlotTable{
		slots:    make([]slot, 0, min(capacity, 1024)),
		freeList: make([]uint32, 0, 256),
		capacity: capacity,
	}
}

// OnFree registers the callback run for every freed occupant, before the slot's
// generation is bumped. It releases state the core attached to the occupant.
func (t *SlotTable) OnFree(fn func(id EntityID, occupant any)) {
	t.onFree = fn
}

// Alloc stores occupant in a free slot and returns its id.
func (t *SlotTable) Alloc(occupant any) (EntityID, error) {
	if len(t.freeList) > 0 {
		idx := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		s := &t.slots[idx]
		s.occupant = occupant
		s.live = true
		t.live++
		return NewEntityID(idx, s.generation), nil
	}
	if len(t.slots) >= t.capacity {
		return 0, ErrSlotsExhausted
	}
	idx := uint32(len(t.slots))
	t.slots = append(t.slots, slot{generation: 1, occupant: occupant, live: true})
	t.live++
	return NewEntityID(idx, 1), nil
}

// Free releases the slot named by id. Stale or unknown ids are ignored.
func (t *SlotTable) Free(id EntityID) bool {
	idx := id.Index()
	if idx >= uint32(len(t.slots)) {
		return false
	}
	s := &t.slots[idx]
	if !s.live || s.generation != id.Generation() {
		return false // already freed (stale reference)
	}
	if t.onFree != nil {
		t.onFree(id, s.occupant)
	}
	s.occupant = nil
	s.live = false
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	t.live--
	t.freeList = append(t.freeList, idx)
	return true
}

// Alive reports whether id still names the current occupant of its slot.
func (t *SlotTable) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= uint32(len(t.slots)) {
		return false
	}
	s := &t.slots[idx]
	return s.live && s.generation == id.Generation()
}

// Get returns the occupant named by id, or false if the id is stale.
func (t *SlotTable) Get(id EntityID) (any, bool) {
	if !t.Alive(id) {
		return nil, false
	}
	return t.slots[id.Index()].occupant, true
}

// Generation returns the live generation of the slot at index (0 if never used).
func (t *SlotTable) Generation(index uint32) uint32 {
	if index >= uint32(len(t.slots)) {
		return 0
	}
	return t.slots[index].generation
}

// At returns the current id and occupant of the slot at index.
func (t *SlotTable) At(index uint32) (EntityID, any, bool) {
	if index >= uint32(len(t.slots)) {
		return 0, nil, false
	}
	s := &t.slots[index]
	if !s.live {
		return 0, nil, false
	}
	return NewEntityID(index, s.generation), s.occupant, true
}

// Each visits live slots in index order until fn returns false.
func (t *SlotTable) Each(fn func(EntityID, any) bool) {
	for i := range t.slots {
		s := &t.slots[i]
		if !s.live {
			continue
		}
		if !fn(NewEntityID(uint32(i), s.generation), s.occupant) {
			return
		}
	}
}

func (t *SlotTable) Len() int      { return t.live }
func (t *SlotTable) Capacity() int { return t.capacity }

// Reset frees every live slot (running the free callback). Generations are kept
// so handles captured before the reset stay stale.
func (t *SlotTable) Reset() {
	for i := range t.slots {
		if t.slots[i].live {
			t.Free(NewEntityID(uint32(i), t.slots[i].generation))
		}
	}
}
