package ecs

// Handle is a non-owning (slot index, generation) reference. It resolves to the
// slot's occupant only while the captured generation matches; after the occupant
// is freed, or the slot is reused, it resolves to nothing. The zero Handle is
// empty.
type Handle struct {
	slots *SlotTable
	id    EntityID
}

// HandleOf captures id against t.
func HandleOf(t *SlotTable, id EntityID) Handle {
	var h Handle
	h.Assign(t, id)
	return h
}

// Resolve returns the live occupant, or false when the handle is empty or stale.
func (h Handle) Resolve() (any, bool) {
	if h.slots == nil || h.id == 0 {
		return nil, false
	}
	return h.slots.Get(h.id)
}

// Assign captures the current generation of the slot named by id. A zero id,
// a nil table or an id that is no longer live clears the handle.
func (h *Handle) Assign(t *SlotTable, id EntityID) {
	if t == nil || id == 0 || !t.Alive(id) {
		h.Clear()
		return
	}
	h.slots = t
	h.id = id
}

func (h *Handle) Clear() {
	h.slots = nil
	h.id = 0
}

// ID returns the captured id (zero when empty). It may be stale.
func (h Handle) ID() EntityID  { return h.id }
func (h Handle) Index() uint32 { return h.id.Index() }
func (h Handle) IsEmpty() bool { return h.id == 0 }
func (h Handle) Valid() bool   { _, ok := h.Resolve(); return ok }
