package save

import "github.com/l1jgo/worldstate/internal/core/ecs"

// RowFlags describe an entity table row.
type RowFlags uint32

const (
	RowGlobal   RowFlags = 1 << iota // entity declared a global name
	RowMoveable                      // entity travels with a level transition
	RowRemoved                       // entity was freed before its data was written
	RowPlayer                        // entity is a player
)

func (f RowFlags) Has(o RowFlags) bool { return f&o == o }

// Row is one entity table entry: the save-time identity of an object and the
// span of its block group in the data stream. Restored is the id of the object
// recreated for the row during a restore pass and is never persisted.
type Row struct {
	Index     int32
	Classname string
	Saved     ecs.EntityID
	Location  int32 // offset of the block group; -1 when no data was written
	Size      int32
	Flags     RowFlags
	Restored  ecs.EntityID
}

// HasData reports whether the row's object wrote a block group.
func (r *Row) HasData() bool { return r.Location >= 0 && r.Size > 0 }

// EntityTable cross-references save-time object identity and buffer positions.
type EntityTable struct {
	rows   []Row
	bySlot map[ecs.EntityID]int32
}

func NewEntityTable() *EntityTable {
	return &EntityTable{
		rows:   make([]Row, 0, 64),
		bySlot: make(map[ecs.EntityID]int32, 64),
	}
}

// Add appends a row for id, or returns the existing one.
func (t *EntityTable) Add(id ecs.EntityID, classname string, flags RowFlags) int32 {
	if idx, ok := t.bySlot[id]; ok {
		t.rows[idx].Flags |= flags
		return idx
	}
	idx := int32(len(t.rows))
	t.rows = append(t.rows, Row{
		Index:     idx,
		Classname: classname,
		Saved:     id,
		Location:  -1,
		Flags:     flags,
	})
	t.bySlot[id] = idx
	return idx
}

// Find returns the row index recorded for id.
func (t *EntityTable) Find(id ecs.EntityID) (int32, bool) {
	idx, ok := t.bySlot[id]
	return idx, ok
}

// Row returns the row at idx, or nil.
func (t *EntityTable) Row(idx int32) *Row {
	if idx < 0 || int(idx) >= len(t.rows) {
		return nil
	}
	return &t.rows[idx]
}

func (t *EntityTable) Len() int { return len(t.rows) }

// Rows exposes the table in index order.
func (t *EntityTable) Rows() []Row { return t.rows }

func (t *EntityTable) encode(e *encoder, strs *StringTable) {
	e.u32(uint32(len(t.rows)))
	for i := range t.rows {
		r := &t.rows[i]
		e.u32(strs.Intern(r.Classname))
		e.u64(uint64(r.Saved))
		e.i32(r.Location)
		e.i32(r.Size)
		e.u32(uint32(r.Flags))
	}
}

func decodeEntityTable(d *decoder, strs *StringTable) *EntityTable {
	t := NewEntityTable()
	n := int(d.u32())
	for i := 0; i < n && d.err == nil; i++ {
		classTok := d.u32()
		saved := ecs.EntityID(d.u64())
		loc := d.i32()
		size := d.i32()
		flags := RowFlags(d.u32())
		if d.err != nil {
			break
		}
		classname, _ := strs.Lookup(classTok)
		idx := int32(len(t.rows))
		t.rows = append(t.rows, Row{
			Index:     idx,
			Classname: classname,
			Saved:     saved,
			Location:  loc,
			Size:      size,
			Flags:     flags,
		})
		t.bySlot[saved] = idx
	}
	return t
}
