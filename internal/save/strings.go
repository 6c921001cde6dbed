package save

import "github.com/cespare/xxhash/v2"

// StringTable interns strings written into a save. Id 0 is always the empty
// string. Lookups go through xxhash buckets; collisions compare the text.
type StringTable struct {
	strs    []string
	buckets map[uint64][]uint32
}

func NewStringTable() *StringTable {
	return &StringTable{
		strs:    []string{""},
		buckets: make(map[uint64][]uint32, 256),
	}
}

// Intern returns the id of s, adding it on first use.
func (t *StringTable) Intern(s string) uint32 {
	if s == "" {
		return 0
	}
	h := xxhash.Sum64String(s)
	for _, id := range t.buckets[h] {
		if t.strs[id] == s {
			return id
		}
	}
	id := uint32(len(t.strs))
	t.strs = append(t.strs, s)
	t.buckets[h] = append(t.buckets[h], id)
	return id
}

// Lookup returns the string for id.
func (t *StringTable) Lookup(id uint32) (string, bool) {
	if int(id) >= len(t.strs) {
		return "", false
	}
	return t.strs[id], true
}

// ID returns the id of an already-interned string.
func (t *StringTable) ID(s string) (uint32, bool) {
	if s == "" {
		return 0, true
	}
	for _, id := range t.buckets[xxhash.Sum64String(s)] {
		if t.strs[id] == s {
			return id, true
		}
	}
	return 0, false
}

// Len counts interned strings, including the empty string.
func (t *StringTable) Len() int { return len(t.strs) }

// Strings returns the table in id order.
func (t *StringTable) Strings() []string { return t.strs }

func (t *StringTable) encode(e *encoder) {
	e.u32(uint32(len(t.strs) - 1))
	for _, s := range t.strs[1:] {
		e.str(s)
	}
}

func decodeStringTable(d *decoder) *StringTable {
	t := NewStringTable()
	n := int(d.u32())
	for i := 0; i < n && d.err == nil; i++ {
		s := d.str()
		id := uint32(len(t.strs))
		t.strs = append(t.strs, s)
		h := xxhash.Sum64String(s)
		t.buckets[h] = append(t.buckets[h], id)
	}
	return t
}
