package field

import (
	"fmt"

	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// Fold returns the case-folded form used to compare designer keys.
func Fold(s string) string { return fold.String(s) }

// Table is the ordered field list of one object kind (or one section of it).
// Its name is the default block name the serializer writes the fields under.
type Table struct {
	Name   string
	Fields []Descriptor
	index  map[string]int
}

// NewTable builds a table. Duplicate field names (case-insensitive) panic: the
// table is authored once per kind at registration time.
func NewTable(name string, fields ...Descriptor) *Table {
	t := &Table{
		Name:   name,
		Fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i, d := range fields {
		key := Fold(d.Name)
		if _, dup := t.index[key]; dup {
			panic(fmt.Sprintf("field: table %s declares %q twice", name, d.Name))
		}
		t.index[key] = i
	}
	return t
}

// Lookup finds a field by name, ignoring case.
func (t *Table) Lookup(name string) (Descriptor, bool) {
	if t == nil {
		return Descriptor{}, false
	}
	i, ok := t.index[Fold(name)]
	if !ok {
		return Descriptor{}, false
	}
	return t.Fields[i], true
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Fields)
}

// KeyValue applies a designer key/value to obj. It reports false when no
// key/value field of that name exists.
func (t *Table) KeyValue(obj any, key, value string) (bool, error) {
	d, ok := t.Lookup(key)
	if !ok || !d.Flags.Has(FlagKeyValue) {
		return false, nil
	}
	if err := d.Set(obj, value); err != nil {
		return true, err
	}
	return true, nil
}
