package globals

import (
	"errors"
	"fmt"

	"github.com/l1jgo/worldstate/internal/field"
	"github.com/l1jgo/worldstate/internal/save"
	"go.uber.org/zap"
)

// Section is the save buffer region holding the table.
const Section = "GLOBAL"

type header struct {
	Count int32
}

var headerFields = field.NewTable("GLOBAL",
	field.Integer("count", func(h *header) *int32 { return &h.Count }),
)

var recordFields = field.NewTable("GENT",
	field.String("name", func(r *Record) *string { return &r.Name }),
	field.String("level", func(r *Record) *string { return &r.Level }),
	field.Integer("state", func(r *Record) *int32 { return (*int32)(&r.State) }),
)

// Save writes the table into its own section of a write buffer.
func (t *Table) Save(b *save.Buffer) error {
	if err := b.BeginSection(Section); err != nil {
		return err
	}
	defer b.EndSection()

	h := header{Count: int32(len(t.records))}
	if err := b.Write(&h, headerFields); err != nil {
		return err
	}
	for _, r := range t.records {
		if err := b.Write(r, recordFields); err != nil {
			return fmt.Errorf("save global %q: %w", r.Name, err)
		}
	}
	return nil
}

// Restore replaces the table with the one saved in b. A buffer without a
// global section leaves the table empty.
func (t *Table) Restore(b *save.Buffer) error {
	if !b.Reading() {
		return save.ErrBufferInvalid
	}
	t.Reset()
	if err := b.SeekSection(Section); err != nil {
		if errors.Is(err, save.ErrNoData) {
			return nil
		}
		return err
	}

	var h header
	if err := b.Read(&h, headerFields); err != nil {
		return err
	}
	for i := int32(0); i < h.Count; i++ {
		var r Record
		if err := b.Read(&r, recordFields); err != nil {
			return fmt.Errorf("restore global %d: %w", i, err)
		}
		if r.Name == "" {
			continue
		}
		if err := t.Add(r.Name, r.Level, r.State); err != nil {
			t.log.Error("restored duplicate global entity", zap.String("name", r.Name))
		}
	}
	return nil
}
