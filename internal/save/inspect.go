package save

import (
	"fmt"

	"github.com/l1jgo/worldstate/internal/field"
)

// FieldInfo describes one field record inside a block.
type FieldInfo struct {
	Name  string
	Kind  field.Kind
	Count int
	Size  int
}

// BlockInfo describes one named block of a block group.
type BlockInfo struct {
	Name   string
	Fields []FieldInfo
}

// RowBlocks lists the blocks written for entity table row idx.
func (b *Buffer) RowBlocks(idx int32) ([]BlockInfo, error) {
	if !b.Reading() {
		return nil, ErrBufferInvalid
	}
	row := b.ents.Row(idx)
	if row == nil || !row.HasData() {
		return nil, nil
	}
	return b.blocks(Span{Location: row.Location, Size: row.Size})
}

// SectionBlocks lists the blocks of a named section.
func (b *Buffer) SectionBlocks(name string) ([]BlockInfo, error) {
	if !b.Reading() {
		return nil, ErrBufferInvalid
	}
	span, ok := b.sections[name]
	if !ok {
		return nil, nil
	}
	return b.blocks(span)
}

func (b *Buffer) blocks(span Span) ([]BlockInfo, error) {
	start, end := int(span.Location), int(span.Location)+int(span.Size)
	if start < 0 || end > len(b.raw) || start > end {
		return nil, fmt.Errorf("blocks [%d,%d): %w", start, end, ErrTruncated)
	}
	var out []BlockInfo
	d := decoder{data: b.raw[:end], off: start}
	for d.off < end {
		name, _ := b.strs.Lookup(d.u32())
		payload := d.raw(int(d.u32()))
		if d.err != nil {
			return out, fmt.Errorf("block %q: %w", name, d.err)
		}
		blk := BlockInfo{Name: name}
		p := decoder{data: payload}
		n := int(p.u16())
		for i := 0; i < n && p.err == nil; i++ {
			fname, _ := b.strs.Lookup(p.u32())
			fi := FieldInfo{Name: fname, Kind: field.Kind(p.u8()), Count: int(p.u16())}
			fi.Size = int(p.u32())
			p.skip(fi.Size)
			blk.Fields = append(blk.Fields, fi)
		}
		if p.err != nil {
			return out, fmt.Errorf("block %q: %w", name, p.err)
		}
		out = append(out, blk)
	}
	return out, nil
}
