package save

import (
	"fmt"
	"math"

	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/core/vec"
	"github.com/l1jgo/worldstate/internal/field"
	"go.uber.org/zap"
)

// Write stores obj's fields under the table's own block name.
func (b *Buffer) Write(obj any, t *field.Table) error {
	return b.WriteFields(t.Name, obj, t.Fields)
}

// Read restores obj's fields from the block named after the table.
func (b *Buffer) Read(obj any, t *field.Table) error {
	return b.ReadFields(t.Name, obj, t.Fields)
}

// WriteFields encodes the described fields of obj as one named block:
//
//	block  = name u32 | length u32 | fieldCount u16 | record*
//	record = name u32 | kind u8 | count u16 | size u32 | data[size]
//
// Strings and function names are written as intern ids, entity references as
// entity table rows, time fields relative to the save time and position fields
// relative to the landmark of a transition save.
func (b *Buffer) WriteFields(block string, obj any, fields []field.Descriptor) error {
	if !b.Writing() {
		return ErrBufferInvalid
	}

	var p encoder
	count := 0
	for _, d := range fields {
		if !d.Applies(obj) {
			b.log.Error("field does not apply to object",
				zap.String("block", block), zap.String("field", d.Name))
			continue
		}
		n := d.Count(obj)
		if n > math.MaxUint16 || !fitsStrings(d, obj) {
			b.log.Error("field too large to save",
				zap.String("block", block), zap.String("field", d.Name), zap.Int("count", n))
			continue
		}
		p.u32(b.strs.Intern(d.Name))
		p.u8(uint8(d.Kind))
		p.u16(uint16(n))
		sizeOff := p.len()
		p.u32(0)
		start := p.len()
		b.writeElems(&p, d, obj)
		p.patchU32(sizeOff, uint32(p.len()-start))
		count++
	}

	b.data.u32(b.strs.Intern(block))
	b.data.u32(uint32(2 + p.len()))
	b.data.u16(uint16(count))
	b.data.bytes(p.buf)
	return nil
}

// fitsStrings reports whether every string element fits a u16 length prefix in
// the string table.
func fitsStrings(d field.Descriptor, obj any) bool {
	if d.Kind != field.KindString && d.Kind != field.KindFunction {
		return true
	}
	for _, s := range field.Elems[string](d, obj) {
		if len(*s) > math.MaxUint16 {
			return false
		}
	}
	return true
}

func (b *Buffer) writeElems(p *encoder, d field.Descriptor, obj any) {
	switch d.Kind {
	case field.KindString, field.KindFunction:
		for _, s := range field.Elems[string](d, obj) {
			p.u32(b.strs.Intern(*s))
		}
	case field.KindFloat:
		for _, f := range field.Elems[float64](d, obj) {
			p.f64(*f)
		}
	case field.KindTime:
		for _, f := range field.Elems[float64](d, obj) {
			if *f == 0 {
				p.u8(0)
				p.f64(0)
				continue
			}
			p.u8(1)
			p.f64(*f - b.Header.Time)
		}
	case field.KindInteger:
		for _, n := range field.Elems[int32](d, obj) {
			p.i32(*n)
		}
	case field.KindBoolean:
		for _, v := range field.Elems[bool](d, obj) {
			if *v {
				p.u8(1)
			} else {
				p.u8(0)
			}
		}
	case field.KindVector:
		for _, v := range field.Elems[vec.Vec3](d, obj) {
			p.vec3(*v)
		}
	case field.KindPosition:
		for _, v := range field.Elems[vec.Vec3](d, obj) {
			pos := *v
			if b.Header.Landmark.Use {
				pos = pos.Sub(b.Header.Landmark.Offset)
			}
			p.vec3(pos)
		}
	case field.KindEntity:
		for _, h := range field.Elems[ecs.Handle](d, obj) {
			p.i32(b.EntityIndex(h.ID()))
		}
	}
}

// ReadFields restores the described fields of obj from the block named block
// in the current region. Descriptors with no matching record keep their value,
// records with no matching descriptor are skipped, and a missing block leaves
// obj untouched.
func (b *Buffer) ReadFields(block string, obj any, fields []field.Descriptor) error {
	if !b.Reading() {
		return ErrBufferInvalid
	}
	payload, ok, err := b.findBlock(block)
	if err != nil {
		return err
	}
	if !ok {
		b.log.Debug("block not present", zap.String("block", block))
		return nil
	}

	d := decoder{data: payload}
	n := int(d.u16())
	for i := 0; i < n; i++ {
		nameTok := d.u32()
		kind := field.Kind(d.u8())
		count := int(d.u16())
		size := int(d.u32())
		data := d.raw(size)
		if d.err != nil {
			return fmt.Errorf("block %s: %w", block, ErrTruncated)
		}
		name, _ := b.strs.Lookup(nameTok)
		desc, found := lookup(fields, name)
		if !found || !desc.Applies(obj) {
			continue
		}
		if desc.Kind != kind || kind.Size()*count != size {
			b.log.Warn("field record does not match descriptor",
				zap.String("block", block),
				zap.String("field", name),
				zap.Stringer("saved_kind", kind),
				zap.Stringer("kind", desc.Kind))
			continue
		}
		if b.globalMode && desc.Flags.Has(field.FlagGlobal) {
			continue
		}
		b.readElems(&decoder{data: data}, desc, obj, count)
	}
	return nil
}

func lookup(fields []field.Descriptor, name string) (field.Descriptor, bool) {
	for _, d := range fields {
		if d.Name == name {
			return d, true
		}
	}
	return field.Descriptor{}, false
}

func (b *Buffer) readElems(d *decoder, desc field.Descriptor, obj any, count int) {
	switch desc.Kind {
	case field.KindString:
		readInto(d, field.Elems[string](desc, obj), count, desc.Kind, func() string {
			s, _ := b.strs.Lookup(d.u32())
			return s
		})
	case field.KindFunction:
		readInto(d, field.Elems[string](desc, obj), count, desc.Kind, func() string {
			name, _ := b.strs.Lookup(d.u32())
			if name != "" && b.env.Funcs != nil && !b.env.Funcs.HasFunc(name) {
				b.log.Warn("restored function not registered",
					zap.String("field", desc.Name), zap.String("function", name))
				return ""
			}
			return name
		})
	case field.KindFloat:
		readInto(d, field.Elems[float64](desc, obj), count, desc.Kind, d.f64)
	case field.KindTime:
		readInto(d, field.Elems[float64](desc, obj), count, desc.Kind, func() float64 {
			present := d.u8()
			delta := d.f64()
			if present == 0 {
				return 0
			}
			return delta + b.now
		})
	case field.KindInteger:
		readInto(d, field.Elems[int32](desc, obj), count, desc.Kind, d.i32)
	case field.KindBoolean:
		readInto(d, field.Elems[bool](desc, obj), count, desc.Kind, func() bool { return d.u8() != 0 })
	case field.KindVector:
		readInto(d, field.Elems[vec.Vec3](desc, obj), count, desc.Kind, d.vec3)
	case field.KindPosition:
		readInto(d, field.Elems[vec.Vec3](desc, obj), count, desc.Kind, func() vec.Vec3 {
			v := d.vec3()
			if b.Header.Landmark.Use {
				v = v.Add(b.landmarkOffset)
			}
			return v
		})
	case field.KindEntity:
		elems := field.Elems[ecs.Handle](desc, obj)
		readInto(d, elems, count, desc.Kind, func() ecs.Handle {
			var h ecs.Handle
			if idx := d.i32(); idx >= 0 {
				h.Assign(b.env.Slots, b.resolve(idx))
			}
			return h
		})
	}
}

// readInto decodes min(count, len(dst)) elements and skips the rest.
func readInto[T any](d *decoder, dst []*T, count int, kind field.Kind, next func() T) {
	n := min(count, len(dst))
	for i := 0; i < n; i++ {
		*dst[i] = next()
	}
	d.skip((count - n) * kind.Size())
}

// findBlock scans the current region for the next block called name, first
// from the cursor forward, then from the region start.
func (b *Buffer) findBlock(name string) ([]byte, bool, error) {
	want, ok := b.strs.ID(name)
	if !ok {
		return nil, false, nil
	}
	payload, found, err := b.scan(b.cursor, b.regionEnd, want)
	if err != nil || found {
		return payload, found, err
	}
	return b.scan(b.regionStart, b.cursor, want)
}

func (b *Buffer) scan(from, to int, want uint32) ([]byte, bool, error) {
	d := decoder{data: b.raw[:b.regionEnd], off: from}
	for d.off < to {
		tok := d.u32()
		size := int(d.u32())
		payload := d.raw(size)
		if d.err != nil {
			return nil, false, fmt.Errorf("block at %d: %w", from, ErrTruncated)
		}
		if tok == want {
			b.cursor = d.off
			return payload, true, nil
		}
	}
	return nil, false, nil
}
