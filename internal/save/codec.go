package save

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/l1jgo/worldstate/internal/core/vec"
)

// encoder appends little-endian values to a growing byte slice. A value the
// layout cannot hold latches err and is not written.
type encoder struct {
	buf []byte
	err error
}

func (e *encoder) u8(v byte) {
	e.buf = append(e.buf, v)
}

func (e *encoder) u16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

func (e *encoder) u32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *encoder) i32(v int32) {
	e.u32(uint32(v))
}

func (e *encoder) u64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *encoder) f64(v float64) {
	e.u64(math.Float64bits(v))
}

func (e *encoder) vec3(v vec.Vec3) {
	e.f64(v.X)
	e.f64(v.Y)
	e.f64(v.Z)
}

// str writes a u16 length-prefixed raw string (header and string table only;
// field data refers to strings by intern id).
func (e *encoder) str(s string) {
	if len(s) > math.MaxUint16 {
		if e.err == nil {
			e.err = fmt.Errorf("%w: string of %d bytes", ErrTooLarge, len(s))
		}
		return
	}
	e.u16(uint16(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) bytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// patchU32 overwrites a previously reserved u32 at off.
func (e *encoder) patchU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(e.buf[off:], v)
}

func (e *encoder) len() int { return len(e.buf) }

// decoder reads little-endian values. Reads past the end return zero values and
// latch ErrTruncated; callers check err once after a group of reads.
type decoder struct {
	data []byte
	off  int
	err  error
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if n < 0 || d.off+n > len(d.data) {
		d.err = ErrTruncated
		d.off = len(d.data)
		return false
	}
	return true
}

func (d *decoder) u8() byte {
	if !d.need(1) {
		return 0
	}
	v := d.data[d.off]
	d.off++
	return v
}

func (d *decoder) u16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(d.data[d.off:])
	d.off += 2
	return v
}

func (d *decoder) u32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.data[d.off:])
	d.off += 4
	return v
}

func (d *decoder) i32() int32 {
	return int32(d.u32())
}

func (d *decoder) u64() uint64 {
	if !d.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(d.data[d.off:])
	d.off += 8
	return v
}

func (d *decoder) f64() float64 {
	return math.Float64frombits(d.u64())
}

func (d *decoder) vec3() vec.Vec3 {
	return vec.Vec3{X: d.f64(), Y: d.f64(), Z: d.f64()}
}

func (d *decoder) str() string {
	n := int(d.u16())
	return string(d.raw(n))
}

func (d *decoder) raw(n int) []byte {
	if !d.need(n) {
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) skip(n int) {
	if d.need(n) {
		d.off += n
	}
}

func (d *decoder) remaining() int {
	return len(d.data) - d.off
}
