package save

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// Magic identifies a save file.
var Magic = [4]byte{'W', 'S', 'A', 'V'}

// Version of the persisted layout.
// v1: header, string table, entity table, sections, data
const Version uint32 = 1

var (
	ErrBadMagic = errors.New("save: bad magic")
	ErrVersion  = errors.New("save: unsupported version")
	ErrChecksum = errors.New("save: checksum mismatch")
)

// Encode serializes a write buffer and closes it:
//
//	magic[4] | version u32 | blake2b-256(body)[32] | bodyLen u32 | body
//	body = header | string table | entity table | sections | data
func Encode(b *Buffer) ([]byte, error) {
	if !b.Writing() {
		return nil, ErrBufferInvalid
	}
	if b.current >= 0 {
		b.EndEntity()
	}
	if b.section != "" {
		b.EndSection()
	}
	// Every name the tables refer to must be interned before the string
	// table is written.
	for _, r := range b.ents.rows {
		b.strs.Intern(r.Classname)
	}

	var body encoder
	body.bytes(b.Header.Session[:])
	body.str(b.Header.Level)
	body.f64(b.Header.Time)
	if b.Header.Landmark.Use {
		body.u8(1)
	} else {
		body.u8(0)
	}
	body.str(b.Header.Landmark.Name)
	body.vec3(b.Header.Landmark.Offset)

	b.strs.encode(&body)
	if body.err != nil {
		b.log.Error("save not encodable", zap.String("level", b.Header.Level), zap.Error(body.err))
		return nil, body.err
	}
	b.ents.encode(&body, b.strs)

	names := make([]string, 0, len(b.sections))
	for name := range b.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	body.u16(uint16(len(names)))
	for _, name := range names {
		span := b.sections[name]
		body.u32(b.strs.Intern(name))
		body.i32(span.Location)
		body.i32(span.Size)
	}

	body.u32(uint32(b.data.len()))
	body.bytes(b.data.buf)

	sum := blake2b.Sum256(body.buf)
	var out encoder
	out.buf = make([]byte, 0, len(body.buf)+44)
	out.bytes(Magic[:])
	out.u32(Version)
	out.bytes(sum[:])
	out.u32(uint32(len(body.buf)))
	out.bytes(body.buf)

	b.mode = modeClosed
	return out.buf, nil
}

// Decode parses a save file into a buffer open for reading.
func Decode(data []byte, env Env) (*Buffer, error) {
	d := decoder{data: data}
	if !bytes.Equal(d.raw(4), Magic[:]) {
		return nil, ErrBadMagic
	}
	if v := d.u32(); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}
	sum := d.raw(blake2b.Size256)
	bodyLen := int(d.u32())
	body := d.raw(bodyLen)
	if d.err != nil {
		return nil, d.err
	}
	if got := blake2b.Sum256(body); !bytes.Equal(got[:], sum) {
		return nil, ErrChecksum
	}

	b := NewBuffer(Header{}, env)
	bd := decoder{data: body}
	copy(b.Header.Session[:], bd.raw(len(uuid.UUID{})))
	b.Header.Level = bd.str()
	b.Header.Time = bd.f64()
	b.Header.Landmark.Use = bd.u8() != 0
	b.Header.Landmark.Name = bd.str()
	b.Header.Landmark.Offset = bd.vec3()

	b.strs = decodeStringTable(&bd)
	b.ents = decodeEntityTable(&bd, b.strs)

	nsec := int(bd.u16())
	for i := 0; i < nsec && bd.err == nil; i++ {
		name, _ := b.strs.Lookup(bd.u32())
		b.sections[name] = Span{Location: bd.i32(), Size: bd.i32()}
	}

	raw := bd.raw(int(bd.u32()))
	if bd.err != nil {
		return nil, fmt.Errorf("decode body: %w", bd.err)
	}
	b.raw = raw
	b.mode = modeRead
	b.regionStart, b.regionEnd, b.cursor = 0, len(raw), 0
	return b, nil
}
