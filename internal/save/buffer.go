package save

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/core/vec"
	"go.uber.org/zap"
)

var (
	// ErrBufferInvalid is the single validity gate: the buffer is nil, closed,
	// or open in the other direction.
	ErrBufferInvalid = errors.New("save: buffer not open")
	// ErrTruncated means a block or table ran past the end of the data.
	ErrTruncated = errors.New("save: truncated data")
	// ErrNoData is returned when seeking to a row or section that wrote nothing.
	ErrNoData = errors.New("save: no data for entity")
	// ErrTooLarge means a string or element count exceeds its u16 prefix.
	ErrTooLarge = errors.New("save: value too large for layout")
)

type mode uint8

const (
	modeClosed mode = iota
	modeWrite
	modeRead
)

// Classed is implemented by slot occupants; the classname recreates them.
type Classed interface {
	Classname() string
}

// FuncResolver reports whether a symbolic function name is registered.
type FuncResolver interface {
	HasFunc(name string) bool
}

// Env binds a buffer to the live session it saves from or restores into.
type Env struct {
	Slots *ecs.SlotTable
	Funcs FuncResolver
	Log   *zap.Logger
}

// Landmark records the transform of a transition save. Position fields are
// written relative to Offset when Use is set.
type Landmark struct {
	Use    bool
	Name   string
	Offset vec.Vec3
}

// Header is the save-time metadata carried in front of the tables.
type Header struct {
	Session  uuid.UUID
	Level    string
	Time     float64
	Landmark Landmark
}

// Span is a named region of the data stream outside any entity row.
type Span struct {
	Location int32
	Size     int32
}

// Buffer is an ordered sequence of named blocks plus the string and entity
// tables that travel with it. A buffer is open either for writing (NewBuffer)
// or for reading (Decode); Encode closes a write buffer.
type Buffer struct {
	Header Header

	mode     mode
	strs     *StringTable
	ents     *EntityTable
	sections map[string]Span
	data     encoder
	env      Env
	log      *zap.Logger

	// row being written or read, section being written
	current  int32
	section  string
	startOff int

	// read cursor: [regionStart, regionEnd) bounds the current block group
	cursor      int
	regionStart int
	regionEnd   int
	raw         []byte

	now            float64
	landmarkOffset vec.Vec3
	globalMode     bool
}

// NewBuffer opens an empty buffer for writing.
func NewBuffer(h Header, env Env) *Buffer {
	b := &Buffer{
		Header:   h,
		mode:     modeWrite,
		strs:     NewStringTable(),
		ents:     NewEntityTable(),
		sections: make(map[string]Span),
		env:      env,
		current:  -1,
	}
	b.log = env.Log
	if b.log == nil {
		b.log = zap.NewNop()
	}
	return b
}

// Valid reports whether the buffer passes the validity gate for any I/O.
func (b *Buffer) Valid() bool {
	return b != nil && b.mode != modeClosed
}

func (b *Buffer) Writing() bool { return b != nil && b.mode == modeWrite }
func (b *Buffer) Reading() bool { return b != nil && b.mode == modeRead }

// Close invalidates the buffer; further field I/O fails.
func (b *Buffer) Close() {
	if b != nil {
		b.mode = modeClosed
	}
}

func (b *Buffer) Strings() *StringTable  { return b.strs }
func (b *Buffer) Entities() *EntityTable { return b.ents }
func (b *Buffer) Size() int              { return b.data.len() + len(b.raw) }

// Bind attaches a decoded buffer to the session it restores into.
func (b *Buffer) Bind(env Env) {
	b.env = env
	if env.Log != nil {
		b.log = env.Log
	}
}

// SetTime sets the world time used to re-base time fields while reading.
func (b *Buffer) SetTime(now float64) { b.now = now }
func (b *Buffer) Time() float64       { return b.now }

// SetLandmarkOffset sets the destination landmark position added to position
// fields while reading a landmark buffer.
func (b *Buffer) SetLandmarkOffset(v vec.Vec3) { b.landmarkOffset = v }
func (b *Buffer) LandmarkOffset() vec.Vec3     { return b.landmarkOffset }

// SetGlobalMode makes ReadFields leave FlagGlobal fields untouched.
func (b *Buffer) SetGlobalMode(on bool) { b.globalMode = on }
func (b *Buffer) GlobalMode() bool      { return b.globalMode }

// AddEntity records a row for a live object before it is saved.
func (b *Buffer) AddEntity(id ecs.EntityID, flags RowFlags) int32 {
	classname := ""
	if b.env.Slots != nil {
		if occ, ok := b.env.Slots.Get(id); ok {
			if c, ok := occ.(Classed); ok {
				classname = c.Classname()
			}
		}
	}
	b.strs.Intern(classname)
	return b.ents.Add(id, classname, flags)
}

// EntityIndex translates a live id into its entity table row, appending a row
// for objects first met through a reference. Empty or stale ids give -1.
func (b *Buffer) EntityIndex(id ecs.EntityID) int32 {
	if id == 0 || b.env.Slots == nil || !b.env.Slots.Alive(id) {
		return -1
	}
	if idx, ok := b.ents.Find(id); ok {
		return idx
	}
	return b.AddEntity(id, 0)
}

// BeginEntity starts the block group of row idx at the current write offset.
func (b *Buffer) BeginEntity(idx int32) error {
	if !b.Writing() {
		return ErrBufferInvalid
	}
	row := b.ents.Row(idx)
	if row == nil {
		return fmt.Errorf("begin entity %d: %w", idx, ErrNoData)
	}
	b.current = idx
	row.Location = int32(b.data.len())
	return nil
}

// EndEntity closes the block group started by BeginEntity.
func (b *Buffer) EndEntity() {
	if !b.Writing() || b.current < 0 {
		return
	}
	if row := b.ents.Row(b.current); row != nil {
		row.Size = int32(b.data.len()) - row.Location
		if row.Size == 0 {
			row.Location = -1
		}
	}
	b.current = -1
}

// BeginSection starts a named data region that belongs to no entity.
func (b *Buffer) BeginSection(name string) error {
	if !b.Writing() {
		return ErrBufferInvalid
	}
	b.strs.Intern(name)
	b.section = name
	b.startOff = b.data.len()
	return nil
}

func (b *Buffer) EndSection() {
	if !b.Writing() || b.section == "" {
		return
	}
	b.sections[b.section] = Span{Location: int32(b.startOff), Size: int32(b.data.len() - b.startOff)}
	b.section = ""
}

// Sections lists the named regions.
func (b *Buffer) Sections() map[string]Span { return b.sections }

// SeekEntity positions the read cursor at the block group of row idx.
func (b *Buffer) SeekEntity(idx int32) error {
	if !b.Reading() {
		return ErrBufferInvalid
	}
	row := b.ents.Row(idx)
	if row == nil || !row.HasData() {
		return fmt.Errorf("seek entity %d: %w", idx, ErrNoData)
	}
	if err := b.seek(Span{Location: row.Location, Size: row.Size}); err != nil {
		return err
	}
	b.current = idx
	return nil
}

// SeekSection positions the read cursor at a named region.
func (b *Buffer) SeekSection(name string) error {
	if !b.Reading() {
		return ErrBufferInvalid
	}
	span, ok := b.sections[name]
	if !ok || span.Size == 0 {
		return fmt.Errorf("seek section %s: %w", name, ErrNoData)
	}
	if err := b.seek(span); err != nil {
		return err
	}
	b.current = -1
	return nil
}

// CurrentRow returns the row whose block group is being written or read, or
// -1 and nil outside any row.
func (b *Buffer) CurrentRow() (int32, *Row) {
	if b.current < 0 {
		return -1, nil
	}
	return b.current, b.ents.Row(b.current)
}

func (b *Buffer) seek(span Span) error {
	start, end := int(span.Location), int(span.Location)+int(span.Size)
	if start < 0 || end > len(b.raw) || start > end {
		return fmt.Errorf("seek [%d,%d): %w", start, end, ErrTruncated)
	}
	b.regionStart, b.regionEnd, b.cursor = start, end, start
	return nil
}

// Rewind moves the read cursor back to the start of the current region.
func (b *Buffer) Rewind() {
	b.cursor = b.regionStart
}

// SetRestored records the object recreated for row idx.
func (b *Buffer) SetRestored(idx int32, id ecs.EntityID) {
	if row := b.ents.Row(idx); row != nil {
		row.Restored = id
	}
}

// resolve maps a row index back to a live id in the restoring session.
func (b *Buffer) resolve(idx int32) ecs.EntityID {
	row := b.ents.Row(idx)
	if row == nil {
		return 0
	}
	return row.Restored
}
