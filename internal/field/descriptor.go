package field

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/l1jgo/worldstate/internal/core/ecs"
	"github.com/l1jgo/worldstate/internal/core/vec"
)

var (
	// ErrNotSettable is returned when a key/value targets a field that cannot be
	// parsed from text (entity references).
	ErrNotSettable = errors.New("field: not settable from text")
	// ErrOwnerMismatch is returned when a descriptor is applied to an object of
	// a different type than the one it was declared for.
	ErrOwnerMismatch = errors.New("field: owner type mismatch")
)

// Descriptor describes one persisted property of an object kind. Instead of a
// byte offset it carries an accessor returning the address of the storage:
// *T for single values, []T (aliasing an array or slice) for counted values.
type Descriptor struct {
	Name  string
	Kind  Kind
	Flags Flags
	addr  func(obj any) any
}

func scalar[O, T any](name string, kind Kind, p func(*O) *T, flags []Flags) Descriptor {
	return Descriptor{
		Name:  name,
		Kind:  kind,
		Flags: join(flags),
		addr: func(obj any) any {
			o, ok := obj.(*O)
			if !ok || o == nil {
				return nil
			}
			return p(o)
		},
	}
}

func array[O, T any](name string, kind Kind, p func(*O) []T, flags []Flags) Descriptor {
	return Descriptor{
		Name:  name,
		Kind:  kind,
		Flags: join(flags),
		addr: func(obj any) any {
			o, ok := obj.(*O)
			if !ok || o == nil {
				return nil
			}
			return p(o)
		},
	}
}

func join(flags []Flags) Flags {
	var f Flags
	for _, x := range flags {
		f |= x
	}
	return f
}

func String[O any](name string, p func(*O) *string, flags ...Flags) Descriptor {
	return scalar(name, KindString, p, flags)
}

func Strings[O any](name string, p func(*O) []string, flags ...Flags) Descriptor {
	return array(name, KindString, p, flags)
}

func Float[O any](name string, p func(*O) *float64, flags ...Flags) Descriptor {
	return scalar(name, KindFloat, p, flags)
}

func Floats[O any](name string, p func(*O) []float64, flags ...Flags) Descriptor {
	return array(name, KindFloat, p, flags)
}

func Time[O any](name string, p func(*O) *float64, flags ...Flags) Descriptor {
	return scalar(name, KindTime, p, flags)
}

func Times[O any](name string, p func(*O) []float64, flags ...Flags) Descriptor {
	return array(name, KindTime, p, flags)
}

func Integer[O any](name string, p func(*O) *int32, flags ...Flags) Descriptor {
	return scalar(name, KindInteger, p, flags)
}

func Integers[O any](name string, p func(*O) []int32, flags ...Flags) Descriptor {
	return array(name, KindInteger, p, flags)
}

func Boolean[O any](name string, p func(*O) *bool, flags ...Flags) Descriptor {
	return scalar(name, KindBoolean, p, flags)
}

func Vector[O any](name string, p func(*O) *vec.Vec3, flags ...Flags) Descriptor {
	return scalar(name, KindVector, p, flags)
}

func Vectors[O any](name string, p func(*O) []vec.Vec3, flags ...Flags) Descriptor {
	return array(name, KindVector, p, flags)
}

func Position[O any](name string, p func(*O) *vec.Vec3, flags ...Flags) Descriptor {
	return scalar(name, KindPosition, p, flags)
}

func Positions[O any](name string, p func(*O) []vec.Vec3, flags ...Flags) Descriptor {
	return array(name, KindPosition, p, flags)
}

func Entity[O any](name string, p func(*O) *ecs.Handle, flags ...Flags) Descriptor {
	return scalar(name, KindEntity, p, flags)
}

func Entities[O any](name string, p func(*O) []ecs.Handle, flags ...Flags) Descriptor {
	return array(name, KindEntity, p, flags)
}

// Function declares a field holding the symbolic name of a registered function.
func Function[O any](name string, p func(*O) *string, flags ...Flags) Descriptor {
	return scalar(name, KindFunction, p, flags)
}

// Elems returns pointers to every element the descriptor addresses in obj, or
// nil if obj is not of the owner type or T does not match the field storage.
func Elems[T any](d Descriptor, obj any) []*T {
	if d.addr == nil {
		return nil
	}
	switch v := d.addr(obj).(type) {
	case *T:
		if v == nil {
			return nil
		}
		return []*T{v}
	case []T:
		out := make([]*T, len(v))
		for i := range v {
			out[i] = &v[i]
		}
		return out
	}
	return nil
}

// Count returns the element count the descriptor addresses in obj.
func (d Descriptor) Count(obj any) int {
	if d.addr == nil {
		return 0
	}
	switch v := d.addr(obj).(type) {
	case nil:
		return 0
	case *string, *float64, *int32, *bool, *vec.Vec3, *ecs.Handle:
		return 1
	case []string:
		return len(v)
	case []float64:
		return len(v)
	case []int32:
		return len(v)
	case []bool:
		return len(v)
	case []vec.Vec3:
		return len(v)
	case []ecs.Handle:
		return len(v)
	}
	return 0
}

// Applies reports whether obj is of the type the descriptor was declared for.
func (d Descriptor) Applies(obj any) bool {
	return d.addr != nil && d.addr(obj) != nil
}

// Set parses a designer-supplied text value into the first element of the
// field.
func (d Descriptor) Set(obj any, value string) error {
	if !d.Applies(obj) {
		return fmt.Errorf("%s: %w", d.Name, ErrOwnerMismatch)
	}
	switch d.Kind {
	case KindString, KindFunction:
		if p := first[string](d, obj); p != nil {
			*p = value
		}
	case KindFloat, KindTime:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
		if p := first[float64](d, obj); p != nil {
			*p = f
		}
	case KindInteger:
		n, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
		if p := first[int32](d, obj); p != nil {
			*p = n
		}
	case KindBoolean:
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
		if p := first[bool](d, obj); p != nil {
			*p = b
		}
	case KindVector, KindPosition:
		v, err := vec.Parse(value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
		if p := first[vec.Vec3](d, obj); p != nil {
			*p = v
		}
	default:
		return fmt.Errorf("%s (%s): %w", d.Name, d.Kind, ErrNotSettable)
	}
	return nil
}

// Format renders the first element of the field as text.
func (d Descriptor) Format(obj any) string {
	switch d.Kind {
	case KindString, KindFunction:
		if p := first[string](d, obj); p != nil {
			return *p
		}
	case KindFloat, KindTime:
		if p := first[float64](d, obj); p != nil {
			return strconv.FormatFloat(*p, 'g', -1, 64)
		}
	case KindInteger:
		if p := first[int32](d, obj); p != nil {
			return strconv.FormatInt(int64(*p), 10)
		}
	case KindBoolean:
		if p := first[bool](d, obj); p != nil {
			return strconv.FormatBool(*p)
		}
	case KindVector, KindPosition:
		if p := first[vec.Vec3](d, obj); p != nil {
			return vec.Format(*p)
		}
	case KindEntity:
		if p := first[ecs.Handle](d, obj); p != nil {
			if p.IsEmpty() {
				return ""
			}
			return strconv.FormatUint(uint64(p.Index()), 10)
		}
	}
	return ""
}

func first[T any](d Descriptor, obj any) *T {
	elems := Elems[T](d, obj)
	if len(elems) == 0 {
		return nil
	}
	return elems[0]
}

func parseInt(s string) (int32, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 32)
	if err == nil {
		return int32(n), nil
	}
	// Level editors emit integral floats ("1.0") for integer keys.
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil {
		return 0, err
	}
	return int32(f), nil
}

func parseBool(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "1", "yes", "on":
		return true, nil
	case "0", "no", "off", "":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}
