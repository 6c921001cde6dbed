package field

import "fmt"

// Kind tags the primitive or compound type of a persisted field. The numeric
// values are written into save files and must not be renumbered.
type Kind uint8

const (
	KindString   Kind = iota + 1 // interned through the string table
	KindFloat                    // float64
	KindTime                     // float64 world time, re-based across save/load
	KindInteger                  // int32
	KindBoolean                  // bool
	KindVector                   // vec.Vec3, written verbatim
	KindPosition                 // vec.Vec3, landmark-relative across transitions
	KindEntity                   // ecs.Handle, written as an entity table row
	KindFunction                 // symbolic function name, resolved on restore
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindVector:
		return "vector"
	case KindPosition:
		return "position"
	case KindEntity:
		return "entity"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Size returns the encoded byte size of one element, or 0 for variable-size
// kinds (strings and functions are written as 4-byte intern ids).
func (k Kind) Size() int {
	switch k {
	case KindString, KindFunction, KindInteger, KindEntity:
		return 4
	case KindFloat:
		return 8
	case KindTime:
		return 9 // presence byte + float64 delta
	case KindBoolean:
		return 1
	case KindVector, KindPosition:
		return 24
	default:
		return 0
	}
}

// Flags modify how the serializer and the key/value parser treat a field.
type Flags uint8

const (
	// FlagGlobal fields keep the placeholder's value when a global entity from
	// another level is overlaid onto it.
	FlagGlobal Flags = 1 << iota
	// FlagKeyValue fields may be set from designer-supplied key/values.
	FlagKeyValue
)

func (f Flags) Has(o Flags) bool { return f&o == o }
