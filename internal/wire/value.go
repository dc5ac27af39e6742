package wire

import "fmt"

// Kind tags the active field of a Value. Go has no native tagged union, so
// we mirror original_source/rust/transit/src/value.rs's `Value` enum with a
// kind discriminant plus one field per payload type.
type Kind uint8

const (
	KindNone Kind = iota
	KindU8
	KindU32
	KindU64
	KindI64
	KindF64
	KindString
	KindObject
)

// Value is one decoded field, either a primitive or a reference to a
// dependency-table Object (property sets, span descriptors, interned
// strings all arrive this way).
type Value struct {
	Kind Kind
	U8   uint8
	U32  uint32
	U64  uint64
	I64  int64
	F64  float64
	Str  string
	Obj  *Object
}

// Object is a decoded UDT instance: a type name plus an ordered list of
// (member name, value) pairs, matching the source's `Object` struct.
type Object struct {
	TypeName string
	Members  []ObjectMember
}

// ObjectMember is one named field of a decoded Object.
type ObjectMember struct {
	Name  string
	Value Value
}

// Get returns the value of the named member, or an error if absent.
func (o *Object) Get(name string) (Value, error) {
	for _, m := range o.Members {
		if m.Name == name {
			return m.Value, nil
		}
	}
	return Value{}, fmt.Errorf("member %q not found in %s", name, o.TypeName)
}

// GetString returns the named member as a string.
func (o *Object) GetString(name string) (string, error) {
	v, err := o.Get(name)
	if err != nil {
		return "", err
	}
	if v.Kind != KindString {
		return "", fmt.Errorf("member %q of %s is not a string", name, o.TypeName)
	}
	return v.Str, nil
}

// GetI64 returns the named member as an int64, accepting I64 or U64 payloads
// the way original_source/rust/transit/src/value.rs's TransitValue impls do.
func (o *Object) GetI64(name string) (int64, error) {
	v, err := o.Get(name)
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case KindI64:
		return v.I64, nil
	case KindU64:
		return int64(v.U64), nil
	case KindU32:
		return int64(v.U32), nil
	case KindU8:
		return int64(v.U8), nil
	default:
		return 0, fmt.Errorf("member %q of %s is not an integer", name, o.TypeName)
	}
}

// GetF64 returns the named member as a float64.
func (o *Object) GetF64(name string) (float64, error) {
	v, err := o.Get(name)
	if err != nil {
		return 0, err
	}
	if v.Kind != KindF64 {
		return 0, fmt.Errorf("member %q of %s is not a float", name, o.TypeName)
	}
	return v.F64, nil
}

// GetObject returns the named member as a nested object reference.
func (o *Object) GetObject(name string) (*Object, error) {
	v, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	if v.Kind != KindObject {
		return nil, fmt.Errorf("member %q of %s is not an object", name, o.TypeName)
	}
	return v.Obj, nil
}
