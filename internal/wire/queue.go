package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/micromegas/lakehouse/internal/lakehouse/errs"
)

// reader walks a heterogeneous queue buffer. It never copies; slices alias
// the caller's decompressed buffer.
type reader struct {
	buf []byte
}

func (r *reader) remaining() int { return len(r.buf) }

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || n > len(r.buf) {
		return nil, fmt.Errorf("truncated buffer: need %d bytes, have %d", n, len(r.buf))
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out, nil
}

func (r *reader) readU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// DecodeDependencies parses the dependencies buffer into an indexed arena.
// Entries are addressable by position (their index in the returned slice)
// because dependencies only ever reference earlier dependencies, never
// objects — see spec.md §9 ("cyclic references do not exist by
// construction").
func DecodeDependencies(udts []UDT, buf []byte) ([]Value, error) {
	r := &reader{buf: buf}
	var table []Value
	for r.remaining() > 0 {
		typeIndex, err := r.readU32()
		if err != nil {
			return nil, errs.New(errs.KindDecode, "wire.DecodeDependencies", err)
		}
		if int(typeIndex) >= len(udts) {
			return nil, errs.New(errs.KindDecode, "wire.DecodeDependencies",
				fmt.Errorf("type_index %d out of range (%d UDTs)", typeIndex, len(udts)))
		}
		udt := udts[typeIndex]
		v, err := decodeDependencyRecord(r, udt, table)
		if err != nil {
			return nil, errs.New(errs.KindDecode, "wire.DecodeDependencies", err)
		}
		table = append(table, v)
	}
	return table, nil
}

func decodeDependencyRecord(r *reader, udt UDT, table []Value) (Value, error) {
	if !udt.IsFixedSize() {
		codecByte, err := r.take(1)
		if err != nil {
			return Value{}, err
		}
		codec := StringCodec(codecByte[0])
		if !codec.valid() {
			return Value{}, fmt.Errorf("invalid codec tag %d", codecByte[0])
		}
		length, err := r.readU32()
		if err != nil {
			return Value{}, err
		}
		raw, err := r.take(int(length))
		if err != nil {
			return Value{}, err
		}
		s, err := normalizeString(codec, raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindString, Str: s}, nil
	}
	payload, err := r.take(udt.Size)
	if err != nil {
		return Value{}, err
	}
	obj, err := decodeFixedRecord(udt, payload, table)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindObject, Obj: obj}, nil
}

// DecodeObjects walks the objects buffer, invoking fn for each decoded
// record in order. fn returns false to stop iteration early (mirroring
// original_source/rust/analytics/src/payload.rs's parse_block callback
// convention). Members marked IsReference resolve against deps by id.
func DecodeObjects(udts []UDT, deps []Value, buf []byte, fn func(*Object) (bool, error)) error {
	r := &reader{buf: buf}
	for r.remaining() > 0 {
		typeIndex, err := r.readU32()
		if err != nil {
			return errs.New(errs.KindDecode, "wire.DecodeObjects", err)
		}
		if int(typeIndex) >= len(udts) {
			return errs.New(errs.KindDecode, "wire.DecodeObjects",
				fmt.Errorf("type_index %d out of range (%d UDTs)", typeIndex, len(udts)))
		}
		udt := udts[typeIndex]
		var payload []byte
		if udt.IsFixedSize() {
			payload, err = r.take(udt.Size)
		} else {
			var size uint32
			size, err = r.readU32()
			if err == nil {
				payload, err = r.take(int(size))
			}
		}
		if err != nil {
			return errs.New(errs.KindDecode, "wire.DecodeObjects", err)
		}
		obj, err := decodeFixedRecord(udt, payload, deps)
		if err != nil {
			return errs.New(errs.KindDecode, "wire.DecodeObjects", err)
		}
		cont, err := fn(obj)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// decodeFixedRecord interprets payload as a fixed-size UDT instance: each
// member is read at its declared Offset/Size, either as a resolved
// dependency-table reference or as an inline primitive.
func decodeFixedRecord(udt UDT, payload []byte, deps []Value) (*Object, error) {
	members := make([]ObjectMember, 0, len(udt.Members))
	for _, m := range udt.Members {
		if m.Offset+m.Size > len(payload) {
			return nil, fmt.Errorf("member %q of %s out of bounds (offset=%d size=%d payload=%d)",
				m.Name, udt.Name, m.Offset, m.Size, len(payload))
		}
		field := payload[m.Offset : m.Offset+m.Size]
		var v Value
		if m.IsReference {
			id := binary.LittleEndian.Uint32(field)
			if int(id) >= len(deps) {
				return nil, fmt.Errorf("member %q of %s references out-of-range dependency id %d", m.Name, udt.Name, id)
			}
			v = deps[id]
		} else {
			var err error
			v, err = decodePrimitive(m, field)
			if err != nil {
				return nil, fmt.Errorf("member %q of %s: %w", m.Name, udt.Name, err)
			}
		}
		members = append(members, ObjectMember{Name: m.Name, Value: v})
	}
	return &Object{TypeName: udt.Name, Members: members}, nil
}

func decodePrimitive(m Member, field []byte) (Value, error) {
	switch m.TypeName {
	case "u8":
		return Value{Kind: KindU8, U8: field[0]}, nil
	case "u32":
		return Value{Kind: KindU32, U32: binary.LittleEndian.Uint32(field)}, nil
	case "u64":
		return Value{Kind: KindU64, U64: binary.LittleEndian.Uint64(field)}, nil
	case "i64":
		return Value{Kind: KindI64, I64: int64(binary.LittleEndian.Uint64(field))}, nil
	case "f64":
		return Value{Kind: KindF64, F64: math.Float64frombits(binary.LittleEndian.Uint64(field))}, nil
	default:
		return Value{}, fmt.Errorf("unknown primitive type %q", m.TypeName)
	}
}
