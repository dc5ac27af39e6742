package wire_test

import (
	"encoding/binary"
	"testing"

	"github.com/micromegas/lakehouse/internal/wire"
	"github.com/stretchr/testify/require"
)

func encodeString(codec wire.StringCodec, s string) []byte {
	var out []byte
	out = append(out, byte(codec))
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(s)))
	out = append(out, lenBuf...)
	out = append(out, []byte(s)...)
	return out
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// TestDecodeDependenciesStrings builds a minimal dependencies buffer with two
// UTF-8 string records and checks they decode back in order.
func TestDecodeDependenciesStrings(t *testing.T) {
	udts := []wire.UDT{
		{Name: "String"}, // variable-size (Size==0)
	}
	var buf []byte
	buf = append(buf, u32le(0)...)
	buf = append(buf, encodeString(wire.CodecUTF8, "hello")...)
	buf = append(buf, u32le(0)...)
	buf = append(buf, encodeString(wire.CodecUTF8, "world")...)

	deps, err := wire.DecodeDependencies(udts, buf)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	require.Equal(t, wire.KindString, deps[0].Kind)
	require.Equal(t, "hello", deps[0].Str)
	require.Equal(t, "world", deps[1].Str)
}

// TestDecodeObjectsResolvesReference builds one string dependency and one
// fixed-size object record referencing it by id, verifying the reference
// resolves to the shared Value.
func TestDecodeObjectsResolvesReference(t *testing.T) {
	depUDTs := []wire.UDT{{Name: "String"}}
	var depBuf []byte
	depBuf = append(depBuf, u32le(0)...)
	depBuf = append(depBuf, encodeString(wire.CodecUTF8, "my.target")...)
	deps, err := wire.DecodeDependencies(depUDTs, depBuf)
	require.NoError(t, err)

	objUDTs := []wire.UDT{
		{
			Name: "LogEntry",
			Size: 4 + 4,
			Members: []wire.Member{
				{Name: "target", Offset: 0, Size: 4, IsReference: true},
				{Name: "line", Offset: 4, Size: 4, TypeName: "u32"},
			},
		},
	}
	var objBuf []byte
	objBuf = append(objBuf, u32le(0)...) // type_index into objUDTs
	objBuf = append(objBuf, u32le(0)...) // reference id 0 -> deps[0]
	objBuf = append(objBuf, u32le(42)...)

	var got []*wire.Object
	err = wire.DecodeObjects(objUDTs, deps, objBuf, func(o *wire.Object) (bool, error) {
		got = append(got, o)
		return true, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	target, err := got[0].GetString("target")
	require.NoError(t, err)
	require.Equal(t, "my.target", target)

	line, err := got[0].GetI64("line")
	require.NoError(t, err)
	require.Equal(t, int64(42), line)
}

func TestDecodeObjectsRejectsOutOfRangeReference(t *testing.T) {
	objUDTs := []wire.UDT{
		{
			Name: "LogEntry",
			Size: 4,
			Members: []wire.Member{
				{Name: "target", Offset: 0, Size: 4, IsReference: true},
			},
		},
	}
	var objBuf []byte
	objBuf = append(objBuf, u32le(0)...)
	objBuf = append(objBuf, u32le(99)...) // no dependencies exist

	err := wire.DecodeObjects(objUDTs, nil, objBuf, func(o *wire.Object) (bool, error) {
		return true, nil
	})
	require.Error(t, err)
}
