package wire

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pierrec/lz4/v4"
)

// BlockEnvelope is the CBOR-encoded block header plus its two compressed
// payload buffers, matching spec.md §6's block wire format.
type BlockEnvelope struct {
	BlockID      string       `cbor:"block_id"`
	StreamID     string       `cbor:"stream_id"`
	ProcessID    string       `cbor:"process_id"`
	BeginTime    string       `cbor:"begin_time"`
	BeginTicks   int64        `cbor:"begin_ticks"`
	EndTime      string       `cbor:"end_time"`
	EndTicks     int64        `cbor:"end_ticks"`
	ObjectOffset int64        `cbor:"object_offset"`
	NbObjects    int32        `cbor:"nb_objects"`
	Payload      BlockPayload `cbor:"payload"`
}

// BlockPayload carries the two LZ4-frame-compressed buffers: interned
// dependency records and the heterogeneous object queue.
type BlockPayload struct {
	Dependencies []byte `cbor:"dependencies"`
	Objects      []byte `cbor:"objects"`
}

// ParsedBlock is a BlockEnvelope with its timestamps parsed and decompressed
// payload buffers ready for DecodeObjects.
type ParsedBlock struct {
	BlockID      string
	StreamID     string
	ProcessID    string
	BeginTime    time.Time
	BeginTicks   int64
	EndTime      time.Time
	EndTicks     int64
	ObjectOffset int64
	NbObjects    int32
	Dependencies []byte
	Objects      []byte
}

// DecodeEnvelope decodes the CBOR envelope and decompresses its two LZ4
// buffers. It does not interpret the heterogeneous queue inside them; call
// DecodeDependencies/DecodeObjects for that with the stream's UDT lists.
func DecodeEnvelope(raw []byte) (*ParsedBlock, error) {
	var env BlockEnvelope
	if err := cbor.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding block envelope: %w", err)
	}
	begin, err := time.Parse(time.RFC3339Nano, env.BeginTime)
	if err != nil {
		return nil, fmt.Errorf("parsing begin_time %q: %w", env.BeginTime, err)
	}
	end, err := time.Parse(time.RFC3339Nano, env.EndTime)
	if err != nil {
		return nil, fmt.Errorf("parsing end_time %q: %w", env.EndTime, err)
	}
	deps, err := decompressLZ4(env.Payload.Dependencies)
	if err != nil {
		return nil, fmt.Errorf("decompressing dependencies buffer: %w", err)
	}
	objs, err := decompressLZ4(env.Payload.Objects)
	if err != nil {
		return nil, fmt.Errorf("decompressing objects buffer: %w", err)
	}
	return &ParsedBlock{
		BlockID:      env.BlockID,
		StreamID:     env.StreamID,
		ProcessID:    env.ProcessID,
		BeginTime:    begin,
		BeginTicks:   env.BeginTicks,
		EndTime:      end,
		EndTicks:     env.EndTicks,
		ObjectOffset: env.ObjectOffset,
		NbObjects:    env.NbObjects,
		Dependencies: deps,
		Objects:      objs,
	}, nil
}

func decompressLZ4(compressed []byte) ([]byte, error) {
	if len(compressed) == 0 {
		return nil, nil
	}
	r := lz4.NewReader(bytes.NewReader(compressed))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}
