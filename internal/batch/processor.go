package batch

import (
	"encoding/json"

	"github.com/micromegas/lakehouse/internal/lakehouse/errs"
	"github.com/micromegas/lakehouse/internal/wire"
)

// PartitionSourceBlock bundles one decoded source block with the process
// metadata needed for tick conversion, mirroring
// original_source/rust/analytics/src/lakehouse/{log,metrics}_block_processor.rs's
// `PartitionSourceBlock` argument.
type PartitionSourceBlock struct {
	Process      *Process
	StreamID     string
	BlockID      string
	DepUDTs      []wire.UDT
	ObjUDTs      []wire.UDT
	Parsed       *wire.ParsedBlock
}

// BlockProcessor turns one source block into a Batch for its view kind, or
// nil if the block contributed no rows of that kind. It is the Go
// counterpart of the Rust BlockProcessor trait: the view's processor decides
// which object tags to consume, per spec.md §9.
type BlockProcessor interface {
	Process(src *PartitionSourceBlock) (*Batch, error)
}

func decodeDeps(src *PartitionSourceBlock) ([]wire.Value, error) {
	deps, err := wire.DecodeDependencies(src.DepUDTs, src.Parsed.Dependencies)
	if err != nil {
		return nil, errs.New(errs.KindDecode, "batch.decodeDeps", err)
	}
	return deps, nil
}

func encodeProperties(o *wire.Object) ([]byte, error) {
	if o == nil {
		return nil, nil
	}
	props := make(map[string]string, len(o.Members))
	for _, m := range o.Members {
		if m.Value.Kind == wire.KindString {
			props[m.Name] = m.Value.Str
		}
	}
	return json.Marshal(props)
}

// --- log_entries -----------------------------------------------------------

type LogBlockProcessor struct{}

func (LogBlockProcessor) Process(src *PartitionSourceBlock) (*Batch, error) {
	deps, err := decodeDeps(src)
	if err != nil {
		return nil, err
	}
	b := NewLogEntryBuilder()
	blockEndNS := src.Process.ConvertTicks(src.Parsed.EndTicks, src.Parsed.EndTime.UnixNano())
	var decodeErr error
	err = wire.DecodeObjects(src.ObjUDTs, deps, src.Parsed.Objects, func(o *wire.Object) (bool, error) {
		if o.TypeName != "LogEntry" {
			return true, nil
		}
		ticks, gerr := o.GetI64("time")
		if gerr != nil {
			decodeErr = gerr
			return false, nil
		}
		target, _ := o.GetString("target")
		filename, _ := o.GetString("filename")
		msg, _ := o.GetString("msg")
		line, _ := o.GetI64("line")
		level, _ := o.GetI64("level")
		var properties []byte
		if propsObj, perr := o.GetObject("properties"); perr == nil {
			properties, _ = encodeProperties(propsObj)
		}
		ns := src.Process.ConvertTicks(ticks, blockEndNS)
		b.Append(LogEntryRow{
			Time: ns, Target: target, Filename: filename, Line: int32(line),
			Level: int32(level), Msg: msg,
			ProcessID: src.Process.ProcessID, StreamID: src.StreamID, BlockID: src.BlockID,
			Properties: properties,
		})
		return true, nil
	})
	if err != nil {
		return nil, errs.New(errs.KindDecode, "batch.LogBlockProcessor.Process", err)
	}
	if decodeErr != nil {
		return nil, errs.New(errs.KindDecode, "batch.LogBlockProcessor.Process", decodeErr)
	}
	if b.NbRows() == 0 {
		return nil, nil
	}
	batch := b.Finish()
	return &batch, nil
}

// --- measures ----------------------------------------------------------------

type MeasureBlockProcessor struct{}

func (MeasureBlockProcessor) Process(src *PartitionSourceBlock) (*Batch, error) {
	deps, err := decodeDeps(src)
	if err != nil {
		return nil, err
	}
	b := NewMeasureBuilder()
	blockEndNS := src.Process.ConvertTicks(src.Parsed.EndTicks, src.Parsed.EndTime.UnixNano())
	var decodeErr error
	err = wire.DecodeObjects(src.ObjUDTs, deps, src.Parsed.Objects, func(o *wire.Object) (bool, error) {
		if o.TypeName != "Measure" {
			return true, nil
		}
		ticks, gerr := o.GetI64("time")
		if gerr != nil {
			decodeErr = gerr
			return false, nil
		}
		name, _ := o.GetString("name")
		unit, _ := o.GetString("unit")
		value, _ := o.GetF64("value")
		var properties []byte
		if propsObj, perr := o.GetObject("properties"); perr == nil {
			properties, _ = encodeProperties(propsObj)
		}
		ns := src.Process.ConvertTicks(ticks, blockEndNS)
		b.Append(MeasureRow{
			Time: ns, Name: name, Unit: unit, Value: value,
			ProcessID: src.Process.ProcessID, StreamID: src.StreamID,
			Properties: properties,
		})
		return true, nil
	})
	if err != nil {
		return nil, errs.New(errs.KindDecode, "batch.MeasureBlockProcessor.Process", err)
	}
	if decodeErr != nil {
		return nil, errs.New(errs.KindDecode, "batch.MeasureBlockProcessor.Process", decodeErr)
	}
	if b.NbRows() == 0 {
		return nil, nil
	}
	batch := b.Finish()
	return &batch, nil
}

// --- thread_spans --------------------------------------------------------------

type ThreadSpanBlockProcessor struct{}

func (ThreadSpanBlockProcessor) Process(src *PartitionSourceBlock) (*Batch, error) {
	deps, err := decodeDeps(src)
	if err != nil {
		return nil, err
	}
	b := NewThreadSpanBuilder(src.Process.ProcessID, src.StreamID)
	blockEndNS := src.Process.ConvertTicks(src.Parsed.EndTicks, src.Parsed.EndTime.UnixNano())
	var decodeErr error
	err = wire.DecodeObjects(src.ObjUDTs, deps, src.Parsed.Objects, func(o *wire.Object) (bool, error) {
		switch o.TypeName {
		case "BeginThreadSpan":
			ticks, gerr := o.GetI64("time")
			if gerr != nil {
				decodeErr = gerr
				return false, nil
			}
			threadID, _ := o.GetString("thread_id")
			name, _ := o.GetString("name")
			filename, _ := o.GetString("filename")
			target, _ := o.GetString("target")
			line, _ := o.GetI64("line")
			b.AppendBegin(threadID, name, filename, target, int32(line), src.Process.ConvertTicks(ticks, blockEndNS))
		case "EndThreadSpan":
			ticks, gerr := o.GetI64("time")
			if gerr != nil {
				decodeErr = gerr
				return false, nil
			}
			threadID, _ := o.GetString("thread_id")
			b.AppendEnd(threadID, src.Process.ConvertTicks(ticks, blockEndNS))
		}
		return true, nil
	})
	if err != nil {
		return nil, errs.New(errs.KindDecode, "batch.ThreadSpanBlockProcessor.Process", err)
	}
	if decodeErr != nil {
		return nil, errs.New(errs.KindDecode, "batch.ThreadSpanBlockProcessor.Process", decodeErr)
	}
	b.CloseBlock(blockEndNS)
	if b.NbRows() == 0 {
		return nil, nil
	}
	batch := b.Finish()
	return &batch, nil
}
