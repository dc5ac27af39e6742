package view

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/micromegas/lakehouse/internal/batch"
	"github.com/micromegas/lakehouse/internal/catalog"
	"github.com/micromegas/lakehouse/internal/lakehouse/errs"
	"github.com/micromegas/lakehouse/internal/lakehouse/hashutil"
	"github.com/micromegas/lakehouse/internal/lakehouse/lake"
	"github.com/micromegas/lakehouse/internal/wire"
)

// BlockSourcedView implements the log_entries/measures/thread_spans view
// families (spec.md §4.C): views whose rows come directly from decoding
// raw blocks via a per-kind BlockProcessor (§4.A/§4.B).
type BlockSourcedView struct {
	viewSetName     string
	viewInstanceID  string // "global" or a stream id for JIT-scoped instances
	streamTag       string // "log", "metrics", or "cpu"; used when instanceID == "global"
	streamID        string // bound stream id for a JIT instance; "" for global
	schemaHash      string
	rowType         any
	newProcessor    func() batch.BlockProcessor
	mergeQuery      string
	eventTimeColumn string // e.g. "time" or, for thread_spans, "begin_time"
}

// NewBlockSourcedView constructs a global (daemon-fed) block-sourced view.
func NewBlockSourcedView(viewSetName, streamTag, schemaHash string, rowType any, newProcessor func() batch.BlockProcessor, mergeQuery, eventTimeColumn string) *BlockSourcedView {
	return &BlockSourcedView{
		viewSetName: viewSetName, viewInstanceID: "global", streamTag: streamTag,
		schemaHash: schemaHash, rowType: rowType, newProcessor: newProcessor, mergeQuery: mergeQuery,
		eventTimeColumn: eventTimeColumn,
	}
}

// NewStreamScopedView constructs a per-stream (JIT-fed) instance of a
// block-sourced view, e.g. thread_spans scoped to one stream id.
func NewStreamScopedView(viewSetName, streamID, schemaHash string, rowType any, newProcessor func() batch.BlockProcessor, mergeQuery, eventTimeColumn string) *BlockSourcedView {
	return &BlockSourcedView{
		viewSetName: viewSetName, viewInstanceID: streamID, streamID: streamID,
		schemaHash: schemaHash, rowType: rowType, newProcessor: newProcessor, mergeQuery: mergeQuery,
		eventTimeColumn: eventTimeColumn,
	}
}

func (v *BlockSourcedView) ViewSetName() string    { return v.viewSetName }
func (v *BlockSourcedView) ViewInstanceID() string { return v.viewInstanceID }
func (v *BlockSourcedView) FileSchemaHash() string { return v.schemaHash }
func (v *BlockSourcedView) RowType() any           { return v.rowType }

func (v *BlockSourcedView) MakeBatchPartitionSpec(ctx context.Context, l *lake.Lake, existing []catalog.Partition, beginInsert, endInsert time.Time) (*PartitionSpec, error) {
	blocks, err := l.Catalog.FetchBlocksForWindow(ctx, v.streamID, v.streamTag, beginInsert, endInsert)
	if err != nil {
		return nil, errs.New(errs.KindCatalogIO, "view.MakeBatchPartitionSpec", err)
	}
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.BlockID
	}
	return &PartitionSpec{
		ViewSetName: v.viewSetName, ViewInstanceID: v.viewInstanceID, SchemaHash: v.schemaHash,
		BeginInsertTime: beginInsert, EndInsertTime: endInsert,
		SourceBlocks: blocks, SourceDataHash: hashutil.OrderedHash(ids),
	}, nil
}

func (v *BlockSourcedView) BuildBatch(ctx context.Context, l *lake.Lake, spec *PartitionSpec) (Result, error) {
	if len(spec.SourceBlocks) == 0 {
		return Result{}, nil
	}
	processCache := map[string]*batch.Process{}
	parts := make([]*batch.Batch, 0, len(spec.SourceBlocks))
	for _, blockRef := range spec.SourceBlocks {
		proc, err := v.loadProcess(ctx, l, processCache, blockRef.ProcessID)
		if err != nil {
			return Result{}, err
		}
		parsed, depUDTs, objUDTs, err := v.fetchAndDecode(ctx, l, blockRef)
		if err != nil {
			// Decode errors skip the block and continue, per spec.md §7.
			// Object-store and catalog errors abort the build.
			if errs.Is(err, errs.KindDecode) {
				continue
			}
			return Result{}, err
		}
		src := &batch.PartitionSourceBlock{
			Process: proc, StreamID: blockRef.StreamID, BlockID: blockRef.BlockID,
			DepUDTs: depUDTs, ObjUDTs: objUDTs, Parsed: parsed,
		}
		b, err := v.newProcessor().Process(src)
		if err != nil {
			continue
		}
		if b != nil {
			parts = append(parts, b)
		}
	}
	merged, ok := batch.Merge(v.viewSetName, parts)
	if !ok {
		return Result{}, nil
	}
	return Result{
		Rows: merged.Rows, NumRows: merged.NumRows,
		MinEventTime: merged.MinEventTime, MaxEventTime: merged.MaxEventTime, HasEventTime: merged.HasEventTime,
	}, nil
}

func (v *BlockSourcedView) loadProcess(ctx context.Context, l *lake.Lake, cache map[string]*batch.Process, processID string) (*batch.Process, error) {
	if p, ok := cache[processID]; ok {
		return p, nil
	}
	meta, err := l.Catalog.FetchProcess(ctx, processID)
	if err != nil {
		return nil, errs.New(errs.KindCatalogIO, "view.loadProcess", err)
	}
	p := &batch.Process{
		ProcessID: meta.ProcessID, StartTicks: meta.StartTicks,
		StartTimeNS: meta.StartTimeUTC.UnixNano(), TSCFrequency: meta.TSCFrequency,
	}
	cache[processID] = p
	return p, nil
}

func (v *BlockSourcedView) fetchAndDecode(ctx context.Context, l *lake.Lake, blockRef catalog.BlockRef) (*wire.ParsedBlock, []wire.UDT, []wire.UDT, error) {
	r, err := l.Objects.Get(ctx, blockRef.PayloadPath)
	if err != nil {
		return nil, nil, nil, errs.New(errs.KindObjectStoreIO, "view.fetchAndDecode", err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, nil, errs.New(errs.KindObjectStoreIO, "view.fetchAndDecode", err)
	}
	parsed, err := wire.DecodeEnvelope(raw)
	if err != nil {
		return nil, nil, nil, errs.New(errs.KindDecode, "view.fetchAndDecode", err)
	}
	stream, err := l.Catalog.FetchStreamUDTs(ctx, blockRef.StreamID)
	if err != nil {
		return nil, nil, nil, errs.New(errs.KindCatalogIO, "view.fetchAndDecode", err)
	}
	return parsed, stream.DependenciesUDTs, stream.ObjectsUDTs, nil
}

func (v *BlockSourcedView) JITUpdate(ctx context.Context, l *lake.Lake, queryRange TimeRange) error {
	if v.streamID == "" {
		return nil // global views are fed by the daemon, not JIT
	}
	return EnsureCoverage(ctx, l, v, queryRange)
}

func (v *BlockSourcedView) MakeTimeFilter(begin, end time.Time) string {
	return fmt.Sprintf("%s BETWEEN %d AND %d", v.eventTimeColumn, begin.UnixNano(), end.UnixNano())
}

func (v *BlockSourcedView) GetMergePartitionsQuery() string { return v.mergeQuery }
