package parquetio

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/micromegas/lakehouse/internal/objectstore"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"
)

// ReadBatch fetches the partition file at key and decodes every row into a
// freshly allocated slice of rowType's element type. No package in this
// repository calls it; the query surface reads partition files through the
// SQL engine's read_parquet.
func ReadBatch(ctx context.Context, store objectstore.Store, key string, rowType any) (any, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetching partition file %q: %w", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading partition file %q: %w", key, err)
	}

	pf := buffer.NewBufferFileFromBytes(data)
	pr, err := reader.NewParquetReader(pf, rowType, 4)
	if err != nil {
		return nil, fmt.Errorf("opening parquet reader for %q: %w", key, err)
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	elemType := reflect.TypeOf(rowType).Elem()
	out := reflect.MakeSlice(reflect.SliceOf(elemType), numRows, numRows)
	if err := pr.Read(out.Addr().Interface()); err != nil {
		return nil, fmt.Errorf("decoding rows from %q: %w", key, err)
	}
	return out.Interface(), nil
}

// FooterLength returns the size in bytes of the partition file's embedded
// Thrift-encoded FileMetaData footer, used as the weigher for the
// process-wide metadata cache (component H) in place of deserializing the
// footer through apache/thrift's TCompact protocol — see DESIGN.md.
func FooterLength(fileSize int64, data []byte) (int, error) {
	const trailerSize = 8 // 4-byte footer length (LE) + 4-byte "PAR1" magic
	if int64(len(data)) < trailerSize || fileSize < trailerSize {
		return 0, fmt.Errorf("file too small to contain a parquet footer (%d bytes)", fileSize)
	}
	trailer := data[len(data)-trailerSize:]
	if string(trailer[4:]) != "PAR1" {
		return 0, fmt.Errorf("missing PAR1 magic in partition file trailer")
	}
	length := int(trailer[0]) | int(trailer[1])<<8 | int(trailer[2])<<16 | int(trailer[3])<<24
	return length, nil
}
