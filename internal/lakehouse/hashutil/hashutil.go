// Package hashutil derives the content hashes spec.md uses for idempotence:
// a view's schema hash and a partition's source_data_hash, both "ordered
// hash"es per spec.md §3's data model.
package hashutil

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// OrderedHash hashes ids in the order given — callers pass already-sorted
// ids (e.g. ascending block_id) so the hash reflects spec.md §5's
// determinism guarantee ("source blocks are processed in ascending
// (block_id, object_offset) order").
func OrderedHash(ids []string) string {
	h := xxhash.New()
	for _, id := range ids {
		_, _ = h.WriteString(id)
		_, _ = h.WriteString("\x00")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// SchemaHash derives a view's file_schema_hash from its field names in
// declaration order, so renaming or adding/removing a column changes the
// hash but reordering unrelated views does not.
func SchemaHash(viewSetName string, fieldNames []string) string {
	h := xxhash.New()
	_, _ = h.WriteString(viewSetName)
	for _, f := range fieldNames {
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(f)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// SortedOrderedHash sorts a copy of ids ascending before hashing, for
// callers (the merger) whose input partition ids have no natural order.
func SortedOrderedHash(ids []string) string {
	cp := append([]string(nil), ids...)
	sort.Strings(cp)
	return OrderedHash(cp)
}
