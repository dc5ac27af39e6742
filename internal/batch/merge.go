package batch

import "reflect"

// Merge concatenates the Rows of several same-schema batches (one per
// source block, as produced by a BlockProcessor) into a single Batch,
// recomputing the combined event-time bounds. Returns (Batch{}, false) if
// parts is empty.
func Merge(schemaName string, parts []*Batch) (Batch, bool) {
	if len(parts) == 0 {
		return Batch{}, false
	}
	total := 0
	for _, p := range parts {
		total += p.NumRows
	}
	elemType := reflect.TypeOf(parts[0].Rows).Elem()
	out := reflect.MakeSlice(reflect.SliceOf(elemType), 0, total)

	var minT, maxT = parts[0].MinEventTime, parts[0].MaxEventTime
	hasBound := false
	for _, p := range parts {
		out = reflect.AppendSlice(out, reflect.ValueOf(p.Rows))
		if p.HasEventTime {
			if !hasBound || p.MinEventTime.Before(minT) {
				minT = p.MinEventTime
			}
			if !hasBound || p.MaxEventTime.After(maxT) {
				maxT = p.MaxEventTime
			}
			hasBound = true
		}
	}
	return Batch{
		SchemaName:   schemaName,
		Rows:         out.Interface(),
		NumRows:      total,
		MinEventTime: minT,
		MaxEventTime: maxT,
		HasEventTime: hasBound,
	}, true
}
