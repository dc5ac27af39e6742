package view

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// scanInto decodes every row of rs into a freshly allocated slice of
// rowType's element type, assuming the query's SELECT list matches the
// struct's exported field order one-for-one — the convention every
// transform/merge query in this repo's view registrations follows. If
// eventTimeColumn names a field (matched case-insensitively, by either Go
// field name or its `parquet:"name=..."` tag), its int64-nanosecond values
// are tracked for the batch's event-time bounds.
func scanInto(rs *sql.Rows, rowType any, eventTimeColumn string) (out any, minT, maxT time.Time, hasBound bool, err error) {
	elemType := reflect.TypeOf(rowType).Elem()
	numFields := elemType.NumField()
	timeFieldIdx := -1
	if eventTimeColumn != "" {
		timeFieldIdx = findField(elemType, eventTimeColumn)
	}

	slice := reflect.MakeSlice(reflect.SliceOf(elemType), 0, 0)
	ptrs := make([]any, numFields)
	for rs.Next() {
		rowVal := reflect.New(elemType).Elem()
		for i := 0; i < numFields; i++ {
			ptrs[i] = rowVal.Field(i).Addr().Interface()
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, time.Time{}, time.Time{}, false, fmt.Errorf("scanning transform row: %w", err)
		}
		if timeFieldIdx >= 0 {
			ns := rowVal.Field(timeFieldIdx).Int()
			t := time.Unix(0, ns).UTC()
			if !hasBound || t.Before(minT) {
				minT = t
			}
			if !hasBound || t.After(maxT) {
				maxT = t
			}
			hasBound = true
		}
		slice = reflect.Append(slice, rowVal)
	}
	if err := rs.Err(); err != nil {
		return nil, time.Time{}, time.Time{}, false, fmt.Errorf("iterating transform rows: %w", err)
	}
	return slice.Interface(), minT, maxT, hasBound, nil
}

func findField(t reflect.Type, name string) int {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if strings.EqualFold(f.Name, name) {
			return i
		}
		if tag, ok := f.Tag.Lookup("parquet"); ok && strings.Contains(strings.ToLower(tag), "name="+strings.ToLower(name)) {
			return i
		}
	}
	return -1
}
