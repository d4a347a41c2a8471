package tabular

import (
	"encoding/json"
)

// Record is one flat row of a collection. Field insertion order is preserved
// and becomes the column order when the record creates a collection.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord returns an empty record.
func NewRecord() Record {
	return Record{values: make(map[string]string)}
}

// RecordFromRow builds a record by zipping a header with one row of values.
// Missing trailing values are treated as empty strings.
func RecordFromRow(header []string, row []string) Record {
	rec := Record{
		keys:   make([]string, 0, len(header)),
		values: make(map[string]string, len(header)),
	}
	for i, name := range header {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		rec.Set(name, value)
	}
	return rec
}

// Set assigns value to key, appending key to the field order when it is new.
func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key or an empty string.
func (r Record) Get(key string) string {
	return r.values[key]
}

// Lookup returns the value stored under key and whether it exists.
func (r Record) Lookup(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len reports the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// Row projects the record onto header, in header order.
func (r Record) Row(header []string) []string {
	row := make([]string, len(header))
	for i, name := range header {
		row[i] = r.values[name]
	}
	return row
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := Record{
		keys:   r.Keys(),
		values: make(map[string]string, len(r.values)),
	}
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

// Merge returns a copy of r with every field of patch applied on top.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	for _, k := range patch.keys {
		out.Set(k, patch.values[k])
	}
	return out
}

// Equal reports whether both records hold the same field set with the same
// values. Field order is not compared.
func (r Record) Equal(other Record) bool {
	if len(r.values) != len(other.values) {
		return false
	}
	for k, v := range r.values {
		ov, ok := other.values[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// HasFields reports whether the record's field set is exactly header.
func (r Record) HasFields(header []string) bool {
	if len(header) != len(r.values) {
		return false
	}
	for _, name := range header {
		if _, ok := r.values[name]; !ok {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the record as a flat JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.values)
}
