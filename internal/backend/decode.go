package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode converts records into dest (a pointer to a slice of structs) using the
// struct's json tags. Numbers and numeric strings both decode into decimal
// fields, mirroring how the hosted backend returns numeric columns.
func Decode(records []Record, dest any) error {
	if records == nil {
		records = []Record{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("backend: decode marshal: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("backend: decode: %w", err)
	}
	return nil
}

// DecodeOne converts a single record into dest.
func DecodeOne(rec Record, dest any) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("backend: decode marshal: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("backend: decode: %w", err)
	}
	return nil
}

// Encode flattens a struct into a Record using its json tags. Numbers are kept
// as json.Number so decimals survive without float rounding.
func Encode(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("backend: encode: %w", err)
	}
	return parseRecord(raw)
}

func parseRecord(raw []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("backend: parse record: %w", err)
	}
	return rec, nil
}

// canonical reduces any Go value to its JSON shape (string, json.Number, bool,
// nil, []any or map[string]any) so values of different Go types compare.
func canonical(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return v
	}
	return out
}
