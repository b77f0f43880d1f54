// Package records defines the generic record shape produced by the streaming
// extractor and the field-coercion helpers used to turn heterogeneous JSON
// elements into typed row values.
//
// Coercion here is strict: a missing field or an uncoercible value returns a
// *errs.RecordError carrying the raw element. Silently skipping a corrupt id
// would corrupt the dataset, so the whole partition load fails instead.
package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"imatload/internal/errs"
)

// Record is a parsed JSON object keyed by its original field names. Numeric
// values are json.Number (the decoder runs with UseNumber) so integer ids
// round-trip without float formatting artifacts.
type Record map[string]any

// Int64Field returns rec[field] coerced to int64. Accepted inputs are JSON
// strings and numbers holding an integral value.
func (rec Record) Int64Field(field string) (int64, error) {
	v, ok := rec[field]
	if !ok || v == nil {
		return 0, &errs.RecordError{Field: field, Raw: map[string]any(rec), Err: errors.New("missing required field")}
	}
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, &errs.RecordError{Field: field, Raw: map[string]any(rec), Err: fmt.Errorf("not an integer: %q", t.String())}
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, &errs.RecordError{Field: field, Raw: map[string]any(rec), Err: fmt.Errorf("not an integer: %q", t)}
		}
		return n, nil
	default:
		return 0, &errs.RecordError{Field: field, Raw: map[string]any(rec), Err: fmt.Errorf("unsupported type %T", v)}
	}
}

// StringField returns rec[field] coerced to a string. JSON strings pass
// through; numbers are formatted with their original text.
func (rec Record) StringField(field string) (string, error) {
	v, ok := rec[field]
	if !ok || v == nil {
		return "", &errs.RecordError{Field: field, Raw: map[string]any(rec), Err: errors.New("missing required field")}
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	default:
		return "", &errs.RecordError{Field: field, Raw: map[string]any(rec), Err: fmt.Errorf("unsupported type %T", v)}
	}
}

// SliceField returns rec[field] as a []any, preserving element order. The
// field must be present and hold a JSON array.
func (rec Record) SliceField(field string) ([]any, error) {
	v, ok := rec[field]
	if !ok || v == nil {
		return nil, &errs.RecordError{Field: field, Raw: map[string]any(rec), Err: errors.New("missing required field")}
	}
	s, ok := v.([]any)
	if !ok {
		return nil, &errs.RecordError{Field: field, Raw: map[string]any(rec), Err: fmt.Errorf("not an array: %T", v)}
	}
	return s, nil
}
