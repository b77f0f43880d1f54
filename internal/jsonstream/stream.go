// Package jsonstream implements incremental extraction from large JSON
// documents.
//
// The dataset documents are single JSON objects whose interesting content
// lives in two very large arrays ("images", "annotations") next to a couple
// of small scalar objects ("info", "license"). Materializing the whole
// document is explicitly off the table, so this package walks the token
// stream of encoding/json.Decoder:
//
//   - Extractor lazily yields the elements of one named array, in document
//     order, holding at most one element in memory at a time.
//   - TopLevel captures selected small top-level values as raw JSON while
//     token-skipping everything else (including the large arrays).
//
// Both tolerate the named path/keys being absent: absence yields an empty
// result, not an error. Malformed JSON surfaces as *errs.ParseError with the
// decoder's byte offset.
package jsonstream

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"imatload/internal/errs"
	"imatload/internal/records"
)

// Extractor streams the elements of a JSON array located at a dotted path
// inside a single JSON document (e.g. "images", or "a.b" for nesting).
//
// The sequence is finite, single-pass, and preserves document order. After
// Next returns io.EOF or any error, the Extractor is exhausted.
type Extractor struct {
	dec    *json.Decoder
	source string
	path   []string

	seeked bool
	empty  bool
	done   bool
}

// NewExtractor returns an Extractor over r for the array at path. source is
// used in error messages (typically the file name).
func NewExtractor(r io.Reader, source, path string) *Extractor {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Extractor{
		dec:    dec,
		source: source,
		path:   strings.Split(path, "."),
	}
}

// Next returns the next array element decoded as a records.Record. It
// returns io.EOF when the array is exhausted, or immediately when the named
// path is absent from the document. Elements that are not JSON objects, and
// any tokenization failure, return a *errs.ParseError.
func (x *Extractor) Next() (records.Record, error) {
	if x.done || x.empty {
		return nil, io.EOF
	}
	if !x.seeked {
		x.seeked = true
		found, err := x.seek()
		if err != nil {
			x.done = true
			return nil, err
		}
		if !found {
			x.empty = true
			return nil, io.EOF
		}
	}

	if !x.dec.More() {
		// Consume the closing ']' so the decoder stops at a clean boundary.
		if _, err := x.dec.Token(); err != nil {
			x.done = true
			return nil, x.parseErr(err)
		}
		x.done = true
		return nil, io.EOF
	}

	var rec records.Record
	if err := x.dec.Decode(&rec); err != nil {
		x.done = true
		return nil, x.parseErr(err)
	}
	return rec, nil
}

// seek advances the decoder to just inside the opening '[' of the target
// array. It reports found=false when any path segment is missing or the
// document's shape rules the path out (e.g. a non-object root).
func (x *Extractor) seek() (found bool, err error) {
	for depth := 0; depth < len(x.path); depth++ {
		tok, err := x.dec.Token()
		if err != nil {
			if err == io.EOF {
				return false, nil // empty input: path trivially absent
			}
			return false, x.parseErr(err)
		}
		if tok != json.Delim('{') {
			return false, nil
		}

		matched := false
		for x.dec.More() {
			keyTok, err := x.dec.Token()
			if err != nil {
				return false, x.parseErr(err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return false, x.parseErr(fmt.Errorf("object key is %T, not string", keyTok))
			}
			if key != x.path[depth] {
				if err := skipValue(x.dec); err != nil {
					return false, x.parseErr(err)
				}
				continue
			}

			if depth == len(x.path)-1 {
				tok, err := x.dec.Token()
				if err != nil {
					return false, x.parseErr(err)
				}
				if tok != json.Delim('[') {
					return false, x.parseErr(fmt.Errorf("value at %q is not an array", strings.Join(x.path, ".")))
				}
				return true, nil
			}
			matched = true
			break
		}
		if !matched {
			return false, nil
		}
	}
	return false, nil
}

func (x *Extractor) parseErr(err error) error {
	return &errs.ParseError{Source: x.source, Offset: x.dec.InputOffset(), Err: err}
}

// skipValue consumes exactly one complete JSON value from dec without
// retaining it. Scalars are a single token; composites are skipped by
// tracking delimiter depth.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// TopLevel scans the top-level object of the document in r and returns the
// raw JSON values of the requested keys. Keys absent from the document are
// simply absent from the result. All other values, including the large
// arrays, are token-skipped rather than buffered. Scanning stops early once
// every requested key has been seen.
func TopLevel(r io.Reader, source string, keys ...string) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	out := make(map[string]json.RawMessage, len(keys))

	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return out, nil
		}
		return nil, &errs.ParseError{Source: source, Offset: dec.InputOffset(), Err: err}
	}
	if tok != json.Delim('{') {
		return nil, &errs.ParseError{Source: source, Offset: dec.InputOffset(), Err: fmt.Errorf("top-level value is not an object")}
	}

	for dec.More() && len(out) < len(want) {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &errs.ParseError{Source: source, Offset: dec.InputOffset(), Err: err}
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, &errs.ParseError{Source: source, Offset: dec.InputOffset(), Err: fmt.Errorf("object key is %T, not string", keyTok)}
		}
		if !want[key] {
			if err := skipValue(dec); err != nil {
				return nil, &errs.ParseError{Source: source, Offset: dec.InputOffset(), Err: err}
			}
			continue
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, &errs.ParseError{Source: source, Offset: dec.InputOffset(), Err: err}
		}
		out[key] = raw
	}
	return out, nil
}
