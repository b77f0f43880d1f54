package records

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"imatload/internal/errs"
)

func decode(t *testing.T, src string) Record {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(src))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		t.Fatalf("decode %q: %v", src, err)
	}
	return rec
}

/*
TestInt64Field covers the accepted encodings (string digits, JSON numbers)
and the rejection paths (missing, fractional, non-numeric, wrong type).
*/
func TestInt64Field(t *testing.T) {
	cases := []struct {
		name    string
		src     string
		want    int64
		wantErr bool
	}{
		{"string digits", `{"imageId":"42"}`, 42, false},
		{"string with space", `{"imageId":" 7 "}`, 7, false},
		{"json number", `{"imageId":42}`, 42, false},
		{"negative", `{"imageId":-3}`, -3, false},
		{"missing", `{"url":"x"}`, 0, true},
		{"null", `{"imageId":null}`, 0, true},
		{"fractional", `{"imageId":1.5}`, 0, true},
		{"non numeric string", `{"imageId":"abc"}`, 0, true},
		{"array value", `{"imageId":[1]}`, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := decode(t, tc.src)
			got, err := rec.Int64Field("imageId")
			if tc.wantErr {
				var re *errs.RecordError
				if !errors.As(err, &re) {
					t.Fatalf("err = %v; want *errs.RecordError", err)
				}
				if re.Field != "imageId" {
					t.Errorf("RecordError.Field = %q; want imageId", re.Field)
				}
				if re.Raw == nil {
					t.Error("RecordError.Raw is nil; want offending element")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %d; want %d", got, tc.want)
			}
		})
	}
}

/*
TestStringField verifies string pass-through, number formatting, and the
missing-field rejection with the raw element attached.
*/
func TestStringField(t *testing.T) {
	rec := decode(t, `{"url":"http://x/1.jpg","n":7}`)

	if s, err := rec.StringField("url"); err != nil || s != "http://x/1.jpg" {
		t.Fatalf("StringField(url) = %q, %v", s, err)
	}
	if s, err := rec.StringField("n"); err != nil || s != "7" {
		t.Fatalf("StringField(n) = %q, %v", s, err)
	}

	_, err := rec.StringField("missing")
	var re *errs.RecordError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v; want *errs.RecordError", err)
	}
}

/*
TestSliceField verifies order preservation of array fields and rejection of
non-array values.
*/
func TestSliceField(t *testing.T) {
	rec := decode(t, `{"labelId":["95","66","12"]}`)

	got, err := rec.SliceField("labelId")
	if err != nil {
		t.Fatalf("SliceField returned error: %v", err)
	}
	want := []string{"95", "66", "12"}
	if len(got) != len(want) {
		t.Fatalf("got %d elements; want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %v; want %v", i, got[i], want[i])
		}
	}

	rec = decode(t, `{"labelId":"95"}`)
	if _, err := rec.SliceField("labelId"); err == nil {
		t.Fatal("scalar value accepted as array")
	}
}
