package labelmap

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"gitee.com/gooffice/gooffice/spreadsheet"

	"imatload/internal/errs"
)

// writeWorkbook builds a minimal label-map xlsx for tests.
func writeWorkbook(t *testing.T, path string, header []string, rows [][]string) {
	t.Helper()
	wb := spreadsheet.New()
	sheet := wb.AddSheet()

	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	if err := wb.SaveToFile(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

/*
TestRead parses a well-formed spreadsheet and verifies id coercion and
field mapping.
*/
func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "label_map_228.xlsx")
	writeWorkbook(t, path,
		[]string{"labelId", "taskId", "labelName", "taskName"},
		[][]string{
			{"95", "1", "cotton", "material"},
			{"66", "1", "denim", "material"},
			{"12", "2", "red", "color"},
		})

	entries, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries; want 3", len(entries))
	}
	want := Entry{LabelID: 95, TaskID: 1, LabelName: "cotton", TaskName: "material"}
	if entries[0] != want {
		t.Errorf("entries[0] = %+v; want %+v", entries[0], want)
	}
	if entries[2].LabelID != 12 || entries[2].TaskName != "color" {
		t.Errorf("entries[2] = %+v", entries[2])
	}
}

/*
TestRead_HeaderVariants verifies that header matching tolerates case,
separators, and diacritics.
*/
func TestRead_HeaderVariants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lm.xlsx")
	writeWorkbook(t, path,
		[]string{"Label Id", "TASK_ID", "labelName", "Task Name"},
		[][]string{{"7", "3", "silk", "material"}})

	entries, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 1 || entries[0].LabelID != 7 || entries[0].TaskID != 3 {
		t.Fatalf("entries = %+v", entries)
	}
}

/*
TestRead_Failures covers the error taxonomy: missing file, missing header,
uncoercible id (with the raw row attached).
*/
func TestRead_Failures(t *testing.T) {
	dir := t.TempDir()

	_, err := Read(filepath.Join(dir, "absent.xlsx"))
	var mf *errs.MissingFileError
	if !errors.As(err, &mf) {
		t.Fatalf("missing file: err = %v; want *errs.MissingFileError", err)
	}

	badHeader := filepath.Join(dir, "badheader.xlsx")
	writeWorkbook(t, badHeader, []string{"labelId", "taskId"}, nil)
	_, err = Read(badHeader)
	var pe *errs.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("bad header: err = %v; want *errs.ParseError", err)
	}

	badID := filepath.Join(dir, "badid.xlsx")
	writeWorkbook(t, badID,
		[]string{"labelId", "taskId", "labelName", "taskName"},
		[][]string{{"notanumber", "1", "x", "y"}})
	_, err = Read(badID)
	var re *errs.RecordError
	if !errors.As(err, &re) {
		t.Fatalf("bad id: err = %v; want *errs.RecordError", err)
	}
	if re.Raw == nil {
		t.Error("RecordError.Raw is nil; want offending row")
	}
}

// fakeRepo records Exec statements and copied rows.
type fakeRepo struct {
	stmts []string
	rows  [][]any
}

func (f *fakeRepo) Exec(_ context.Context, sql string, _ ...any) error {
	f.stmts = append(f.stmts, sql)
	return nil
}

func (f *fakeRepo) CopyCSV(_ context.Context, _ string, _ []string, rows [][]any) (int64, error) {
	for _, r := range rows {
		cp := make([]any, len(r))
		copy(cp, r)
		f.rows = append(f.rows, cp)
	}
	return int64(len(rows)), nil
}

/*
TestLoad verifies the whole-table replace: TRUNCATE first, then all rows
copied in spreadsheet order.
*/
func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "label_map_228.xlsx")
	writeWorkbook(t, path,
		[]string{"labelId", "taskId", "labelName", "taskName"},
		[][]string{{"95", "1", "cotton", "material"}, {"66", "1", "denim", "material"}})

	repo := &fakeRepo{}
	n, err := Load(context.Background(), repo, path, 100)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 2 {
		t.Fatalf("loaded %d rows; want 2", n)
	}
	if len(repo.stmts) != 1 || !strings.HasPrefix(repo.stmts[0], "TRUNCATE raw.imat_label_map") {
		t.Fatalf("statements = %v; want single TRUNCATE", repo.stmts)
	}
	if len(repo.rows) != 2 || repo.rows[0][0] != int64(95) || repo.rows[1][2] != "denim" {
		t.Fatalf("rows = %v", repo.rows)
	}
}

/*
TestNormalizeHeader and TestParseID pin the helper behavior.
*/
func TestNormalizeHeader(t *testing.T) {
	for in, want := range map[string]string{
		"labelId":  "labelid",
		"Label_Id": "labelid",
		" TASK ID": "taskid",
		"tâskName": "taskname",
	} {
		if got := normalizeHeader(in); got != want {
			t.Errorf("normalizeHeader(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestParseID(t *testing.T) {
	if n, err := parseID("228"); err != nil || n != 228 {
		t.Errorf("parseID(228) = %d, %v", n, err)
	}
	if n, err := parseID("228.0"); err != nil || n != 228 {
		t.Errorf("parseID(228.0) = %d, %v", n, err)
	}
	for _, bad := range []string{"", "x", "1.5"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) accepted", bad)
		}
	}
}
