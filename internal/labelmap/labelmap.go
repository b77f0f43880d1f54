// Package labelmap loads the label-map spreadsheet into raw.imat_label_map.
//
// The spreadsheet is small reference data, so it is read fully into memory
// (no streaming) and the target relation is replaced wholesale: TRUNCATE,
// then one bulk COPY. There is exactly one label map version at a time.
package labelmap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"gitee.com/gooffice/gooffice/spreadsheet"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"imatload/internal/errs"
	"imatload/internal/logging"
	"imatload/internal/schema"
	"imatload/internal/storage"
)

// Entry is one label-map row: a label within an annotation task.
type Entry struct {
	LabelID   int64
	TaskID    int64
	LabelName string
	TaskName  string
}

// Columns is the COPY column order for raw.imat_label_map.
var Columns = []string{"label_id", "task_id", "label_name", "task_name"}

// expected header names, in normalized form.
var required = []string{"labelid", "taskid", "labelname", "taskname"}

// Read parses the spreadsheet at path into entries. The first row of the
// first sheet must contain the labelId/taskId/labelName/taskName headers;
// matching is case-insensitive and ignores separators and diacritics. Rows
// that are entirely empty are skipped; a row with an uncoercible id fails
// the whole load.
func Read(path string) ([]Entry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &errs.MissingFileError{Path: path, Err: err}
	}

	wb, err := spreadsheet.Open(path)
	if err != nil {
		return nil, &errs.ParseError{Source: path, Offset: -1, Err: err}
	}
	sheets := wb.Sheets()
	if len(sheets) == 0 {
		return nil, &errs.ParseError{Source: path, Offset: -1, Err: fmt.Errorf("workbook has no sheets")}
	}

	rows := sheets[0].Rows()
	if len(rows) == 0 {
		return nil, &errs.ParseError{Source: path, Offset: -1, Err: fmt.Errorf("sheet %q is empty", sheets[0].Name())}
	}

	// Map normalized header name -> cell position.
	colIdx := map[string]int{}
	for i, cell := range rows[0].Cells() {
		colIdx[normalizeHeader(cell.GetFormattedValue())] = i
	}
	for _, name := range required {
		if _, ok := colIdx[name]; !ok {
			return nil, &errs.ParseError{Source: path, Offset: -1, Err: fmt.Errorf("missing header column %q", name)}
		}
	}

	var entries []Entry
	for _, row := range rows[1:] {
		cells := row.Cells()
		field := func(name string) string {
			i := colIdx[name]
			if i >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[i].GetFormattedValue())
		}

		raw := map[string]any{
			"labelId": field("labelid"), "taskId": field("taskid"),
			"labelName": field("labelname"), "taskName": field("taskname"),
		}
		if raw["labelId"] == "" && raw["taskId"] == "" && raw["labelName"] == "" && raw["taskName"] == "" {
			continue
		}

		labelID, err := parseID(field("labelid"))
		if err != nil {
			return nil, &errs.RecordError{Field: "labelId", Raw: raw, Err: err}
		}
		taskID, err := parseID(field("taskid"))
		if err != nil {
			return nil, &errs.RecordError{Field: "taskId", Raw: raw, Err: err}
		}
		entries = append(entries, Entry{
			LabelID:   labelID,
			TaskID:    taskID,
			LabelName: field("labelname"),
			TaskName:  field("taskname"),
		})
	}
	return entries, nil
}

// Load replaces raw.imat_label_map with the spreadsheet's contents and
// returns the number of rows written.
func Load(ctx context.Context, repo storage.Repository, path string, batchSize int) (int64, error) {
	entries, err := Read(path)
	if err != nil {
		return 0, err
	}

	if err := repo.Exec(ctx, "TRUNCATE "+schema.LabelMapTable+";"); err != nil {
		return 0, &errs.WriteError{Table: schema.LabelMapTable, Err: err}
	}

	buf, err := storage.NewRowBuffer(schema.LabelMapTable, Columns, batchSize,
		func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
			return repo.CopyCSV(ctx, schema.LabelMapTable, cols, rows)
		})
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := buf.Add(ctx, []any{e.LabelID, e.TaskID, e.LabelName, e.TaskName}); err != nil {
			return buf.Total(), err
		}
	}
	if err := buf.Flush(ctx); err != nil {
		return buf.Total(), err
	}

	logging.L().Info("[OK] label_map loaded",
		zap.Int64("rows", buf.Total()),
		zap.String("table", schema.LabelMapTable),
		zap.String("xxh3", fileChecksum(path)))
	return buf.Total(), nil
}

// parseID coerces a spreadsheet cell to an integer id. Formatted numbers may
// carry a trailing ".0"; that still denotes an integral value.
func parseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing required field")
	}
	s = strings.TrimSuffix(s, ".0")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return n, nil
}

// normalizeHeader lowercases, strips diacritics, and drops everything but
// letters and digits, so that "labelId", "Label Id", and "label_id" all
// match.
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Decompose, remove nonspacing marks (accents), recompose.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	for _, r := range ascii {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fileChecksum returns the xxh3 hex digest of the file, or "" on error; the
// checksum is diagnostic only and never fails a load.
func fileChecksum(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
