package schema

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/modelhub/modelhub/pkg/contract"
)

// Frame is tabular input in column order. Cell values are nil, bool, string,
// json.Number or []any (nested for tensors). A column missing from a record is
// stored as nil.
type Frame struct {
	Columns []string
	Rows    [][]any
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

func (f *Frame) Index(column string) int {
	for i, name := range f.Columns {
		if name == column {
			return i
		}
	}

	return -1
}

// Project returns a frame holding exactly the given columns in the given
// order. Columns the frame lacks are filled with nil.
func (f *Frame) Project(columns []string) *Frame {
	indexes := make([]int, 0, len(columns))
	for _, column := range columns {
		indexes = append(indexes, f.Index(column))
	}

	projected := &Frame{Columns: columns, Rows: make([][]any, 0, len(f.Rows))}

	for _, row := range f.Rows {
		values := make([]any, len(columns))
		for i, idx := range indexes {
			if idx >= 0 {
				values[i] = row[idx]
			}
		}

		projected.Rows = append(projected.Rows, values)
	}

	return projected
}

// Records renders the frame as one JSON object per row, keeping column order.
func (f *Frame) Records() []map[string]any {
	records := make([]map[string]any, 0, len(f.Rows))
	for _, row := range f.Rows {
		record := make(map[string]any, len(f.Columns))
		for i, column := range f.Columns {
			record[column] = row[i]
		}

		records = append(records, record)
	}

	return records
}

func malformedInput(format string, args ...any) *contract.Error {
	return contract.NewError(contract.ErrorCodeInvalidInput, fmt.Sprintf(format, args...)).
		WithReason(contract.ReasonMalformedInput)
}

// ParseFrame accepts a single record object, an array of record objects, or a
// split dataframe {"columns": [...], "data": [[...], ...]}.
func ParseFrame(data []byte) (*Frame, error) {
	if !gjson.ValidBytes(data) {
		return nil, malformedInput("input is not valid JSON")
	}

	root := gjson.ParseBytes(data)

	var (
		frame *Frame
		err   error
	)

	switch {
	case root.IsObject() && root.Get("columns").IsArray() && root.Get("data").IsArray():
		frame, err = parseSplit(root)
	case root.IsObject():
		frame, err = parseRecords([]gjson.Result{root})
	case root.IsArray():
		frame, err = parseRecords(root.Array())
	default:
		return nil, malformedInput("input must be a JSON object or array, got %s", root.Type)
	}

	if err != nil {
		return nil, err
	}

	if frame.Len() == 0 {
		return nil, malformedInput("input has no rows")
	}

	return frame, nil
}

func parseSplit(root gjson.Result) (*Frame, error) {
	frame := &Frame{}
	seen := make(map[string]struct{})

	for _, column := range root.Get("columns").Array() {
		if column.Type != gjson.String {
			return nil, malformedInput("column names must be strings, got %s", column.Raw)
		}

		if _, ok := seen[column.Str]; ok {
			return nil, malformedInput("column %q appears twice", column.Str)
		}

		seen[column.Str] = struct{}{}
		frame.Columns = append(frame.Columns, column.Str)
	}

	for i, row := range root.Get("data").Array() {
		if !row.IsArray() {
			return nil, malformedInput("row %d is not an array", i)
		}

		cells := row.Array()
		if len(cells) != len(frame.Columns) {
			return nil, malformedInput("row %d has %d values for %d columns", i, len(cells), len(frame.Columns))
		}

		values := make([]any, 0, len(cells))
		for _, cell := range cells {
			values = append(values, toValue(cell))
		}

		frame.Rows = append(frame.Rows, values)
	}

	return frame, nil
}

func parseRecords(records []gjson.Result) (*Frame, error) {
	frame := &Frame{}
	index := make(map[string]int)
	rows := make([]map[string]any, 0, len(records))

	for i, record := range records {
		if !record.IsObject() {
			return nil, malformedInput("record %d is not an object", i)
		}

		row := make(map[string]any)

		record.ForEach(func(key, value gjson.Result) bool {
			if _, ok := index[key.Str]; !ok {
				index[key.Str] = len(frame.Columns)
				frame.Columns = append(frame.Columns, key.Str)
			}

			row[key.Str] = toValue(value)

			return true
		})

		rows = append(rows, row)
	}

	for _, row := range rows {
		values := make([]any, len(frame.Columns))
		for column, value := range row {
			values[index[column]] = value
		}

		frame.Rows = append(frame.Rows, values)
	}

	return frame, nil
}

func toValue(result gjson.Result) any {
	switch result.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return json.Number(result.Raw)
	case gjson.String:
		return result.Str
	case gjson.JSON:
		if result.IsArray() {
			items := result.Array()
			values := make([]any, 0, len(items))

			for _, item := range items {
				values = append(values, toValue(item))
			}

			return values
		}

		// Nested objects are carried as opaque JSON text.
		return result.Raw
	default:
		return nil
	}
}

// ParseCSV reads a header row followed by data rows. Empty cells become nil,
// numbers become json.Number and "true"/"false" become booleans.
func ParseCSV(data []byte) (*Frame, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, malformedInput("failed to read csv header: %v", err)
	}

	frame := &Frame{Columns: header}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, malformedInput("failed to read csv row %d: %v", frame.Len()+1, err)
		}

		row := make([]any, 0, len(record))
		for _, cell := range record {
			row = append(row, csvValue(cell))
		}

		frame.Rows = append(frame.Rows, row)
	}

	if frame.Len() == 0 {
		return nil, malformedInput("input has no rows")
	}

	return frame, nil
}

func csvValue(cell string) any {
	switch strings.ToLower(cell) {
	case "":
		return nil
	case "true":
		return true
	case "false":
		return false
	}

	if _, err := strconv.ParseFloat(cell, 64); err == nil {
		return json.Number(cell)
	}

	return cell
}

// ParseSample dispatches on the declared sample format, "csv" or "json".
func ParseSample(data []byte, format string) (*Frame, error) {
	switch strings.ToLower(format) {
	case "csv", "text/csv":
		return ParseCSV(data)
	case "", "json", "application/json":
		return ParseFrame(data)
	default:
		return nil, malformedInput("unsupported sample format %q", format)
	}
}
