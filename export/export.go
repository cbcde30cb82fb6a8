// Package export writes ExecuteQuery results to files and streams.
// Every format keeps columns in ResultSet.Columns order.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/peoplesoft"
)

// Format names an output encoding
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"  // array of objects
	FormatJSONL Format = "jsonl" // one object per line
	FormatYAML  Format = "yaml"  // sequence of mappings
	FormatRaw   Format = "raw"   // response body as received
)

// Formats lists every supported format
var Formats = []Format{FormatCSV, FormatJSON, FormatJSONL, FormatYAML, FormatRaw}

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "xml" {
		return FormatRaw, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.WithHint(
		errors.Newf("unsupported export format %q", s),
		"use one of: csv, json, jsonl, yaml, raw",
	)
}

// FormatFromPath picks a format from a file extension; unknown extensions are JSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".yaml", ".yml":
		return FormatYAML
	case ".xml":
		return FormatRaw
	default:
		return FormatJSON
	}
}

// Options tune CSV output
type Options struct {
	// Delimiter replaces the CSV comma (e.g. ';' or '\t')
	Delimiter rune
	// Columns restricts and orders the exported fields; empty = all columns
	Columns []string
}

// Write encodes rs (or raw, for FormatRaw) to w
func Write(w io.Writer, format Format, rs *peoplesoft.ResultSet, raw string, opts Options) error {
	if format == FormatRaw {
		_, err := io.WriteString(w, raw)
		return errors.Wrap(err, "failed to write raw response")
	}
	if rs == nil {
		return errors.New("no parsed rows to export")
	}

	columns := rs.Columns
	if len(opts.Columns) > 0 {
		columns = opts.Columns
	}

	switch format {
	case FormatCSV:
		return writeCSV(w, columns, rs.Rows, opts.Delimiter)
	case FormatJSON:
		return writeJSON(w, columns, rs.Rows)
	case FormatJSONL:
		return writeJSONL(w, columns, rs.Rows)
	case FormatYAML:
		return writeYAML(w, columns, rs.Rows)
	default:
		return errors.Newf("unsupported export format %q", format)
	}
}

// WriteFile writes to path, creating parent directories.
// The file is written only after encoding succeeds.
func WriteFile(path string, format Format, rs *peoplesoft.ResultSet, raw string, opts Options) error {
	var buf bytes.Buffer
	if err := Write(&buf, format, rs, raw, opts); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create directory for %s", path)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

func writeCSV(w io.Writer, columns []string, rows []peoplesoft.Row, delimiter rune) error {
	writer := csv.NewWriter(w)
	if delimiter != 0 {
		writer.Comma = delimiter
	}

	if err := writer.Write(columns); err != nil {
		return errors.Wrap(err, "failed to write headers")
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = row[col]
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "failed to write row")
		}
	}

	writer.Flush()
	return errors.Wrap(writer.Error(), "failed to flush CSV")
}

// orderedRow encodes a row as a JSON object with keys in column order.
// Fields the row does not have are omitted.
func orderedRow(columns []string, row peoplesoft.Row) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, col := range columns {
		value, ok := row[col]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(w io.Writer, columns []string, rows []peoplesoft.Row) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rows {
		obj, err := orderedRow(columns, row)
		if err != nil {
			return errors.Wrap(err, "failed to encode row")
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(obj)
	}
	buf.WriteByte(']')

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, buf.Bytes(), "", "  "); err != nil {
		return errors.Wrap(err, "failed to indent JSON")
	}
	pretty.WriteByte('\n')
	_, err := w.Write(pretty.Bytes())
	return errors.Wrap(err, "failed to write JSON")
}

func writeJSONL(w io.Writer, columns []string, rows []peoplesoft.Row) error {
	for _, row := range rows {
		obj, err := orderedRow(columns, row)
		if err != nil {
			return errors.Wrap(err, "failed to encode row")
		}
		obj = append(obj, '\n')
		if _, err := w.Write(obj); err != nil {
			return errors.Wrap(err, "failed to write JSON line")
		}
	}
	return nil
}

func writeYAML(w io.Writer, columns []string, rows []peoplesoft.Row) error {
	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range rows {
		mapping := &yaml.Node{Kind: yaml.MappingNode}
		for _, col := range columns {
			value, ok := row[col]
			if !ok {
				continue
			}
			mapping.Content = append(mapping.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
			)
		}
		doc.Content = append(doc.Content, mapping)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "failed to encode YAML")
	}
	return errors.Wrap(enc.Close(), "failed to flush YAML")
}
