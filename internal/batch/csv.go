package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"ytqueue/internal/queue"
)

// Row is one line of batch metadata.
type Row struct {
	File        string
	Title       string
	Description string
	Tags        []string
	PublishAt   string
}

// LoadCSV reads batch metadata from path.
func LoadCSV(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open csv %s: %w", queue.ErrStorage, path, err)
	}
	defer file.Close()
	rows, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ParseCSV reads batch metadata. An empty input yields no rows. Malformed
// input or a header without a file column is an ErrParse.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: csv header: %v", queue.ErrParse, err)
	}
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := columns[key]; !dup {
			columns[key] = idx
		}
	}
	if _, ok := columns["file"]; !ok {
		return nil, fmt.Errorf("%w: csv header has no file column", queue.ErrParse)
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv: %v", queue.ErrParse, err)
		}
		file := strings.TrimSpace(field(record, "file"))
		if file == "" {
			continue
		}
		rows = append(rows, Row{
			File:        file,
			Title:       field(record, "title"),
			Description: field(record, "description"),
			Tags:        SplitTags(field(record, "tags")),
			PublishAt:   strings.TrimSpace(field(record, "publish_at")),
		})
	}
	return rows, nil
}

// SplitTags splits a comma separated tag list, dropping blanks.
func SplitTags(value string) []string {
	var tags []string
	for _, tag := range strings.Split(value, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
