package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

func init() {
	RegisterFormat(FormatDefinition{
		Format:      FormatCSV,
		Label:       "CSV",
		Extension:   ".csv",
		ContentType: "text/csv",
		Aliases:     []string{"text/csv"},
		Read:        readCSV,
		Write:       writeCSV,
	})
}

// readCSV parses comma-separated bytes. The first record is the header.
// Short records are padded; a record wider than the header is rejected.
func readCSV(data []byte) (*Dataset, error) {
	r := csv.NewReader(NewTextReader(bytes.NewReader(data)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		if len(record) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: expected %d fields, saw %d",
				ErrInvalidCSV, line, len(header), len(record))
		}
		rows = append(rows, record)
	}

	return buildDataset(header, rows)
}

// writeCSV encodes the header and rows with missing cells as "". A record
// made of one empty field is written as a quoted "" because encoding/csv
// would emit a blank line, which readers skip.
func writeCSV(ds *Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	write := func(record []string) error {
		if len(record) == 1 && record[0] == "" {
			w.Flush()
			if err := w.Error(); err != nil {
				return err
			}
			_, err := buf.WriteString("\"\"\n")
			return err
		}
		return w.Write(record)
	}

	if err := write(ds.ColumnNames()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, record := range ds.Records() {
		if err := write(record); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}

	return buf.Bytes(), nil
}
