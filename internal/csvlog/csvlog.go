// Package csvlog reads and writes the CSV layout shared by the file store,
// the export endpoint and the S3 archive.
//
// Reading is tolerant: columns are matched by header name, short or long
// rows are accepted, and rows the CSV parser rejects are skipped.
package csvlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mmynk/rowflow/internal/models"
)

// WriteRecords writes rows as CSV, preceded by header when it is non-nil.
func WriteRecords(w io.Writer, header []string, rows ...[]string) error {
	cw := csv.NewWriter(w)
	if header != nil {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// WriteLog writes a complete partition: header followed by entries.
func WriteLog(w io.Writer, entries []models.Entry) error {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = e.Record()
	}
	return WriteRecords(w, models.EntryColumns, rows...)
}

// ReadTable reads a headed CSV table into one map per row, keyed by column
// name. Columns missing from a row read as "". An empty input has no rows.
func ReadTable(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadEntries reads a partition.
func ReadEntries(r io.Reader) ([]models.Entry, error) {
	rows, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	entries := make([]models.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.EntryFromFields(row))
	}
	return entries, nil
}

// ReadAccounts reads the account registry. Rows without a username are
// ignored.
func ReadAccounts(r io.Reader) ([]models.Account, error) {
	rows, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	accounts := make([]models.Account, 0, len(rows))
	for _, row := range rows {
		username := strings.TrimSpace(row[models.FieldUsername])
		if username == "" {
			continue
		}
		accounts = append(accounts, models.Account{
			Username:     username,
			PasswordHash: row[models.FieldPasswordHash],
			CreatedAt:    models.ParseTimestamp(row[models.FieldCreatedAt]),
			StorageID:    strings.TrimSpace(row[models.FieldStorageID]),
		})
	}
	return accounts, nil
}
