package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/models"
)

// CSV header names. Matching is case-insensitive and ignores surrounding
// whitespace.
const (
	ColumnName           = "name"
	ColumnCompletionDate = "completion_date"
	ColumnImageURL       = "certificate_image_url"
)

// ParseRows reads a batch CSV. The name and completion_date columns are
// required; certificate_image_url may be absent. Missing or blank cells
// become models.EmptyCell.
func ParseRows(r io.Reader) ([]models.BatchRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.NewInvalidInputError("csv is empty")
	}
	if err != nil {
		return nil, apperr.NewInvalidInputError(fmt.Sprintf("failed to read csv header: %v", err))
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	for _, required := range []string{ColumnName, ColumnCompletionDate} {
		if _, ok := columns[required]; !ok {
			return nil, apperr.NewInvalidInputError("csv is missing the " + required + " column")
		}
	}

	rows := make([]models.BatchRow, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.NewInvalidInputError(fmt.Sprintf("failed to read csv row %d: %v", len(rows)+1, err))
		}

		rows = append(rows, models.BatchRow{
			Name:                cell(record, columns, ColumnName),
			CompletionDate:      cell(record, columns, ColumnCompletionDate),
			CertificateImageURL: cell(record, columns, ColumnImageURL),
		})
	}
	return rows, nil
}

func cell(record []string, columns map[string]int, column string) string {
	i, ok := columns[column]
	if !ok || i >= len(record) {
		return models.EmptyCell
	}
	value := strings.TrimSpace(record[i])
	if value == "" {
		return models.EmptyCell
	}
	return value
}
