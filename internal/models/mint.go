package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Mint is a row of the certificate_mints history table.
type Mint struct {
	ID              uuid.UUID
	BatchID         uuid.NullUUID
	Owner           string
	SubjectName     string
	CompletionDate  string
	Layout          string
	Status          string
	ImageAddress    sql.NullString
	MetadataAddress sql.NullString
	TxHash          sql.NullString
	PreviewURL      sql.NullString
	ErrorCode       sql.NullString
	ErrorMessage    sql.NullString
	CreatedAt       time.Time
}
