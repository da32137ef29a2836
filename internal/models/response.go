package models

import "time"

type AccountsResponse struct {
	Accounts []string `json:"accounts"`
}

type MintResponse struct {
	Result        *MintResult `json:"result"`
	PreviewBase64 string      `json:"preview_base64,omitempty"`
}

type BatchResponse struct {
	BatchID   string    `json:"batch_id"`
	Owner     string    `json:"owner"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Outcomes  []Outcome `json:"outcomes"`
	Error     string    `json:"error,omitempty"`
}

type MintsResponse struct {
	Mints []MintSummary `json:"mints"`
}

type MintSummary struct {
	ID              string    `json:"mint_id"`
	BatchID         string    `json:"batch_id,omitempty"`
	Owner           string    `json:"owner"`
	SubjectName     string    `json:"subject_name"`
	CompletionDate  string    `json:"completion_date"`
	Layout          string    `json:"layout"`
	Status          string    `json:"status"`
	ImageAddress    string    `json:"image_content_address,omitempty"`
	MetadataAddress string    `json:"metadata_content_address,omitempty"`
	TxHash          string    `json:"tx_hash,omitempty"`
	PreviewURL      string    `json:"preview_url,omitempty"`
	ErrorCode       string    `json:"error_code,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	ChainID  string `json:"chain_id,omitempty"`
	Database string `json:"database,omitempty"`
}
