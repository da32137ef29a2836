package models

// EmptyCell marks a CSV value that was not provided.
const EmptyCell = "empty"

type BatchRow struct {
	Name                string `json:"name"`
	CompletionDate      string `json:"completion_date"`
	CertificateImageURL string `json:"certificate_image_url"`
}

// HasImageURL reports whether the row names a source image to fetch.
func (r BatchRow) HasImageURL() bool {
	return r.CertificateImageURL != EmptyCell
}

type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
)

// Outcome is the typed result of one batch row.
type Outcome struct {
	Index           int           `json:"index"`
	Row             BatchRow      `json:"row"`
	Status          OutcomeStatus `json:"status"`
	Layout          Layout        `json:"layout"`
	UsedPlaceholder bool          `json:"used_placeholder,omitempty"`
	Result          *MintResult   `json:"result,omitempty"`
	ErrorCode       string        `json:"error_code,omitempty"`
	Reason          string        `json:"reason,omitempty"`
}

func (o Outcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}
