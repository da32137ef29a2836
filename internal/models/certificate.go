package models

import "strings"

// Layout selects the template and text placement used by the composer.
type Layout string

const (
	LayoutIndividualPhoto Layout = "individual_photo"
	LayoutBatchCentered   Layout = "batch_centered"
	LayoutBatchPhoto      Layout = "batch_photo"
)

// HasPhoto reports whether the layout pastes a photo into the photo slot.
func (l Layout) HasPhoto() bool {
	return l == LayoutIndividualPhoto || l == LayoutBatchPhoto
}

func (l Layout) Valid() bool {
	switch l {
	case LayoutIndividualPhoto, LayoutBatchCentered, LayoutBatchPhoto:
		return true
	}
	return false
}

// CertificateRequest is built once per submission or batch row.
type CertificateRequest struct {
	SubjectName    string
	CompletionDate string
	SourceImage    []byte
	Layout         Layout
}

type PinnedArtifact struct {
	ContentAddress string `json:"content_address"`
}

// TokenMetadata is the document pinned as the token URI payload.
type TokenMetadata struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// NewTokenMetadata links the subject name to the pinned image.
func NewTokenMetadata(subjectName string, image PinnedArtifact) TokenMetadata {
	return TokenMetadata{
		Name:  subjectName,
		Image: image.ContentAddress,
	}
}

const ipfsScheme = "ipfs://"

// CertificateURI returns the token URI for a pinned metadata document.
func CertificateURI(metadataAddress string) string {
	return ipfsScheme + metadataAddress
}

// GatewayLink joins a gateway base like https://ipfs.io/ipfs/ with a content address.
func GatewayLink(gateway, contentAddress string) string {
	return strings.TrimSuffix(gateway, "/") + "/" + contentAddress
}

type RegistrationRecord struct {
	Owner               string
	SubjectName         string
	CompletionDate      string
	CertificateURI      string
	ImageContentAddress string
}

type Receipt struct {
	Success     bool   `json:"success"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
	TokenID     string `json:"token_id,omitempty"`
}

// MintResult is what a successful pipeline run surfaces to the operator.
type MintResult struct {
	MintID          string   `json:"mint_id"`
	Owner           string   `json:"owner"`
	SubjectName     string   `json:"subject_name"`
	CompletionDate  string   `json:"completion_date"`
	Layout          Layout   `json:"layout"`
	ImageAddress    string   `json:"image_content_address"`
	MetadataAddress string   `json:"metadata_content_address"`
	CertificateURI  string   `json:"certificate_uri"`
	MetadataLink    string   `json:"metadata_gateway_link"`
	ImageLink       string   `json:"image_gateway_link"`
	MetadataQR      string   `json:"metadata_qr_base64,omitempty"`
	PreviewURL      string   `json:"preview_url,omitempty"`
	Receipt         *Receipt `json:"receipt"`
	Preview         []byte   `json:"-"`
}
