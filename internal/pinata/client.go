// Package pinata pins certificate images and metadata documents to IPFS
// through the Pinata pinning API.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/models"
)

const (
	pinFilePath = "/pinning/pinFileToIPFS"
	pinJSONPath = "/pinning/pinJSONToIPFS"
)

type Client struct {
	baseURL    string
	apiKey     string
	secretKey  string
	httpClient *http.Client
}

// PinResponse is the body Pinata returns for both pin endpoints.
type PinResponse struct {
	IpfsHash    string `json:"IpfsHash"`
	PinSize     int64  `json:"PinSize"`
	Timestamp   string `json:"Timestamp"`
	IsDuplicate bool   `json:"isDuplicate,omitempty"`
}

type pinMetadata struct {
	Name string `json:"name"`
}

type pinJSONRequest struct {
	PinataContent  interface{} `json:"pinataContent"`
	PinataMetadata pinMetadata `json:"pinataMetadata"`
}

func NewClient(baseURL, apiKey, secretKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PinBytes pins raw file content and returns its content address.
func (c *Client) PinBytes(ctx context.Context, filename string, data []byte) (models.PinnedArtifact, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return models.PinnedArtifact{}, apperr.NewPinFailedError("file", fmt.Errorf("failed to create form file: %w", err))
	}
	if _, err := part.Write(data); err != nil {
		return models.PinnedArtifact{}, apperr.NewPinFailedError("file", fmt.Errorf("failed to write form file: %w", err))
	}

	meta, err := json.Marshal(pinMetadata{Name: filename})
	if err != nil {
		return models.PinnedArtifact{}, apperr.NewPinFailedError("file", fmt.Errorf("failed to marshal metadata: %w", err))
	}
	if err := writer.WriteField("pinataMetadata", string(meta)); err != nil {
		return models.PinnedArtifact{}, apperr.NewPinFailedError("file", fmt.Errorf("failed to write metadata: %w", err))
	}
	if err := writer.Close(); err != nil {
		return models.PinnedArtifact{}, apperr.NewPinFailedError("file", fmt.Errorf("failed to close multipart writer: %w", err))
	}

	out, err := c.do(ctx, pinFilePath, writer.FormDataContentType(), &body)
	if err != nil {
		return models.PinnedArtifact{}, apperr.NewPinFailedError("file", err)
	}
	return models.PinnedArtifact{ContentAddress: out.IpfsHash}, nil
}

// PinJSON pins a JSON document under the given pin name.
func (c *Client) PinJSON(ctx context.Context, name string, document interface{}) (models.PinnedArtifact, error) {
	jsonData, err := json.Marshal(pinJSONRequest{
		PinataContent:  document,
		PinataMetadata: pinMetadata{Name: name},
	})
	if err != nil {
		return models.PinnedArtifact{}, apperr.NewPinFailedError("json", fmt.Errorf("failed to marshal request: %w", err))
	}

	out, err := c.do(ctx, pinJSONPath, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return models.PinnedArtifact{}, apperr.NewPinFailedError("json", err)
	}
	return models.PinnedArtifact{ContentAddress: out.IpfsHash}, nil
}

func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader) (*PinResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("pinata_api_key", c.apiKey)
	req.Header.Set("pinata_secret_api_key", c.secretKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pinning failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var out PinResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	if out.IpfsHash == "" {
		return nil, fmt.Errorf("response carried no IpfsHash, body: %s", string(respBody))
	}
	return &out, nil
}
