package pinata_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/models"
	"bootcamp-cert-minter/internal/pinata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("pinata_api_key"))
		assert.Equal(t, "secret", r.Header.Get("pinata_secret_api_key"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)

		assert.Equal(t, "certificate.png", header.Filename)
		assert.Equal(t, []byte("png bytes"), data)
		assert.JSONEq(t, `{"name":"certificate.png"}`, r.FormValue("pinataMetadata"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"IpfsHash":"QmImage","PinSize":9,"Timestamp":"2022-12-01T00:00:00Z"}`))
	}))
	defer server.Close()

	client := pinata.NewClient(server.URL, "key", "secret", 5*time.Second)
	artifact, err := client.PinBytes(context.Background(), "certificate.png", []byte("png bytes"))

	require.NoError(t, err)
	assert.Equal(t, "QmImage", artifact.ContentAddress)
}

func TestPinJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"name": "Jane Doe", "image": "QmImage"}, body["pinataContent"])
		assert.Equal(t, map[string]interface{}{"name": "Jane Doe"}, body["pinataMetadata"])

		w.Write([]byte(`{"IpfsHash":"QmMeta"}`))
	}))
	defer server.Close()

	client := pinata.NewClient(server.URL+"/", "key", "secret", 5*time.Second)
	meta := models.NewTokenMetadata("Jane Doe", models.PinnedArtifact{ContentAddress: "QmImage"})
	artifact, err := client.PinJSON(context.Background(), "Jane Doe", meta)

	require.NoError(t, err)
	assert.Equal(t, "QmMeta", artifact.ContentAddress)
}

func TestPin_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"Invalid API key"}`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>`))
			},
		},
		{
			name: "missing hash",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"PinSize":3}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := pinata.NewClient(server.URL, "key", "secret", 5*time.Second)

			_, err := client.PinBytes(context.Background(), "certificate.png", []byte("x"))
			assert.True(t, apperr.Is(err, apperr.CodePinFailed), err)

			_, err = client.PinJSON(context.Background(), "meta", map[string]string{"a": "b"})
			assert.True(t, apperr.Is(err, apperr.CodePinFailed), err)
		})
	}
}

func TestPin_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := pinata.NewClient(server.URL, "key", "secret", 50*time.Millisecond)
	_, err := client.PinBytes(context.Background(), "certificate.png", []byte("x"))
	assert.True(t, apperr.Is(err, apperr.CodePinFailed))
}

func TestValidateMetadata(t *testing.T) {
	assert.NoError(t, pinata.ValidateMetadata(models.TokenMetadata{Name: "Jane Doe", Image: "QmImage"}))

	err := pinata.ValidateMetadata(models.TokenMetadata{Name: "", Image: "QmImage"})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))

	err = pinata.ValidateMetadata(models.TokenMetadata{Name: "Jane Doe", Image: "ipfs://QmImage"})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
}
