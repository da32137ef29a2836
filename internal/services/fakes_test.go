package services_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"

	"bootcamp-cert-minter/internal/models"
	"bootcamp-cert-minter/internal/services"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const owner = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

type fakePinner struct {
	mu      sync.Mutex
	files   [][]byte
	docs    []interface{}
	fileErr error
	jsonErr error
}

func (p *fakePinner) PinBytes(_ context.Context, _ string, data []byte) (models.PinnedArtifact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fileErr != nil {
		return models.PinnedArtifact{}, p.fileErr
	}
	p.files = append(p.files, data)
	return models.PinnedArtifact{ContentAddress: fmt.Sprintf("QmImage%d", len(p.files))}, nil
}

func (p *fakePinner) PinJSON(_ context.Context, _ string, doc interface{}) (models.PinnedArtifact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.jsonErr != nil {
		return models.PinnedArtifact{}, p.jsonErr
	}
	p.docs = append(p.docs, doc)
	return models.PinnedArtifact{ContentAddress: fmt.Sprintf("QmMeta%d", len(p.docs))}, nil
}

// pinnedImage decodes the n-th pinned file.
func (p *fakePinner) pinnedImage(t *testing.T, n int) image.Image {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.Greater(t, len(p.files), n)
	img, err := imaging.Decode(bytes.NewReader(p.files[n]))
	require.NoError(t, err)
	return img
}

type fakeRegistrar struct {
	mu      sync.Mutex
	records []models.RegistrationRecord
	// rejects maps a subject name to the error returned for it.
	rejects map[string]error
	// onRegister runs after each registration is accepted.
	onRegister func()
}

func (r *fakeRegistrar) RegisterCertificate(_ context.Context, rec models.RegistrationRecord) (*models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	if err, ok := r.rejects[rec.SubjectName]; ok {
		return nil, err
	}
	if r.onRegister != nil {
		r.onRegister()
	}
	return &models.Receipt{
		Success:     true,
		TxHash:      fmt.Sprintf("0x%064x", len(r.records)),
		BlockNumber: uint64(len(r.records)),
		GasUsed:     21000,
	}, nil
}

type fakeHistory struct {
	mu    sync.Mutex
	mints []models.Mint
	err   error
}

func (h *fakeHistory) InsertMint(_ context.Context, m *models.Mint) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mints = append(h.mints, *m)
	return h.err
}

type fakePreviews struct {
	uploads int
	err     error
}

func (p *fakePreviews) UploadPreview(owner string, mintID uuid.UUID, _ []byte) (string, error) {
	p.uploads++
	if p.err != nil {
		return "", p.err
	}
	return "https://storage.example/owners/" + owner + "/" + mintID.String() + ".png", nil
}

type event struct {
	owner   string
	name    string
	payload map[string]interface{}
}

type fakeEvents struct {
	mu     sync.Mutex
	events []event
	err    error
}

func (e *fakeEvents) PublishOwnerEvent(owner, name string, payload map[string]interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event{owner: owner, name: name, payload: payload})
	return e.err
}

func (e *fakeEvents) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, len(e.events))
	for i, ev := range e.events {
		names[i] = ev.name
	}
	return names
}

type fakeFetcher struct {
	images map[string][]byte
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	if data, ok := f.images[url]; ok {
		return data, nil
	}
	return nil, errors.New("connection refused")
}

// failingRenderer fails with err when asked to render subject.
type failingRenderer struct {
	services.Renderer
	subject string
	err     error
}

func (r failingRenderer) Compose(req models.CertificateRequest) (image.Image, error) {
	if req.SubjectName == r.subject {
		return nil, r.err
	}
	return r.Renderer.Compose(req)
}
