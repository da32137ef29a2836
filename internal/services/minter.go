package services

import (
	"context"
	"database/sql"
	"image"
	"time"

	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/certificate"
	"bootcamp-cert-minter/internal/metrics"
	"bootcamp-cert-minter/internal/models"
	"bootcamp-cert-minter/internal/pinata"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mint event names published to subscribers.
const (
	EventMintCompleted  = "mint_completed"
	EventMintFailed     = "mint_failed"
	EventBatchStarted   = "batch_started"
	EventBatchCompleted = "batch_completed"
)

type Renderer interface {
	Compose(req models.CertificateRequest) (image.Image, error)
}

type Pinner interface {
	PinBytes(ctx context.Context, filename string, data []byte) (models.PinnedArtifact, error)
	PinJSON(ctx context.Context, name string, document interface{}) (models.PinnedArtifact, error)
}

type Registrar interface {
	RegisterCertificate(ctx context.Context, rec models.RegistrationRecord) (*models.Receipt, error)
}

// HistoryRecorder persists every mint attempt.
type HistoryRecorder interface {
	InsertMint(ctx context.Context, mint *models.Mint) error
}

// PreviewStore keeps a copy of the rendered certificate and returns its URL.
type PreviewStore interface {
	UploadPreview(owner string, mintID uuid.UUID, data []byte) (string, error)
}

type EventPublisher interface {
	PublishOwnerEvent(owner, event string, payload map[string]interface{}) error
}

// MinterService runs the compose, pin and register pipeline for one
// certificate. History, preview storage and events are optional and
// best-effort: their failures are logged and never change the outcome.
type MinterService struct {
	renderer   Renderer
	pinner     Pinner
	registrar  Registrar
	history    HistoryRecorder
	previews   PreviewStore
	events     EventPublisher
	gatewayURL string
	logger     *zap.Logger
}

func NewMinterService(
	renderer Renderer,
	pinner Pinner,
	registrar Registrar,
	history HistoryRecorder,
	previews PreviewStore,
	events EventPublisher,
	gatewayURL string,
	logger *zap.Logger,
) *MinterService {
	return &MinterService{
		renderer:   renderer,
		pinner:     pinner,
		registrar:  registrar,
		history:    history,
		previews:   previews,
		events:     events,
		gatewayURL: gatewayURL,
		logger:     logger,
	}
}

// Mint renders, pins and registers a single certificate for owner.
func (s *MinterService) Mint(ctx context.Context, owner string, req models.CertificateRequest) (*models.MintResult, error) {
	return s.mint(ctx, uuid.NullUUID{}, owner, req)
}

// Preview renders a certificate without pinning or registering it.
func (s *MinterService) Preview(req models.CertificateRequest) ([]byte, error) {
	if err := validateRender(req); err != nil {
		return nil, err
	}
	img, err := s.renderer.Compose(req)
	if err != nil {
		return nil, err
	}
	return certificate.EncodePNG(img)
}

func (s *MinterService) mint(ctx context.Context, batchID uuid.NullUUID, owner string, req models.CertificateRequest) (*models.MintResult, error) {
	start := time.Now()
	mintID := uuid.New()
	result := &models.MintResult{
		MintID:         mintID.String(),
		Owner:          owner,
		SubjectName:    req.SubjectName,
		CompletionDate: req.CompletionDate,
		Layout:         req.Layout,
	}

	err := s.run(ctx, mintID, owner, req, result)

	metrics.CertificateMints.WithLabelValues(string(req.Layout), metrics.Status(err)).Inc()
	metrics.CertificateMintDuration.WithLabelValues(string(req.Layout)).Observe(time.Since(start).Seconds())

	s.record(ctx, mintID, batchID, result, err)

	if err != nil {
		s.logger.Warn("Certificate mint failed",
			zap.String("mint_id", result.MintID),
			zap.String("owner", owner),
			zap.String("error_code", string(apperr.CodeOf(err))),
			zap.Error(err),
		)
		s.publish(owner, EventMintFailed, map[string]interface{}{
			"mint_id":      result.MintID,
			"subject_name": req.SubjectName,
			"error_code":   string(apperr.CodeOf(err)),
			"error":        err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Certificate minted",
		zap.String("mint_id", result.MintID),
		zap.String("owner", owner),
		zap.String("certificate_uri", result.CertificateURI),
		zap.String("tx_hash", result.Receipt.TxHash),
		zap.Duration("duration", time.Since(start)),
	)
	s.publish(owner, EventMintCompleted, map[string]interface{}{
		"mint_id":         result.MintID,
		"subject_name":    req.SubjectName,
		"certificate_uri": result.CertificateURI,
		"tx_hash":         result.Receipt.TxHash,
	})
	return result, nil
}

// run fills result as each step completes so a failure still leaves the
// addresses that were produced.
func (s *MinterService) run(ctx context.Context, mintID uuid.UUID, owner string, req models.CertificateRequest, result *models.MintResult) error {
	if err := validateMint(owner, req); err != nil {
		return err
	}

	img, err := s.renderer.Compose(req)
	if err != nil {
		return err
	}
	data, err := certificate.EncodePNG(img)
	if err != nil {
		return err
	}
	result.Preview = data

	imageArtifact, err := s.pinner.PinBytes(ctx, result.MintID+".png", data)
	metrics.CertificatePins.WithLabelValues(metrics.PinKindImage, metrics.Status(err)).Inc()
	if err != nil {
		return err
	}
	result.ImageAddress = imageArtifact.ContentAddress

	meta := models.NewTokenMetadata(req.SubjectName, imageArtifact)
	if err := pinata.ValidateMetadata(meta); err != nil {
		return err
	}

	metaArtifact, err := s.pinner.PinJSON(ctx, result.MintID+".json", meta)
	metrics.CertificatePins.WithLabelValues(metrics.PinKindMetadata, metrics.Status(err)).Inc()
	if err != nil {
		return err
	}
	result.MetadataAddress = metaArtifact.ContentAddress
	result.CertificateURI = models.CertificateURI(metaArtifact.ContentAddress)

	receipt, err := s.registrar.RegisterCertificate(ctx, models.RegistrationRecord{
		Owner:               owner,
		SubjectName:         req.SubjectName,
		CompletionDate:      req.CompletionDate,
		CertificateURI:      result.CertificateURI,
		ImageContentAddress: imageArtifact.ContentAddress,
	})
	result.Receipt = receipt
	if err != nil {
		return err
	}
	if receipt == nil || !receipt.Success {
		return apperr.NewSubmissionRejectedError("registration was not confirmed", nil)
	}

	result.MetadataLink = models.GatewayLink(s.gatewayURL, result.MetadataAddress)
	result.ImageLink = models.GatewayLink(s.gatewayURL, result.ImageAddress)

	if qr, err := certificate.QRCode(result.MetadataLink); err != nil {
		s.logger.Warn("Failed to generate QR code", zap.String("mint_id", result.MintID), zap.Error(err))
	} else {
		result.MetadataQR = qr
	}

	if s.previews != nil {
		url, err := s.previews.UploadPreview(owner, mintID, data)
		if err != nil {
			s.logger.Warn("Failed to store certificate preview", zap.String("mint_id", result.MintID), zap.Error(err))
		} else {
			result.PreviewURL = url
		}
	}

	return nil
}

func (s *MinterService) record(ctx context.Context, mintID uuid.UUID, batchID uuid.NullUUID, result *models.MintResult, mintErr error) {
	if s.history == nil {
		return
	}

	mint := &models.Mint{
		ID:              mintID,
		BatchID:         batchID,
		Owner:           result.Owner,
		SubjectName:     result.SubjectName,
		CompletionDate:  result.CompletionDate,
		Layout:          string(result.Layout),
		Status:          metrics.Status(mintErr),
		ImageAddress:    nullString(result.ImageAddress),
		MetadataAddress: nullString(result.MetadataAddress),
		PreviewURL:      nullString(result.PreviewURL),
	}
	if result.Receipt != nil {
		mint.TxHash = nullString(result.Receipt.TxHash)
	}
	if mintErr != nil {
		mint.ErrorCode = nullString(string(apperr.CodeOf(mintErr)))
		mint.ErrorMessage = nullString(mintErr.Error())
	}

	// The request context may already be cancelled; the record is still wanted.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.history.InsertMint(recordCtx, mint); err != nil {
		s.logger.Warn("Failed to record mint history", zap.String("mint_id", result.MintID), zap.Error(err))
	}
}

func (s *MinterService) publish(owner, event string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOwnerEvent(owner, event, payload); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("event", event), zap.Error(err))
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Summary converts a history row for API responses.
func Summary(m models.Mint) models.MintSummary {
	summary := models.MintSummary{
		ID:              m.ID.String(),
		Owner:           m.Owner,
		SubjectName:     m.SubjectName,
		CompletionDate:  m.CompletionDate,
		Layout:          m.Layout,
		Status:          m.Status,
		ImageAddress:    m.ImageAddress.String,
		MetadataAddress: m.MetadataAddress.String,
		TxHash:          m.TxHash.String,
		PreviewURL:      m.PreviewURL.String,
		ErrorCode:       m.ErrorCode.String,
		ErrorMessage:    m.ErrorMessage.String,
		CreatedAt:       m.CreatedAt,
	}
	if m.BatchID.Valid {
		summary.BatchID = m.BatchID.UUID.String()
	}
	return summary
}
