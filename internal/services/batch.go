package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/certificate"
	"bootcamp-cert-minter/internal/metrics"
	"bootcamp-cert-minter/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxImageBytes caps a fetched row image.
const maxImageBytes = 20 << 20

type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads row images. Anything other than a 200 response
// carrying a decodable image is a FETCH_FAILED error.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.NewFetchFailedError(url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.NewFetchFailedError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.NewFetchFailedError(url, fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, apperr.NewFetchFailedError(url, err)
	}
	if len(body) > maxImageBytes {
		return nil, apperr.NewFetchFailedError(url, fmt.Errorf("image exceeds %d bytes", maxImageBytes))
	}
	if err := certificate.ValidateImage(body); err != nil {
		return nil, apperr.NewFetchFailedError(url, err)
	}
	return body, nil
}

// BatchReport collects the outcome of every row that ran.
type BatchReport struct {
	BatchID  uuid.UUID
	Owner    string
	Outcomes []models.Outcome
}

func (r *BatchReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

func (r *BatchReport) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// BatchService runs the mint pipeline over CSV rows, one at a time.
type BatchService struct {
	minter      *MinterService
	fetcher     ImageFetcher
	placeholder []byte
	events      EventPublisher
	logger      *zap.Logger
}

func NewBatchService(minter *MinterService, fetcher ImageFetcher, placeholder []byte, events EventPublisher, logger *zap.Logger) *BatchService {
	return &BatchService{
		minter:      minter,
		fetcher:     fetcher,
		placeholder: placeholder,
		events:      events,
		logger:      logger,
	}
}

// Run mints every row for owner in order. A recoverable failure is recorded
// on its row and the next row runs. Cancelling ctx stops the run before the
// next row starts; the row in flight always finishes. Missing assets and
// uncoded errors stop the run too. The report then holds the rows finished
// so far and the error is returned alongside it.
func (s *BatchService) Run(ctx context.Context, owner string, rows []models.BatchRow) (*BatchReport, error) {
	if err := ValidateOwner(owner); err != nil {
		return nil, err
	}

	report := &BatchReport{
		BatchID:  uuid.New(),
		Owner:    owner,
		Outcomes: make([]models.Outcome, 0, len(rows)),
	}

	metrics.BatchesActive.Inc()
	defer metrics.BatchesActive.Dec()

	logger := s.logger.With(zap.String("batch_id", report.BatchID.String()), zap.String("owner", owner))
	logger.Info("Batch started", zap.Int("rows", len(rows)))
	s.publish(owner, EventBatchStarted, map[string]interface{}{
		"batch_id": report.BatchID.String(),
		"rows":     len(rows),
	})

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			logger.Warn("Batch cancelled", zap.Int("row", i), zap.Error(err))
			return report, err
		}

		outcome, err := s.runRow(ctx, report.BatchID, owner, i, row)
		if err != nil {
			logger.Error("Batch aborted", zap.Int("row", i), zap.Error(err))
			return report, err
		}

		report.Outcomes = append(report.Outcomes, outcome)
		metrics.BatchRows.WithLabelValues(string(outcome.Status)).Inc()
	}

	logger.Info("Batch completed",
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()),
	)
	s.publish(owner, EventBatchCompleted, map[string]interface{}{
		"batch_id":  report.BatchID.String(),
		"succeeded": report.Succeeded(),
		"failed":    report.Failed(),
	})
	return report, nil
}

func (s *BatchService) runRow(ctx context.Context, batchID uuid.UUID, owner string, index int, row models.BatchRow) (models.Outcome, error) {
	// Each step is bounded by its own client timeout.
	ctx = context.WithoutCancel(ctx)

	req := models.CertificateRequest{
		SubjectName:    row.Name,
		CompletionDate: row.CompletionDate,
		Layout:         models.LayoutBatchCentered,
	}
	outcome := models.Outcome{Index: index, Row: row}

	if row.HasImageURL() {
		req.Layout = models.LayoutBatchPhoto

		data, err := s.fetcher.Fetch(ctx, row.CertificateImageURL)
		if err != nil {
			s.logger.Warn("Row image unavailable, using placeholder",
				zap.Int("row", index),
				zap.String("url", row.CertificateImageURL),
				zap.Error(err),
			)
			data = s.placeholder
			outcome.UsedPlaceholder = true
		}
		req.SourceImage = data
	}
	outcome.Layout = req.Layout

	result, err := s.minter.mint(ctx, uuid.NullUUID{UUID: batchID, Valid: true}, owner, req)
	if err != nil {
		if !apperr.Recoverable(err) {
			return outcome, err
		}
		outcome.Status = models.OutcomeFailure
		outcome.ErrorCode = string(apperr.CodeOf(err))
		outcome.Reason = err.Error()
		return outcome, nil
	}

	// Batch responses never carry the rendered image.
	result.Preview = nil
	outcome.Status = models.OutcomeSuccess
	outcome.Result = result
	return outcome, nil
}

func (s *BatchService) publish(owner, event string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOwnerEvent(owner, event, payload); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("event", event), zap.Error(err))
	}
}
