package handlers

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/models"
	"bootcamp-cert-minter/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxUploadBytes   = 20 << 20
	defaultListLimit = 100
)

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// AccountLister is satisfied by the registry client.
type AccountLister interface {
	Accounts(ctx context.Context) ([]string, error)
}

// MintHistory is satisfied by the supabase database client.
type MintHistory interface {
	ListMints(ctx context.Context, owner string, limit int) ([]models.Mint, error)
	GetMint(ctx context.Context, id uuid.UUID) (*models.Mint, error)
}

type CertificatesHandler struct {
	minter   *services.MinterService
	batch    *services.BatchService
	accounts AccountLister
	history  MintHistory
	logger   *zap.Logger
}

// NewCertificatesHandler wires the pipeline into gin. history may be nil
// when no database is configured.
func NewCertificatesHandler(
	minter *services.MinterService,
	batch *services.BatchService,
	accounts AccountLister,
	history MintHistory,
	logger *zap.Logger,
) *CertificatesHandler {
	return &CertificatesHandler{
		minter:   minter,
		batch:    batch,
		accounts: accounts,
		history:  history,
		logger:   logger,
	}
}

func (h *CertificatesHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.Accounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "failed to list accounts",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, models.AccountsResponse{Accounts: accounts})
}

func (h *CertificatesHandler) Mint(c *gin.Context) {
	var form models.MintForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid form", Message: err.Error()})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "image file is required"})
		return
	}
	data, err := readImage(fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}

	owner, ok := h.selectAccount(c, form.Account)
	if !ok {
		return
	}

	result, err := h.minter.Mint(c.Request.Context(), owner, models.CertificateRequest{
		SubjectName:    form.Name,
		CompletionDate: form.CompletionDate,
		SourceImage:    data,
		Layout:         models.LayoutIndividualPhoto,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := models.MintResponse{Result: result}
	if result.PreviewURL == "" {
		response.PreviewBase64 = base64.StdEncoding.EncodeToString(result.Preview)
	}
	c.JSON(http.StatusOK, response)
}

// Preview renders a certificate and returns the PNG. The image field is
// only read for layouts with a photo.
func (h *CertificatesHandler) Preview(c *gin.Context) {
	var form models.PreviewForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid form", Message: err.Error()})
		return
	}

	layout := models.LayoutIndividualPhoto
	if form.Layout != "" {
		layout = models.Layout(form.Layout)
	}

	req := models.CertificateRequest{
		SubjectName:    form.Name,
		CompletionDate: form.CompletionDate,
		Layout:         layout,
	}
	if layout.HasPhoto() {
		fileHeader, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "image file is required"})
			return
		}
		data, err := readImage(fileHeader)
		if err != nil {
			respondError(c, err)
			return
		}
		req.SourceImage = data
	}

	png, err := h.minter.Preview(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *CertificatesHandler) Batch(c *gin.Context) {
	var form models.BatchForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid form", Message: err.Error()})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "csv file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to open csv file", Message: err.Error()})
		return
	}
	defer file.Close()

	rows, err := services.ParseRows(file)
	if err != nil {
		respondError(c, err)
		return
	}

	owner, ok := h.selectAccount(c, form.Account)
	if !ok {
		return
	}

	report, err := h.batch.Run(c.Request.Context(), owner, rows)
	if report == nil {
		respondError(c, err)
		return
	}

	response := models.BatchResponse{
		BatchID:   report.BatchID.String(),
		Owner:     report.Owner,
		Total:     len(rows),
		Succeeded: report.Succeeded(),
		Failed:    report.Failed(),
		Outcomes:  report.Outcomes,
	}
	if err != nil {
		// Aborted runs still report the rows that finished.
		c.Error(err)
		response.Error = err.Error()
		c.JSON(StatusFor(err), response)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *CertificatesHandler) ListMints(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "database not available"})
		return
	}

	owner := c.Query("owner")
	if err := services.ValidateOwner(owner); err != nil {
		respondError(c, err)
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	mints, err := h.history.ListMints(c.Request.Context(), owner, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to list mints",
			Message: err.Error(),
		})
		return
	}

	summaries := make([]models.MintSummary, len(mints))
	for i, m := range mints {
		summaries[i] = services.Summary(m)
	}
	c.JSON(http.StatusOK, models.MintsResponse{Mints: summaries})
}

func (h *CertificatesHandler) GetMint(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "database not available"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.NewInvalidInputError("mint id must be a UUID"))
		return
	}

	mint, err := h.history.GetMint(c.Request.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "mint not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to get mint",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, services.Summary(*mint))
}

// selectAccount resolves account against the node's unlocked accounts and
// returns the node's spelling of it. It writes the error response itself.
func (h *CertificatesHandler) selectAccount(c *gin.Context, account string) (string, bool) {
	if err := services.ValidateOwner(account); err != nil {
		respondError(c, err)
		return "", false
	}

	accounts, err := h.accounts.Accounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "failed to list accounts",
			Message: err.Error(),
		})
		return "", false
	}
	for _, a := range accounts {
		if strings.EqualFold(a, account) {
			return a, true
		}
	}

	respondError(c, apperr.NewInvalidInputError(fmt.Sprintf("account %s is not unlocked on the ledger node", account)))
	return "", false
}

func readImage(fileHeader *multipart.FileHeader) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedImageExtensions[ext] {
		return nil, apperr.NewInvalidInputError("image must be a .jpg, .jpeg or .png file")
	}
	if fileHeader.Size > maxUploadBytes {
		return nil, apperr.NewInvalidInputError(fmt.Sprintf("image exceeds %d bytes", maxUploadBytes))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded image: %w", err)
	}
	return data, nil
}
