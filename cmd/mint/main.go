// Command mint drives the certificate pipeline from a terminal.
//
//	mint accounts
//	mint single  -account 0x... -name "Jane Doe" -date "December 2022" -image jane.png [-out cert.png]
//	mint batch   -account 0x... -csv cohort.csv
//	mint preview -name "Jane Doe" -date "December 2022" [-layout batch_centered] [-image jane.png] -out cert.png
//	mint assets  [-dir ./assets]
//
// preview and assets only read the environment for ASSETS_DIR and logging,
// so they run without ledger or Pinata credentials.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"bootcamp-cert-minter/internal/app"
	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/assets"
	"bootcamp-cert-minter/internal/certificate"
	"bootcamp-cert-minter/internal/config"
	"bootcamp-cert-minter/internal/logger"
	"bootcamp-cert-minter/internal/models"
	"bootcamp-cert-minter/internal/services"

	"go.uber.org/zap"
)

const usage = `usage: mint <command> [flags]

commands:
  accounts   list the ledger node's unlocked accounts
  single     mint one certificate from a photo
  batch      mint one certificate per CSV row
  preview    render a certificate to a PNG file without minting
  assets     write development templates, fonts and placeholder to ASSETS_DIR
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	zapLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	switch os.Args[1] {
	case "accounts":
		err = runAccounts(ctx, cfg, zapLogger)
	case "single":
		err = runSingle(ctx, cfg, zapLogger, args)
	case "batch":
		err = runBatch(ctx, cfg, zapLogger, args)
	case "preview":
		err = runPreview(cfg, args)
	case "assets":
		err = runAssets(cfg, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if apperr.Is(err, apperr.CodeInvalidInput) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func runAccounts(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) error {
	application, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer application.Close()

	accounts, err := application.Registry.Accounts(ctx)
	if err != nil {
		return err
	}
	return printJSON(models.AccountsResponse{Accounts: accounts})
}

func runSingle(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("single", flag.ContinueOnError)
	account := fs.String("account", "", "sender and owner address")
	name := fs.String("name", "", "certificate holder's name")
	date := fs.String("date", "", "completion date as printed")
	imagePath := fs.String("image", "", "photo (.jpg, .jpeg or .png)")
	out := fs.String("out", "", "optional path for the rendered PNG")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := readPhoto(*imagePath)
	if err != nil {
		return err
	}

	application, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer application.Close()

	owner, err := selectAccount(ctx, application, *account)
	if err != nil {
		return err
	}

	result, err := application.Minter.Mint(ctx, owner, models.CertificateRequest{
		SubjectName:    *name,
		CompletionDate: *date,
		SourceImage:    data,
		Layout:         models.LayoutIndividualPhoto,
	})
	if err != nil {
		return err
	}

	if *out != "" {
		if err := os.WriteFile(*out, result.Preview, 0o644); err != nil {
			return fmt.Errorf("failed to write preview: %w", err)
		}
	}
	return printJSON(models.MintResponse{Result: result})
}

func runBatch(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	account := fs.String("account", "", "sender and owner address")
	csvPath := fs.String("csv", "", "CSV with name, completion_date and certificate_image_url columns")
	if err := fs.Parse(args); err != nil {
		return err
	}

	file, err := os.Open(*csvPath)
	if err != nil {
		return apperr.NewInvalidInputError(fmt.Sprintf("cannot open csv: %v", err))
	}
	defer file.Close()

	rows, err := services.ParseRows(file)
	if err != nil {
		return err
	}

	application, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer application.Close()

	owner, err := selectAccount(ctx, application, *account)
	if err != nil {
		return err
	}

	report, runErr := application.Batch.Run(ctx, owner, rows)
	if report == nil {
		return runErr
	}

	response := models.BatchResponse{
		BatchID:   report.BatchID.String(),
		Owner:     report.Owner,
		Total:     len(rows),
		Succeeded: report.Succeeded(),
		Failed:    report.Failed(),
		Outcomes:  report.Outcomes,
	}
	if runErr != nil {
		response.Error = runErr.Error()
	}
	if err := printJSON(response); err != nil {
		return err
	}
	return runErr
}

// runPreview only needs the assets, so it never dials the ledger node.
func runPreview(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	name := fs.String("name", "", "certificate holder's name")
	date := fs.String("date", "", "completion date as printed")
	layout := fs.String("layout", string(models.LayoutIndividualPhoto), "individual_photo, batch_centered or batch_photo")
	imagePath := fs.String("image", "", "photo for layouts with a photo slot")
	out := fs.String("out", "certificate.png", "path for the rendered PNG")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := models.CertificateRequest{
		SubjectName:    *name,
		CompletionDate: *date,
		Layout:         models.Layout(*layout),
	}
	if !req.Layout.Valid() {
		return apperr.NewInvalidInputError(fmt.Sprintf("unknown layout %q", *layout))
	}
	if req.Layout.HasPhoto() {
		data, err := readPhoto(*imagePath)
		if err != nil {
			return err
		}
		req.SourceImage = data
	}

	store, err := assets.Load(cfg.AssetsDir)
	if err != nil {
		return err
	}
	minter := services.NewMinterService(certificate.NewComposer(store), nil, nil, nil, nil, nil, cfg.IPFSGatewayURL, zap.NewNop())

	png, err := minter.Preview(req)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, png, 0o644); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	fmt.Println(*out)
	return nil
}

func runAssets(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("assets", flag.ContinueOnError)
	dir := fs.String("dir", cfg.AssetsDir, "directory to write the asset tree to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := assets.Scaffold(*dir); err != nil {
		return err
	}
	fmt.Println(*dir)
	return nil
}

func selectAccount(ctx context.Context, application *app.App, account string) (string, error) {
	if err := services.ValidateOwner(account); err != nil {
		return "", err
	}
	accounts, err := application.Registry.Accounts(ctx)
	if err != nil {
		return "", err
	}
	for _, a := range accounts {
		if strings.EqualFold(a, account) {
			return a, nil
		}
	}
	return "", apperr.NewInvalidInputError(fmt.Sprintf("account %s is not unlocked on the ledger node", account))
}

func readPhoto(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
	default:
		return nil, apperr.NewInvalidInputError("image must be a .jpg, .jpeg or .png file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.NewInvalidInputError(fmt.Sprintf("cannot read image: %v", err))
	}
	return data, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
