package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cashbook/internal/core"
)

// DefaultCell receives the balance when no cell is configured.
const DefaultCell = "Sheet1!J5"

type (
	CredentialReader interface {
		GetCredential(ctx context.Context, userID string) (core.Credential, error)
	}

	LinkStore interface {
		SaveReportLink(ctx context.Context, l core.ReportLink) error
		GetReportLink(ctx context.Context, userID string) (core.ReportLink, error)
	}

	TransactionLister interface {
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	}
)

// GeneratorConfig names the template and where the balance goes.
type GeneratorConfig struct {
	TemplateID string
	FolderName string // optional; resolved with GetOrCreateFolder
	FileName   string
	Cell       string
}

// Generator copies the report template for a user and writes the current
// balance into it.
type Generator struct {
	cfg      GeneratorConfig
	gateways GatewayFactory
	creds    CredentialReader
	links    LinkStore
	txs      TransactionLister
	now      func() time.Time
}

func NewGenerator(cfg GeneratorConfig, gateways GatewayFactory, creds CredentialReader, links LinkStore, txs TransactionLister) *Generator {
	if cfg.Cell == "" {
		cfg.Cell = DefaultCell
	}
	return &Generator{
		cfg:      cfg,
		gateways: gateways,
		creds:    creds,
		links:    links,
		txs:      txs,
		now:      time.Now,
	}
}

// Generate makes a fresh copy of the template for user and fills in the balance.
func (g *Generator) Generate(ctx context.Context, user core.User) (core.ReportLink, error) {
	if g.cfg.TemplateID == "" {
		return core.ReportLink{}, fmt.Errorf("%w: no report template configured", core.ErrInvalidRequest)
	}
	if user.Email == "" {
		return core.ReportLink{}, fmt.Errorf("%w: user email required to share the report", core.ErrValidation)
	}

	gw, err := g.gatewayFor(ctx, user.ID)
	if err != nil {
		return core.ReportLink{}, err
	}

	var folderID string
	if g.cfg.FolderName != "" {
		folderID, err = gw.GetOrCreateFolder(ctx, g.cfg.FolderName, "")
		if err != nil {
			return core.ReportLink{}, fmt.Errorf("resolve report folder: %w", err)
		}
	}

	copied, err := gw.CopyTemplate(ctx, CopyRequest{
		TemplateID: g.cfg.TemplateID,
		FileName:   g.cfg.FileName,
		OwnerEmail: user.Email,
		FolderID:   folderID,
	})
	if err != nil {
		return core.ReportLink{}, fmt.Errorf("copy report template: %w", err)
	}

	link := core.ReportLink{
		UserID:  user.ID,
		FileID:  copied.FileID,
		FileURL: copied.FileURL,
		Range:   g.cfg.Cell,
	}
	if err := g.writeBalance(ctx, gw, link); err != nil {
		return core.ReportLink{}, err
	}

	link.UpdatedAt = g.now().UTC()
	if err := g.links.SaveReportLink(ctx, link); err != nil {
		// the spreadsheet exists; only background refresh is lost
		slog.ErrorContext(ctx, "Failed to save report link",
			"user_id", user.ID,
			"file_id", link.FileID,
			"error", err)
	}

	slog.InfoContext(ctx, "Report generated",
		"user_id", user.ID,
		"file_id", link.FileID,
		"range", link.Range)
	return link, nil
}

// Refresh rewrites the balance into the user's last generated report.
// It returns an error wrapping core.ErrNotFound when there is no report or no
// stored credential.
func (g *Generator) Refresh(ctx context.Context, userID string) (core.ReportLink, error) {
	link, err := g.links.GetReportLink(ctx, userID)
	if err != nil {
		return core.ReportLink{}, fmt.Errorf("report link: %w", err)
	}

	gw, err := g.gatewayFor(ctx, userID)
	if err != nil {
		return core.ReportLink{}, err
	}
	if err := g.writeBalance(ctx, gw, link); err != nil {
		return core.ReportLink{}, err
	}

	link.UpdatedAt = g.now().UTC()
	if err := g.links.SaveReportLink(ctx, link); err != nil {
		return core.ReportLink{}, fmt.Errorf("save report link: %w", err)
	}
	return link, nil
}

func (g *Generator) gatewayFor(ctx context.Context, userID string) (Gateway, error) {
	cred, err := g.creds.GetCredential(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("%w: no Google access token stored: %w", core.ErrPermission, err)
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	gw, err := g.gateways.ForUser(ctx, cred.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("google client: %w", err)
	}
	return gw, nil
}

func (g *Generator) writeBalance(ctx context.Context, gw Gateway, link core.ReportLink) error {
	txs, err := g.txs.ListTransactions(ctx, link.UserID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	totals := core.Summarize(txs)
	if err := gw.UpdateCell(ctx, link.FileID, link.Range, totals.Balance.Euros()); err != nil {
		return fmt.Errorf("write balance to %s: %w", link.Range, err)
	}
	return nil
}
