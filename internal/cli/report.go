package cli

import (
	"context"
	"fmt"
	"log/slog"

	"cashbook/internal/config"
	"cashbook/internal/report"
	"cashbook/internal/report/google"
	"cashbook/internal/report/memory"
)

// NewReportServices builds the report gateway factory and the generator on
// top of it. The memory data backend gets an in-process drive seeded with
// the configured template, so the export flow runs without Google. Both
// results are nil, with no error, when neither a service key nor a template
// is configured: report export is then disabled.
func NewReportServices(ctx context.Context, cfg *config.Config, creds report.CredentialReader, links report.LinkStore, txs report.TransactionLister) (report.GatewayFactory, *report.Generator, error) {
	var gateways report.GatewayFactory
	if cfg.DataBackend == config.BackendMemory {
		gateways = memory.NewDrive(cfg.GoogleTemplateID)
		slog.InfoContext(ctx, "Using in-process report drive", "template_id", cfg.GoogleTemplateID)
	} else {
		key, err := cfg.ServiceAccountKey()
		if err != nil {
			return nil, nil, err
		}
		if key == nil && cfg.GoogleTemplateID == "" {
			slog.InfoContext(ctx, "Google report services disabled", "reason", "no service account key or template configured")
			return nil, nil, nil
		}
		g, err := google.NewFactory(ctx, google.Config{ServiceAccountJSON: key})
		if err != nil {
			return nil, nil, fmt.Errorf("google services: %w", err)
		}
		gateways = g
	}

	gen := report.NewGenerator(report.GeneratorConfig{
		TemplateID: cfg.GoogleTemplateID,
		FolderName: cfg.ReportFolderName,
		FileName:   cfg.ReportFileName,
		Cell:       cfg.ReportCell,
	}, gateways, creds, links, txs)
	return gateways, gen, nil
}
