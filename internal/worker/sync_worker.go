package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cashbook/internal/amqp"
	"cashbook/internal/core"
	"cashbook/internal/ledger"
)

// Refresher rewrites the balance into a user's linked report.
type Refresher interface {
	Refresh(ctx context.Context, userID string) (core.ReportLink, error)
}

// ReportSyncWorker keeps exported reports current as transactions change.
type ReportSyncWorker struct {
	reports Refresher
}

func NewReportSyncWorker(reports Refresher) *ReportSyncWorker {
	return &ReportSyncWorker{reports: reports}
}

// HandleLedgerEvent refreshes the user's report after a transaction change.
// Only transport failures are returned, so that the message is redelivered;
// users without a report or a usable token are skipped.
func (w *ReportSyncWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev.Entity != ledger.EntityTransaction {
		slog.DebugContext(ctx, "Ignoring ledger event", "entity", ev.Entity, "action", ev.Action)
		return nil
	}

	link, err := w.reports.Refresh(ctx, ev.UserID)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "Report refreshed",
			"user_id", ev.UserID,
			"file_id", link.FileID,
			"range", link.Range,
			"trigger", ev.Action)
		return nil
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrPermission),
		errors.Is(err, core.ErrInvalidRequest):
		slog.WarnContext(ctx, "Skipping report refresh",
			"user_id", ev.UserID,
			"reason", err)
		return nil
	default:
		return fmt.Errorf("refresh report for %s: %w", ev.UserID, err)
	}
}
