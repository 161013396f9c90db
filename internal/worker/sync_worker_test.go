package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"cashbook/internal/amqp"
	"cashbook/internal/core"
)

type fakeRefresher struct {
	err   error
	calls []string
}

func (f *fakeRefresher) Refresh(_ context.Context, userID string) (core.ReportLink, error) {
	f.calls = append(f.calls, userID)
	if f.err != nil {
		return core.ReportLink{}, f.err
	}
	return core.ReportLink{UserID: userID, FileID: "f1", Range: "Sheet1!J5"}, nil
}

func TestReportSyncWorker_HandleLedgerEvent(t *testing.T) {
	tests := []struct {
		name      string
		entity    string
		err       error
		wantCalls int
		wantErr   bool
	}{
		{"transaction refreshes", "transaction", nil, 1, false},
		{"account ignored", "account", nil, 0, false},
		{"no report skipped", "transaction", fmt.Errorf("report link: %w", core.ErrNotFound), 1, false},
		{"revoked token skipped", "transaction", fmt.Errorf("update: %w", core.ErrPermission), 1, false},
		{"transport failure retried", "transaction", fmt.Errorf("update: %w", core.ErrTransport), 1, true},
		{"unknown failure retried", "transaction", errors.New("boom"), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRefresher{err: tt.err}
			w := NewReportSyncWorker(r)
			err := w.HandleLedgerEvent(context.Background(), &amqp.LedgerEvent{
				UserID: "u1", Entity: tt.entity, Action: "created", EntityID: "x",
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleLedgerEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(r.calls) != tt.wantCalls {
				t.Errorf("refresh calls = %d, want %d", len(r.calls), tt.wantCalls)
			}
		})
	}
}
