package cli

import (
	"context"
	"testing"

	"cashbook/internal/config"
	"cashbook/internal/core"
	"cashbook/internal/report/memory"
	storemem "cashbook/internal/storage/memory"
)

func TestNewReportServices_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		DataBackend:      config.BackendMemory,
		GoogleTemplateID: "tpl-local",
		ReportCell:       "Sheet1!B2",
	}
	store := storemem.New()

	gateways, gen, err := NewReportServices(ctx, cfg, store, store, store)
	if err != nil {
		t.Fatalf("NewReportServices() error = %v", err)
	}
	drive, ok := gateways.(*memory.Drive)
	if !ok {
		t.Fatalf("gateways = %T, want *memory.Drive", gateways)
	}

	if err := store.SaveCredential(ctx, core.Credential{UserID: "u1", AccessToken: "tok"}); err != nil {
		t.Fatal(err)
	}
	link, err := gen.Generate(ctx, core.User{ID: "u1", Email: "u1@example.com"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if link.Range != "Sheet1!B2" {
		t.Errorf("range = %q", link.Range)
	}
	if v, ok := drive.Cell(link.FileID, "Sheet1!B2"); !ok || v != 0.0 {
		t.Errorf("balance cell = %v, %v", v, ok)
	}
}

func TestNewReportServices_DisabledWithoutGoogleConfig(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	cfg := &config.Config{DataBackend: config.BackendSQLite}
	store := storemem.New()

	gateways, gen, err := NewReportServices(context.Background(), cfg, store, store, store)
	if err != nil {
		t.Fatalf("NewReportServices() error = %v, want export disabled", err)
	}
	if gateways != nil || gen != nil {
		t.Errorf("gateways = %v, generator = %v, want both nil", gateways, gen)
	}
}

func TestNewReportServices_UnreadableKeyFile(t *testing.T) {
	cfg := &config.Config{
		DataBackend:              config.BackendSQLite,
		GoogleServiceAccountFile: "/non/existent/key.json",
	}
	store := storemem.New()

	if _, _, err := NewReportServices(context.Background(), cfg, store, store, store); err == nil {
		t.Fatal("expected an error for a missing key file")
	}
}
