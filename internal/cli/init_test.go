package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShutdownOn_RunsCleanup(t *testing.T) {
	sig := make(chan os.Signal, 1)
	var cleaned bool
	ctx, done := shutdownOn(sig, discardLogger(), time.Second, func(context.Context) { cleaned = true })

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before a signal")
	default:
	}

	sig <- syscall.SIGTERM
	WaitForShutdown(ctx, done)
	if !cleaned {
		t.Error("cleanup did not run")
	}
}

func TestShutdownOn_Timeout(t *testing.T) {
	sig := make(chan os.Signal, 1)
	release := make(chan struct{})
	defer close(release)

	ctx, done := shutdownOn(sig, discardLogger(), 20*time.Millisecond, func(ctx context.Context) {
		<-release
	})
	sig <- syscall.SIGINT

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not give up after the timeout")
	}
	if ctx.Err() == nil {
		t.Error("context should be cancelled")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte("CASHBOOK_TEST_A=local\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CASHBOOK_TEST_A=base\nCASHBOOK_TEST_B=base\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CASHBOOK_TEST_A", "")
	os.Unsetenv("CASHBOOK_TEST_A")
	t.Setenv("CASHBOOK_TEST_B", "")
	os.Unsetenv("CASHBOOK_TEST_B")

	LoadEnvFile()

	if got := os.Getenv("CASHBOOK_TEST_A"); got != "local" {
		t.Errorf("CASHBOOK_TEST_A = %q, want local", got)
	}
	if got := os.Getenv("CASHBOOK_TEST_B"); got != "base" {
		t.Errorf("CASHBOOK_TEST_B = %q, want base", got)
	}
}
