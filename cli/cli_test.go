package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kaustavray/mathbot/store"
)

func TestEvalCmd(t *testing.T) {
	cmd := NewEvalCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"2+3*5"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if got := out.String(); got != "Result: 17\n" {
		t.Errorf("output = %q, want %q", got, "Result: 17\n")
	}
}

func TestEvalCmd_JoinsArgs(t *testing.T) {
	cmd := NewEvalCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"2", "+", "3"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	if got := out.String(); got != "Result: 5\n" {
		t.Errorf("output = %q, want %q", got, "Result: 5\n")
	}
}

func TestEvalCmd_InvalidExpression(t *testing.T) {
	cmd := NewEvalCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"__import__('os')"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for invalid expression")
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error is %T, want *ExitError", err)
	}
	if exitErr.Code != exitInvalid {
		t.Errorf("exit code = %d, want %d", exitErr.Code, exitInvalid)
	}
}

func TestHistoryCmd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mathbot.db")

	st, err := store.NewSQLiteStore(store.SQLiteStoreConfig{DSN: dbPath})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()
	records := []store.Record{
		{ID: "a", UpdateID: 1, ChatID: 7, Input: "2+3", OK: true, Result: "5", Time: time.Now().Add(-time.Minute)},
		{ID: "b", UpdateID: 2, ChatID: 7, Input: "2//0", OK: false, Time: time.Now()},
	}
	for _, rec := range records {
		if err := st.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	cmd := NewHistoryCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--sqlite-path", dbPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "2+3") || !strings.Contains(got, "5") {
		t.Errorf("output missing successful record:\n%s", got)
	}
	if !strings.Contains(got, "invalid") {
		t.Errorf("output missing failed record:\n%s", got)
	}
}

func TestHistoryCmd_RequiresPath(t *testing.T) {
	cmd := NewHistoryCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs(nil)

	err := cmd.Execute()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != exitConfig {
		t.Fatalf("err = %v, want config ExitError", err)
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mathbot.yaml")
	content := "telegram:\n  token: from-file\n  poll_interval: 5s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := NewRunCmd()
	if err := cmd.Flags().Set("config", path); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("token", "from-flag"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("poll-interval", "2s"); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Telegram.Token != "from-flag" {
		t.Errorf("token = %q, want flag override", cfg.Telegram.Token)
	}
	if cfg.Telegram.PollInterval.Std() != 2*time.Second {
		t.Errorf("poll_interval = %v, want flag override", cfg.Telegram.PollInterval.Std())
	}
	// Untouched fields keep file and default values.
	if cfg.Telegram.PollTimeout.Std() != 10*time.Second {
		t.Errorf("poll_timeout = %v, want default", cfg.Telegram.PollTimeout.Std())
	}
}

func TestLoadConfig_TokenEnvFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mathbot.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(tokenEnvVar, "123:env")

	cmd := NewRunCmd()
	if err := cmd.Flags().Set("config", path); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Telegram.Token != "123:env" {
		t.Errorf("token = %q, want env fallback", cfg.Telegram.Token)
	}
}
