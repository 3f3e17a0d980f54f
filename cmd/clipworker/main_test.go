package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/config"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/queue"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
instance_root = %q
output_dir = %q
temp_dir = %q
log_dir = %q
database_path = %q

[worker]
name = %q

[api]
base_url = %q
token = %q
`,
		cfg.Paths.InstanceRoot,
		cfg.Paths.OutputDir,
		cfg.Paths.TempDir,
		cfg.Paths.LogDir,
		cfg.Paths.DatabasePath,
		cfg.Worker.Name,
		cfg.API.BaseURL,
		cfg.API.Token,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = []string{"--config", configPath}
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIQueueCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	pending := testsupport.EnqueueJob(t, env.store, "project-alpha", "clip-1")
	failed := testsupport.EnqueueJob(t, env.store, "project-beta", "clip-2")
	if err := env.store.MarkFailed(ctx, failed.ID, "encoder exited"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	if !strings.Contains(out, "pending") || !strings.Contains(out, "failed") {
		t.Fatalf("unexpected queue status output: %q", out)
	}
	if !strings.Contains(out, "Total jobs: 2") {
		t.Fatalf("expected total of 2 jobs in output: %q", out)
	}

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "project-alpha") || !strings.Contains(out, "project-beta") {
		t.Fatalf("queue list missing jobs: %q", out)
	}
	if !strings.Contains(out, "encoder exited") {
		t.Fatalf("queue list should surface failure detail: %q", out)
	}

	out, _, err = runCLI(t, []string{"queue", "list", "--status", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list --status failed: %v", err)
	}
	if strings.Contains(out, "project-alpha") {
		t.Fatalf("status filter leaked pending job: %q", out)
	}

	out, _, err = runCLI(t, []string{"queue", "retry"}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	if !strings.Contains(out, "Retried 1 job(s)") {
		t.Fatalf("unexpected retry output: %q", out)
	}
	retried, err := env.store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetByID after retry: %v", err)
	}
	if retried.Status != queue.StatusPending {
		t.Fatalf("retried job status = %s, want pending", retried.Status)
	}

	if err := env.store.MarkFailed(ctx, failed.ID, "encoder exited"); err != nil {
		t.Fatalf("reset failed status: %v", err)
	}
	out, _, err = runCLI(t, []string{"queue", "clear", "--failed"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear --failed: %v", err)
	}
	if !strings.Contains(out, "Removed 1 job(s)") {
		t.Fatalf("unexpected clear output: %q", out)
	}

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	if !strings.Contains(out, "Removed 1 job(s)") {
		t.Fatalf("unexpected clear-all output: %q", out)
	}
	if gone, err := env.store.GetByID(ctx, pending.ID); err != nil || gone != nil {
		t.Fatalf("pending job should be removed, got %+v (err %v)", gone, err)
	}

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list after clear: %v", err)
	}
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("expected empty queue message, got %q", out)
	}
}

func TestCLIQueueHealth(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "health"}, env.configPath)
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	if !strings.Contains(out, "integrity: yes") {
		t.Fatalf("expected passing integrity check: %q", out)
	}
}

func TestCLIConfigShowRedactsToken(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, env.cfg.API.Token) {
		t.Fatalf("config show leaked API token: %q", out)
	}
	if !strings.Contains(out, "********") {
		t.Fatalf("expected redacted token marker: %q", out)
	}
	if !strings.Contains(out, env.cfg.Paths.InstanceRoot) {
		t.Fatalf("expected resolved instance root in output: %q", out)
	}
}

func TestCLIConfigInit(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "generated", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected output to mention target path: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
}

func TestCLIVersion(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "clipworker") {
		t.Fatalf("unexpected version output: %q", out)
	}
}
