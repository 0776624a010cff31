package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsub/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	fake       *testsupport.FakeProvider
	keys       []string
}

func setupCLITestEnv(t *testing.T, fake *testsupport.FakeProvider, extraTOML string) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(name, "")
	}

	configPath := filepath.Join(base, "reelsub.toml")
	content := fmt.Sprintf(`[translation]
models = ["m1"]
pace_delay_ms = 0
retry_base_ms = 1
retry_max_ms = 1
%s
[server]
state_dir = %q
bind = "127.0.0.1:0"
`, extraTOML, filepath.Join(base, "state"))
	testsupport.WriteFile(t, configPath, content)

	if fake == nil {
		fake = &testsupport.FakeProvider{}
	}
	return &cliTestEnv{baseDir: base, configPath: configPath, fake: fake}
}

func (e *cliTestEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var configFlag, envFileFlag, logLevelFlag string
	ctx := newCommandContext(&configFlag, &envFileFlag, &logLevelFlag)
	ctx.factory = e.fake.Factory(&e.keys)

	cmd := newRootCommandWithContext(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath, "--env-file", "", "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
