package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zhufengning/extrautils/pkg/config"
	"github.com/zhufengning/extrautils/pkg/tools"
)

func TestLoadEnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env")

	content := `
# comment
EXTRAUTILS_TEST_ENV_A=alpha
export EXTRAUTILS_TEST_ENV_B=bravo
EXTRAUTILS_TEST_ENV_C="hello world"
EXTRAUTILS_TEST_ENV_D='single # keep'
EXTRAUTILS_TEST_ENV_F="line1\nline2"
`
	if err := os.WriteFile(envPath, []byte(content), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	for _, k := range []string{"A", "B", "C", "D", "F"} {
		key := "EXTRAUTILS_TEST_ENV_" + k
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	if err := loadEnvFile(envPath); err != nil {
		t.Fatalf("loadEnvFile() error = %v", err)
	}

	tests := map[string]string{
		"EXTRAUTILS_TEST_ENV_A": "alpha",
		"EXTRAUTILS_TEST_ENV_B": "bravo",
		"EXTRAUTILS_TEST_ENV_C": "hello world",
		"EXTRAUTILS_TEST_ENV_D": "single # keep",
		"EXTRAUTILS_TEST_ENV_F": "line1\nline2",
	}

	for k, want := range tests {
		got := os.Getenv(k)
		if got != want {
			t.Fatalf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestLoadEnvFile_DoesNotOverrideExisting(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env")

	if err := os.WriteFile(envPath, []byte("EXTRAUTILS_TEST_ENV_OVERRIDE=from_file\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Setenv("EXTRAUTILS_TEST_ENV_OVERRIDE", "from_process")

	if err := loadEnvFile(envPath); err != nil {
		t.Fatalf("loadEnvFile() error = %v", err)
	}

	if got := os.Getenv("EXTRAUTILS_TEST_ENV_OVERRIDE"); got != "from_process" {
		t.Fatalf("EXTRAUTILS_TEST_ENV_OVERRIDE = %q, want %q", got, "from_process")
	}
}

func TestLoadEnvFile_MissingFileIsIgnored(t *testing.T) {
	if err := loadEnvFile(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("loadEnvFile() error = %v", err)
	}
}

func TestParseOptions(t *testing.T) {
	opts := parseOptions([]string{"222", "--debug", "--config", "/tmp/c.json", "333", "--no-cache"})

	if !opts.debug {
		t.Fatal("expected debug")
	}
	if opts.configPath != "/tmp/c.json" {
		t.Fatalf("configPath = %q", opts.configPath)
	}
	if got := strings.Join(opts.args, " "); got != "222 333 --no-cache" {
		t.Fatalf("args = %q", got)
	}

	if def := parseOptions(nil); def.configPath != config.DefaultPath() {
		t.Fatalf("default configPath = %q, want %q", def.configPath, config.DefaultPath())
	}
}

func TestNewRegistry(t *testing.T) {
	r := newRegistry(config.DefaultConfig(), nopBot{})
	if got := strings.Join(r.List(), ","); got != "avatar,forward,name,selfname,url" {
		t.Fatalf("List() = %q", got)
	}

	got, err := r.Execute(context.Background(), "url", []string{"123456", "100"})
	if err != nil {
		t.Fatalf("url error = %v", err)
	}
	if want := "https://q1.qlogo.cn/g?b=qq&nk=123456&s=100"; got != want {
		t.Fatalf("url = %q, want %q", got, want)
	}

	if _, err := r.Execute(context.Background(), "name", []string{"222"}); err == nil {
		t.Fatal("expected offline error from name")
	}
}

func TestShellLine(t *testing.T) {
	r := tools.NewToolRegistry()
	r.Register(tools.NewURLTool(nil))

	var out bytes.Buffer
	if !shellLine(context.Background(), r, 0, "   ", &out) {
		t.Fatal("blank line should continue")
	}
	if !shellLine(context.Background(), r, 0, "url 123456 40", &out) {
		t.Fatal("url should continue")
	}
	if !strings.Contains(out.String(), "nk=123456&s=40") {
		t.Fatalf("output = %q", out.String())
	}

	out.Reset()
	shellLine(context.Background(), r, 0, "bogus", &out)
	if !strings.Contains(out.String(), "Unknown command: bogus") {
		t.Fatalf("output = %q", out.String())
	}

	out.Reset()
	shellLine(context.Background(), r, 0, "url 1", &out)
	if !strings.HasPrefix(out.String(), "Error:") {
		t.Fatalf("output = %q", out.String())
	}

	if shellLine(context.Background(), r, 0, "exit", &out) {
		t.Fatal("exit should stop the shell")
	}
}
