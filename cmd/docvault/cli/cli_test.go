package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/hlog"
)

func TestVersionCommand(t *testing.T) {
	root := NewRootCommand()
	root.AddCommand(NewVersionCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "docvault dev") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRetryRejectsBadID(t *testing.T) {
	root := NewRootCommand()
	root.AddCommand(NewRetryCommand())
	root.SetArgs([]string{"retry", "abc"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "invalid version id") {
		t.Fatalf("expected invalid version id error, got %v", err)
	}
}

func TestLoadEnvFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DOCVAULT_TEST_SECRET=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCVAULT_TEST_SECRET", "")
	os.Unsetenv("DOCVAULT_TEST_SECRET")

	loadEnv(filepath.Join(dir, "config.yaml"))
	if got := os.Getenv("DOCVAULT_TEST_SECRET"); got != "from-file" {
		t.Errorf("DOCVAULT_TEST_SECRET = %q", got)
	}
}

func TestHlogLevel(t *testing.T) {
	cases := map[string]hlog.Level{
		"debug": hlog.LevelDebug,
		"WARN":  hlog.LevelWarn,
		"error": hlog.LevelError,
		"info":  hlog.LevelInfo,
		"":      hlog.LevelInfo,
	}
	for in, want := range cases {
		if got := hlogLevel(in); got != want {
			t.Errorf("hlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
