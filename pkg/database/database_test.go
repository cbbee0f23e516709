package database

import (
	"strings"
	"testing"

	"github.com/yi-nology/docvault/pkg/config"
)

func TestOpenRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{"unsupported driver", config.DatabaseConfig{Driver: "oracle"}, "unsupported database driver"},
		{"sqlite without path", config.DatabaseConfig{Driver: "sqlite"}, "sqlite path"},
		{"mysql without dsn", config.DatabaseConfig{Driver: "MySQL"}, "mysql dsn"},
		{"postgres without dsn", config.DatabaseConfig{Driver: "postgresql"}, "postgres dsn"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Open(tc.cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Open(%+v) error = %v, want %q", tc.cfg, err, tc.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	if err := ensureDir(""); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir() + "/nested/data"
	if err := ensureDir(dir); err != nil {
		t.Fatalf("ensureDir: %v", err)
	}
}
