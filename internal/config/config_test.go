package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
port: "8080"
databaseURL: "postgres://localhost/fleetonboard"
redisAddr: "localhost:6379"
jwtSecret: "file-secret"
`

func TestLoadMinimalConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.JWTSecret != "file-secret" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestEnvOverridesFileValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db.internal/fleet")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://db.internal/fleet" {
		t.Fatalf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Fatalf("JWTSecret = %q", cfg.JWTSecret)
	}
	if cfg.MaxUploadBytes != 1048576 {
		t.Fatalf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing port", `
databaseURL: "postgres://localhost/x"
redisAddr: "localhost:6379"
jwtSecret: "s"
`},
		{"missing database", `
port: "8080"
redisAddr: "localhost:6379"
jwtSecret: "s"
`},
		{"missing jwt secret", `
port: "8080"
databaseURL: "postgres://localhost/x"
redisAddr: "localhost:6379"
`},
		{"missing redis", `
port: "8080"
databaseURL: "postgres://localhost/x"
jwtSecret: "s"
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Fatal("Load accepted an incomplete config")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load accepted a missing file")
	}
}

func TestParseTTL(t *testing.T) {
	if d, err := ParseTTL(""); err != nil || d != 0 {
		t.Fatalf("empty = (%v, %v), want (0, nil)", d, err)
	}
	if d, err := ParseTTL("15m"); err != nil || d != 15*time.Minute {
		t.Fatalf("15m = (%v, %v)", d, err)
	}
	if _, err := ParseTTL("soon"); err == nil {
		t.Fatal("invalid duration accepted")
	}
}
