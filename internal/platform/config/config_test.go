package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("COLLECTOR_TEST_STR", "value")
	if got := GetEnv("COLLECTOR_TEST_STR", "fallback"); got != "value" {
		t.Errorf("GetEnv = %q, want value", got)
	}
	if got := GetEnv("COLLECTOR_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnv unset = %q, want fallback", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("COLLECTOR_TEST_INT", "1500")
	if got := GetEnvInt("COLLECTOR_TEST_INT", 1); got != 1500 {
		t.Errorf("GetEnvInt = %d, want 1500", got)
	}
	t.Setenv("COLLECTOR_TEST_INT", "abc")
	if got := GetEnvInt("COLLECTOR_TEST_INT", 7); got != 7 {
		t.Errorf("GetEnvInt invalid = %d, want fallback 7", got)
	}
}

func TestGetEnvUint64(t *testing.T) {
	t.Setenv("COLLECTOR_TEST_SEED", "42")
	if got := GetEnvUint64("COLLECTOR_TEST_SEED", 0); got != 42 {
		t.Errorf("GetEnvUint64 = %d, want 42", got)
	}
	t.Setenv("COLLECTOR_TEST_SEED", "-1")
	if got := GetEnvUint64("COLLECTOR_TEST_SEED", 3); got != 3 {
		t.Errorf("GetEnvUint64 negative = %d, want fallback 3", got)
	}
}

func TestGetEnvDuration(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "45s", 45 * time.Second},
		{"invalid", "soon", 30 * time.Second},
		{"negative", "-5s", 30 * time.Second},
		{"empty", "", 30 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("COLLECTOR_TEST_DUR", tc.value)
			if got := GetEnvDuration("COLLECTOR_TEST_DUR", 30*time.Second); got != tc.want {
				t.Errorf("GetEnvDuration(%q) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("COLLECTOR_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("COLLECTOR_TEST_DOTENV") })

	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := GetEnv("COLLECTOR_TEST_DOTENV", ""); got != "from-file" {
		t.Errorf("after Load got %q, want from-file", got)
	}

	if err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Load of missing file should return an error")
	}
}
