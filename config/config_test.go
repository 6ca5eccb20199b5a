package config

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/sanity-io/litter"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, `
server:
  addr: ":9000"
  allowed_origins: ["https://app.example"]
store:
  backend: bolt
  flush_interval: 250ms
log:
  verbosity: 2
replica:
  id: 7
`)

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	want := Default()
	want.Server.Addr = ":9000"
	want.Server.AllowedOrigins = []string{"https://app.example"}
	want.Store.Backend = BackendBolt
	want.Store.FlushInterval = 250 * time.Millisecond
	want.Log.Verbosity = 2
	want.Replica.ID = 7
	want.Path = path
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %s, want %s", litter.Sdump(got), litter.Sdump(want))
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "store:\n  backend: sqlite\n"},
		{"postgres without dsn", "store:\n  backend: postgres\n"},
		{"firestore without project", "store:\n  backend: firestore\n"},
		{"zero flush interval", "store:\n  flush_interval: 0s\n"},
		{"relay without addr", "relay:\n  enabled: true\n  redis_addr: \"\"\n"},
		{"malformed yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yml")
			writeFile(t, path, tt.content)
			if cfg, err := Load(path); err == nil {
				t.Errorf("got %s, want an error", litter.Sdump(cfg))
			}
		})
	}

	if _, err := Load(filepath.Join(dir, "missing.yml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v, want %v", err, os.ErrNotExist)
	}
}

func TestSaveDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := SaveDefault(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.Path = path
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %s, want %s", litter.Sdump(got), litter.Sdump(want))
	}
}

func TestParseFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, "server:\n  addr: \":9000\"\nlog:\n  verbosity: 1\n")

	t.Run("flags override file", func(t *testing.T) {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		cfg, err := ParseFlags(fs, []string{"-config", path, "-addr", ":7000", "-v", "3"})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Server.Addr != ":7000" || cfg.Log.Verbosity != 3 || cfg.Path != path {
			t.Errorf("got %s", litter.Sdump(cfg))
		}
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		cfg, err := ParseFlags(fs, []string{"-config", filepath.Join(t.TempDir(), "none.yml")})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Server.Addr != Default().Server.Addr || cfg.Path != "" {
			t.Errorf("got %s", litter.Sdump(cfg))
		}
	})

	t.Run("invalid override", func(t *testing.T) {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		if _, err := ParseFlags(fs, []string{"-config", path, "-store", "sqlite"}); err == nil {
			t.Error("expected error for unknown backend")
		}
	})

	t.Run("generate", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "generated.yml")
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		if _, err := ParseFlags(fs, []string{"-config", out, "-generate-config"}); !errors.Is(err, ErrGenerated) {
			t.Fatalf("got %v, want %v", err, ErrGenerated)
		}
		if _, err := Load(out); err != nil {
			t.Errorf("generated file: %v", err)
		}
	})
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, "log:\n  verbosity: 0\n")

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, logr.Discard(), func(cfg *Config) {
			select {
			case changes <- cfg:
			default:
			}
		})
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "log:\n  verbosity: 4\n")

	// A rewrite may surface as several events, the first of which can
	// see a truncated file.
	timeout := time.After(3 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case cfg := <-changes:
			reloaded = cfg.Log.Verbosity == 4
		case <-timeout:
			t.Fatal("timeout waiting for reload")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
