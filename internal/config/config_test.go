package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.MusicBrainz.BaseURL != "https://musicbrainz.org/ws/2" {
		t.Errorf("BaseURL = %q, want musicbrainz ws/2", cfg.MusicBrainz.BaseURL)
	}
	if cfg.Music.DefaultJoinPhrase != ", " {
		t.Errorf("DefaultJoinPhrase = %q, want %q", cfg.Music.DefaultJoinPhrase, ", ")
	}
	if len(cfg.Music.JoinPhrases) == 0 {
		t.Fatal("expected default join phrases")
	}
	// Dotted variants must come before their bare prefixes.
	featDot, feat := -1, -1
	for i, p := range cfg.Music.JoinPhrases {
		switch p {
		case ` feat\. `:
			featDot = i
		case ` feat `:
			feat = i
		}
	}
	if featDot == -1 || feat == -1 || featDot > feat {
		t.Errorf("join phrase order wrong: feat\\. at %d, feat at %d", featDot, feat)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
database:
  path: /tmp/test.db
music:
  import_path: /srv/incoming
  default_join_phrase: " + "
worker:
  poll_interval: 2s
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Music.ImportPath != "/srv/incoming" {
		t.Errorf("ImportPath = %q", cfg.Music.ImportPath)
	}
	if cfg.Music.DefaultJoinPhrase != " + " {
		t.Errorf("DefaultJoinPhrase = %q", cfg.Music.DefaultJoinPhrase)
	}
	if cfg.Worker.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v", cfg.Worker.PollInterval)
	}
	// Untouched fields keep defaults.
	if len(cfg.Music.JoinPhrases) == 0 {
		t.Error("expected join phrases to keep defaults")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CODA_DB_PATH", "/env/override.db")
	t.Setenv("CODA_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/env/override.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/data/coda.db" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}
}
