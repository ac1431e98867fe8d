package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Music       MusicConfig       `yaml:"music"`
	MusicBrainz MusicBrainzConfig `yaml:"musicbrainz"`
	Federation  FederationConfig  `yaml:"federation"`
	Worker      WorkerConfig      `yaml:"worker"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MusicConfig holds library paths and the artist-credit parsing grammar.
type MusicConfig struct {
	LibraryPath string `yaml:"library_path"`
	ImportPath  string `yaml:"import_path"`

	// JoinPhrases is the ordered list of regex-escaped join-phrase
	// alternatives used by the artist-credit parser. Order matters: the
	// first alternative that matches wins, so escaped dotted variants
	// (` feat\. `) must precede their bare prefixes (` feat `).
	JoinPhrases []string `yaml:"join_phrases"`

	// DefaultJoinPhrase is rendered between artists when metadata lists
	// several artists without explicit join phrases.
	DefaultJoinPhrase string `yaml:"default_join_phrase"`
}

// MusicBrainzConfig holds remote metadata service settings.
type MusicBrainzConfig struct {
	BaseURL         string  `yaml:"base_url"`
	CoverArtBaseURL string  `yaml:"cover_art_base_url"`
	RateLimit       float64 `yaml:"rate_limit"`
}

// FederationConfig holds outbox delivery settings.
type FederationConfig struct {
	Domain      string   `yaml:"domain"`
	PeerInboxes []string `yaml:"peer_inboxes"`
}

// WorkerConfig holds import worker settings.
type WorkerConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	ClaimTTL      time.Duration `yaml:"claim_ttl"`
	RetryAttempts int           `yaml:"retry_attempts"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// DefaultJoinPhrases returns the ordered join-phrase grammar used when no
// operator configuration is supplied. Entries are regex-escaped; spaced and
// dotted variants come before shorter prefixes on purpose.
func DefaultJoinPhrases() []string {
	return []string{
		`featuring `, ` feat\. `, ` ft\. `, ` feat `, ` with `, ` and `,
		` & `, ` vs\. `, ` \| `, ` \|`, `\| `, `\|`,
		` , `, ` ,`, `, `, `,`, ` ; `, ` ;`, `; `, `;`,
		` versus `, ` vs `, ` \( `, ` \(`, `\( `, `\(`,
		` Remix\) `, `Remix\) `, ` Remix\)`, ` \) `, ` \)`, `\) `, `\)`,
		` x `, `accompanied by `, ` alongside `, ` together with `,
		` collaboration with `, ` featuring special guest `, `joined by `,
		` joined with `, ` featuring guest `, ` introducing `,
		` performed by `, ` performed with `, `performed by and `,
		` presenting `, ` and special guest `, `featuring special guests `,
		` featuring and `, ` featuring & `, ` and featuring `,
	}
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "/data/coda.db",
		},
		Music: MusicConfig{
			LibraryPath:       "/music",
			ImportPath:        "/music/import",
			JoinPhrases:       DefaultJoinPhrases(),
			DefaultJoinPhrase: ", ",
		},
		MusicBrainz: MusicBrainzConfig{
			BaseURL:         "https://musicbrainz.org/ws/2",
			CoverArtBaseURL: "https://coverartarchive.org",
			RateLimit:       1,
		},
		Worker: WorkerConfig{
			PollInterval:  5 * time.Second,
			ClaimTTL:      15 * time.Minute,
			RetryAttempts: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("CODA_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("CODA_LIBRARY_PATH"); v != "" {
		c.Music.LibraryPath = v
	}
	if v := os.Getenv("CODA_IMPORT_PATH"); v != "" {
		c.Music.ImportPath = v
	}
	if v := os.Getenv("CODA_MB_BASE_URL"); v != "" {
		c.MusicBrainz.BaseURL = v
	}
	if v := os.Getenv("CODA_MB_RATE_LIMIT"); v != "" {
		if limit, err := strconv.ParseFloat(v, 64); err == nil {
			c.MusicBrainz.RateLimit = limit
		}
	}
	if v := os.Getenv("CODA_FEDERATION_DOMAIN"); v != "" {
		c.Federation.Domain = v
	}
	if v := os.Getenv("CODA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CODA_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if len(c.Music.JoinPhrases) == 0 {
		return fmt.Errorf("music join_phrases must not be empty")
	}
	if c.MusicBrainz.RateLimit <= 0 {
		return fmt.Errorf("musicbrainz rate_limit must be positive")
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker poll_interval must be positive")
	}
	return nil
}
