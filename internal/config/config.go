// Package config assembles the bot's runtime settings from several sources.
// Precedence, lowest to highest: built-in defaults, environment variables
// (including a .env file), a JSON config file, command-line flags.
package config

import "time"

// Config holds runtime settings for the bot.
//
// Pacing fields are throttling contracts, not cosmetics: SettleMin/SettleMax
// bound the randomized pause after state-changing actions, TypeDelayMin/Max
// bound the randomized inter-character typing delay. All of them may be set
// to zero (tests do) to collapse pacing entirely.
type Config struct {
	// DatabaseDSN selects the store: a sqlite file path / file: URI, or a
	// postgres:// DSN.
	DatabaseDSN string

	// DataDir holds session ciphertext, key material and downloaded resumes.
	DataDir string

	// BaseURL is the job board origin, e.g. "https://www.linkedin.com".
	BaseURL string

	Headless bool
	Stealth  bool
	Verbose  bool

	// Keywords and Locations define the search grid; every pair is queried.
	Keywords  []string
	Locations []string

	// MaxDailyApplications caps submissions per run.
	MaxDailyApplications int

	// StepBudget caps modal-advance iterations per application.
	StepBudget int

	// ScrollIterations bounds the lazy-load scroll loop during discovery.
	ScrollIterations int

	SettleMin    time.Duration
	SettleMax    time.Duration
	TypeDelayMin time.Duration
	TypeDelayMax time.Duration

	// PageTimeout bounds cross-page transitions, ProbeTimeout intra-page
	// landmark checks, ChallengeWait the human verification window.
	PageTimeout   time.Duration
	ProbeTimeout  time.Duration
	ChallengeWait time.Duration

	// InterApplicationMin/Max bound the randomized pause between two
	// consecutive applications.
	InterApplicationMin time.Duration
	InterApplicationMax time.Duration

	// Credentials come from the environment only and are never logged.
	Email    string
	Password string

	// SessionPassphrase, when set, derives the session-store key instead of
	// using a random key file.
	SessionPassphrase string

	// GenAIKey authenticates the answer-generation backend.
	GenAIKey string

	// Profile inputs.
	ApplicantName   string
	Phone           string
	ExperienceYears int
	Experience      string

	// ResumePath is a local path or an s3://bucket/key URI.
	ResumePath string

	// S3Region and S3BaseEndpoint configure s3:// resume resolution;
	// the endpoint override supports MinIO-style deployments. The key pair
	// is optional, the default AWS credential chain applies when empty.
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "file:data/jobs.db"
	c.DataDir = "data"
	c.BaseURL = "https://www.linkedin.com"
	c.Headless = false
	c.Stealth = true
	c.Keywords = []string{"Data Engineer"}
	c.Locations = []string{"Remote"}
	c.MaxDailyApplications = 50
	c.StepBudget = 10
	c.ScrollIterations = 3
	c.SettleMin = 2 * time.Second
	c.SettleMax = 5 * time.Second
	c.TypeDelayMin = 100 * time.Millisecond
	c.TypeDelayMax = 300 * time.Millisecond
	c.PageTimeout = 60 * time.Second
	c.ProbeTimeout = 10 * time.Second
	c.ChallengeWait = 120 * time.Second
	c.InterApplicationMin = 30 * time.Second
	c.InterApplicationMax = 45 * time.Second
	c.ExperienceYears = 3
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from the environment, JSON (if present) and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
