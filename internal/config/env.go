package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from the environment. A .env file in
// the working directory is loaded first (ignored if absent); real environment
// variables win over .env entries, which is godotenv's default.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	setString(&cfg.DatabaseDSN, "DATABASE_URL")
	setString(&cfg.DataDir, "DATA_DIR")
	setString(&cfg.BaseURL, "BASE_URL")

	setBool(&cfg.Headless, "HEADLESS_MODE")
	setBool(&cfg.Stealth, "STEALTH_MODE")
	setBool(&cfg.Verbose, "DEBUG_MODE")

	setList(&cfg.Keywords, "JOB_KEYWORDS")
	setList(&cfg.Locations, "JOB_LOCATIONS")

	setInt(&cfg.MaxDailyApplications, "MAX_DAILY_APPLICATIONS")
	setInt(&cfg.StepBudget, "STEP_BUDGET")
	setInt(&cfg.ScrollIterations, "SCROLL_ITERATIONS")

	setSeconds(&cfg.SettleMin, "MIN_DELAY")
	setSeconds(&cfg.SettleMax, "MAX_DELAY")
	setDuration(&cfg.ChallengeWait, "CHALLENGE_WAIT")

	setString(&cfg.Email, "APPLYBOT_EMAIL")
	setString(&cfg.Password, "APPLYBOT_PASSWORD")
	setString(&cfg.SessionPassphrase, "APPLYBOT_SESSION_PASSPHRASE")
	setString(&cfg.GenAIKey, "GENAI_API_KEY")

	setString(&cfg.ApplicantName, "APPLICANT_NAME")
	setString(&cfg.Phone, "APPLICANT_PHONE")
	setInt(&cfg.ExperienceYears, "APPLICANT_EXPERIENCE_YEARS")
	setString(&cfg.Experience, "APPLICANT_EXPERIENCE")
	setString(&cfg.ResumePath, "RESUME_PATH")

	setString(&cfg.S3Region, "S3_REGION")
	setString(&cfg.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	setString(&cfg.S3AccessKey, "S3_ACCESS_KEY")
	setString(&cfg.S3SecretKey, "S3_SECRET_KEY")
}

func setString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func setBool(dst *bool, name string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func setInt(dst *int, name string) {
	if v, ok := os.LookupEnv(name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// setSeconds parses a float number of seconds, matching the MIN_DELAY /
// MAX_DELAY convention.
func setSeconds(dst *time.Duration, name string) {
	if v, ok := os.LookupEnv(name); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = time.Duration(f * float64(time.Second))
		}
	}
}

func setDuration(dst *time.Duration, name string) {
	if v, ok := os.LookupEnv(name); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// setList splits a comma-separated value, trimming whitespace around items.
func setList(dst *[]string, name string) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
