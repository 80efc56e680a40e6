package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avolkovs/applybot/internal/flagx"
	"github.com/avolkovs/applybot/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "2s"
// or as integer nanoseconds. After parsing, set values are copied into the
// runtime Config.
type JsonConfig struct {
	DatabaseDSN          string          `json:"database_dsn"`
	DataDir              string          `json:"data_dir"`
	BaseURL              string          `json:"base_url"`
	Headless             *bool           `json:"headless"`
	Stealth              *bool           `json:"stealth"`
	Keywords             []string        `json:"keywords"`
	Locations            []string        `json:"locations"`
	MaxDailyApplications *int            `json:"max_daily_applications"`
	StepBudget           *int            `json:"step_budget"`
	ScrollIterations     *int            `json:"scroll_iterations"`
	SettleMin            *timex.Duration `json:"settle_min"`
	SettleMax            *timex.Duration `json:"settle_max"`
	TypeDelayMin         *timex.Duration `json:"type_delay_min"`
	TypeDelayMax         *timex.Duration `json:"type_delay_max"`
	PageTimeout          *timex.Duration `json:"page_timeout"`
	ProbeTimeout         *timex.Duration `json:"probe_timeout"`
	ChallengeWait        *timex.Duration `json:"challenge_wait"`
	ApplicantName        string          `json:"applicant_name"`
	Phone                string          `json:"phone"`
	ExperienceYears      *int            `json:"experience_years"`
	Experience           string          `json:"experience"`
	ResumePath           string          `json:"resume_path"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c / -config flags via flagx.JsonConfigFlags; when no
// path is given, nothing is loaded. Only fields present in the JSON override
// the current config, which is why scalars are pointers in the DTO.
//
// Intended usage is: defaults -> env -> parseJson -> parseFlags, where later
// stages override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.BaseURL != "" {
		cfg.BaseURL = jc.BaseURL
	}
	if jc.Headless != nil {
		cfg.Headless = *jc.Headless
	}
	if jc.Stealth != nil {
		cfg.Stealth = *jc.Stealth
	}
	if len(jc.Keywords) > 0 {
		cfg.Keywords = jc.Keywords
	}
	if len(jc.Locations) > 0 {
		cfg.Locations = jc.Locations
	}
	if jc.MaxDailyApplications != nil {
		cfg.MaxDailyApplications = *jc.MaxDailyApplications
	}
	if jc.StepBudget != nil {
		cfg.StepBudget = *jc.StepBudget
	}
	if jc.ScrollIterations != nil {
		cfg.ScrollIterations = *jc.ScrollIterations
	}
	setDur(&cfg.SettleMin, jc.SettleMin)
	setDur(&cfg.SettleMax, jc.SettleMax)
	setDur(&cfg.TypeDelayMin, jc.TypeDelayMin)
	setDur(&cfg.TypeDelayMax, jc.TypeDelayMax)
	setDur(&cfg.PageTimeout, jc.PageTimeout)
	setDur(&cfg.ProbeTimeout, jc.ProbeTimeout)
	setDur(&cfg.ChallengeWait, jc.ChallengeWait)
	if jc.ApplicantName != "" {
		cfg.ApplicantName = jc.ApplicantName
	}
	if jc.Phone != "" {
		cfg.Phone = jc.Phone
	}
	if jc.ExperienceYears != nil {
		cfg.ExperienceYears = *jc.ExperienceYears
	}
	if jc.Experience != "" {
		cfg.Experience = jc.Experience
	}
	if jc.ResumePath != "" {
		cfg.ResumePath = jc.ResumePath
	}
}

func setDur(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}
