// Package bot wires the whole application together and runs one batch:
// restore session, log in, discover postings for every keyword and location
// pair, then work through the queue applying to each posting with pacing
// between applications. The browser, the database and the session file are
// released on every exit path.
package bot

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/avolkovs/applybot/internal/ai"
	"github.com/avolkovs/applybot/internal/analytics"
	"github.com/avolkovs/applybot/internal/apply"
	"github.com/avolkovs/applybot/internal/auth"
	"github.com/avolkovs/applybot/internal/browser"
	"github.com/avolkovs/applybot/internal/common"
	"github.com/avolkovs/applybot/internal/config"
	"github.com/avolkovs/applybot/internal/dbx"
	"github.com/avolkovs/applybot/internal/discovery"
	"github.com/avolkovs/applybot/internal/logging"
	"github.com/avolkovs/applybot/internal/models"
	"github.com/avolkovs/applybot/internal/repositories/attempts"
	"github.com/avolkovs/applybot/internal/repositories/jobs"
	"github.com/avolkovs/applybot/internal/repositories/repomanager"
	"github.com/avolkovs/applybot/internal/resume"
	"github.com/avolkovs/applybot/internal/session"
)

var (
	// newDriver is a seam so tests can swap in the fake driver.
	newDriver = func(ctx context.Context, cfg *config.Config, pacer *browser.Pacer, log logging.Logger) (browser.Driver, error) {
		return browser.NewChromeDriver(ctx, browser.ChromeOptions{
			Headless:    cfg.Headless,
			Stealth:     cfg.Stealth,
			PageTimeout: cfg.PageTimeout,
		}, pacer, log)
	}

	// readPassword is a test seam for term.ReadPassword.
	readPassword = term.ReadPassword
)

// App owns every component of one bot run.
type App struct {
	cfg *config.Config
	log logging.Logger

	db       *sql.DB
	repos    repomanager.RepositoryManager
	jobs     jobs.Repository
	attempts attempts.Repository
	stats    *analytics.Service

	drv      browser.Driver
	pacer    *browser.Pacer
	sessions *session.Store
	authFlow *auth.Flow
	searcher *discovery.Searcher
	applier  *apply.Flow
	resolver *resume.Resolver

	profile    models.ApplicantProfile
	resumePath string
}

// NewApp builds the full dependency graph from cfg. The returned App owns
// the browser and the database; release both with Close.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewDefault(cfg.Verbose)

	db, manager, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	pacer := browser.NewPacer(cfg.SettleMin, cfg.SettleMax, cfg.TypeDelayMin, cfg.TypeDelayMax)

	drv, err := newDriver(ctx, cfg, pacer, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("browser init error: %w", err)
	}

	sessions, err := session.NewStore(cfg.DataDir, cfg.SessionPassphrase, log)
	if err != nil {
		drv.Close(ctx)
		db.Close()
		return nil, fmt.Errorf("session store init error: %w", err)
	}

	var gen ai.Generator
	if cfg.GenAIKey != "" {
		gen, err = ai.NewGeminiGenerator(ctx, cfg.GenAIKey, log)
		if err != nil {
			log.Warn(ctx, "answer generation unavailable", "err", err)
			gen = &ai.StaticGenerator{}
		}
	} else {
		log.Warn(ctx, "no generation key configured, screening answers will be empty")
		gen = &ai.StaticGenerator{}
	}

	app := &App{
		cfg:      cfg,
		log:      log,
		db:       db,
		repos:    manager,
		jobs:     manager.Jobs(db),
		attempts: manager.Attempts(db),
		stats:    analytics.NewService(db, strings.HasPrefix(cfg.DatabaseDSN, "postgres")),
		drv:      drv,
		pacer:    pacer,
		sessions: sessions,
		resolver: resume.NewResolver(resume.Options{
			DataDir:      cfg.DataDir,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		}, log),
		profile: models.ApplicantProfile{
			Name:            cfg.ApplicantName,
			Email:           cfg.Email,
			Phone:           cfg.Phone,
			ExperienceYears: cfg.ExperienceYears,
			Experience:      cfg.Experience,
			ResumePath:      cfg.ResumePath,
		},
	}

	app.authFlow = auth.NewFlow(drv, sessions, log, auth.Options{
		BaseURL:       cfg.BaseURL,
		ProbeTimeout:  cfg.ProbeTimeout,
		ChallengeWait: cfg.ChallengeWait,
	})
	app.searcher = discovery.NewSearcher(drv, pacer, log, discovery.Options{
		BaseURL:          cfg.BaseURL,
		ScrollIterations: cfg.ScrollIterations,
		ResultsTimeout:   cfg.ProbeTimeout,
	})
	app.applier = apply.NewFlow(drv, pacer, gen, log, apply.Options{
		StepBudget:   cfg.StepBudget,
		ProbeTimeout: cfg.ProbeTimeout,
	})

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// credentials returns the configured login pair, prompting interactively for
// whatever is missing. The password never echoes and is never logged.
func (app *App) credentials(ctx context.Context) (auth.Credentials, error) {
	email := app.cfg.Email
	if email == "" {
		fmt.Print("Login email: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return auth.Credentials{}, fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	password := app.cfg.Password
	if password == "" {
		fmt.Print("Password: ")
		raw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return auth.Credentials{}, fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
		common.WipeByteArray(raw)
	}

	if email == "" || password == "" {
		return auth.Credentials{}, fmt.Errorf("credentials missing")
	}
	return auth.Credentials{Email: email, Password: password}, nil
}

// Run executes one full batch. Cleanup runs on every exit path.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	app.initSignalHandler(cancel)
	defer app.Close(context.WithoutCancel(ctx))

	creds, err := app.credentials(ctx)
	if err != nil {
		return err
	}

	if _, err := app.authFlow.EnsureLoggedIn(ctx, creds); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if app.profile.ResumePath != "" {
		local, err := app.resolver.Resolve(ctx, app.profile.ResumePath)
		if err != nil {
			app.log.Warn(ctx, "resume unavailable, continuing without it", "err", err)
		} else {
			app.resumePath = local
		}
	}

	app.discover(ctx)
	app.processQueue(ctx)
	app.logSummary(ctx)

	return ctx.Err()
}

// discover runs the search grid and queues newly found postings.
func (app *App) discover(ctx context.Context) {
	for _, keyword := range app.cfg.Keywords {
		for _, location := range app.cfg.Locations {
			if ctx.Err() != nil {
				return
			}
			records, err := app.searcher.Search(ctx, keyword, location)
			if err != nil {
				app.log.Warn(ctx, "search failed",
					"keyword", keyword, "location", location, "err", err)
				continue
			}
			for i := range records {
				if err := app.jobs.Upsert(ctx, &records[i]); err != nil {
					app.log.Warn(ctx, "upsert failed", "url", records[i].URL, "err", err)
				}
			}
		}
	}

	fresh, err := app.jobs.ListByStatus(ctx, models.StatusNew)
	if err != nil {
		app.log.Error(ctx, "could not list new jobs", "err", err)
		return
	}
	for _, job := range fresh {
		if err := app.jobs.UpdateStatus(ctx, job.URL, models.StatusQueued); err != nil {
			app.log.Warn(ctx, "could not queue job", "url", job.URL, "err", err)
		}
	}
}

// processQueue applies to queued postings until the queue or the daily cap
// is exhausted. Every run appends one attempt row per posting touched.
func (app *App) processQueue(ctx context.Context) {
	queued, err := app.jobs.ListByStatus(ctx, models.StatusQueued)
	if err != nil {
		app.log.Error(ctx, "could not list queue", "err", err)
		return
	}
	app.log.Info(ctx, "processing queue", "queued", len(queued), "cap", app.cfg.MaxDailyApplications)

	submitted := 0
	for i := range queued {
		if ctx.Err() != nil {
			return
		}
		if submitted >= app.cfg.MaxDailyApplications {
			app.log.Info(ctx, "daily application cap reached", "submitted", submitted)
			return
		}

		job := &queued[i]
		if err := app.jobs.UpdateStatus(ctx, job.URL, models.StatusApplying); err != nil {
			app.log.Warn(ctx, "could not mark applying", "url", job.URL, "err", err)
			continue
		}

		result := app.applier.Apply(ctx, job, app.profile, app.resumePath)
		if result.Outcome == models.OutcomeSubmitted {
			submitted++
		}
		app.recordOutcome(ctx, job, result)

		if i < len(queued)-1 {
			app.pause(ctx)
		}
	}
}

// recordOutcome persists the terminal status and the attempt row in a single
// transaction: a job is never marked done without its attempt on record.
func (app *App) recordOutcome(ctx context.Context, job *models.JobRecord, result apply.Result) {
	status := map[models.Outcome]models.Status{
		models.OutcomeSubmitted:     models.StatusApplied,
		models.OutcomeSkipped:       models.StatusSkipped,
		models.OutcomeNotApplicable: models.StatusSkipped,
		models.OutcomeFailed:        models.StatusFailed,
	}[result.Outcome]

	err := dbx.WithTx(ctx, app.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := app.repos.Attempts(tx).Append(ctx, &models.ApplicationAttempt{
			JobURL:      job.URL,
			Outcome:     result.Outcome,
			StepReached: result.StepReached,
			ErrorDetail: result.ErrorDetail,
			Answers:     result.Answers,
		}); err != nil {
			return err
		}
		return app.repos.Jobs(tx).UpdateStatus(ctx, job.URL, status)
	})
	if err != nil {
		app.log.Warn(ctx, "could not record outcome", "url", job.URL, "err", err)
	}
}

// pause sleeps a randomized interval between applications, or until ctx is
// cancelled.
func (app *App) pause(ctx context.Context) {
	d := common.RandDuration(app.cfg.InterApplicationMin, app.cfg.InterApplicationMax)
	if d <= 0 {
		return
	}
	app.log.Debug(ctx, "pausing between applications", "duration", d)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (app *App) logSummary(ctx context.Context) {
	stats, err := app.stats.Collect(ctx)
	if err != nil {
		app.log.Warn(ctx, "could not collect stats", "err", err)
		return
	}
	app.log.Info(ctx, "run summary",
		"total_jobs", stats.TotalJobs,
		"total_attempts", stats.TotalAttempts,
		"submitted", stats.OutcomeCounts[models.OutcomeSubmitted],
		"failed", stats.OutcomeCounts[models.OutcomeFailed],
		"success_rate", fmt.Sprintf("%.2f", stats.SuccessRate),
	)
}

// Close saves the session and releases the browser and the database. Safe to
// call after a failed run; each step degrades independently.
func (app *App) Close(ctx context.Context) {
	if cookies, err := app.drv.Cookies(ctx); err == nil && len(cookies) > 0 {
		if err := app.sessions.Save(ctx, cookies); err != nil {
			app.log.Warn(ctx, "session save failed", "err", err)
		}
	}
	if err := app.drv.Close(ctx); err != nil {
		app.log.Warn(ctx, "browser close failed", "err", err)
	}
	if err := app.db.Close(); err != nil {
		app.log.Warn(ctx, "db close failed", "err", err)
	}
}
