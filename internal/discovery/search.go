// Package discovery finds candidate job listings for keyword and location
// combinations and turns result cards into JobRecord values. Extraction is
// fault tolerant: a malformed card is logged and skipped, it never aborts
// the batch.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/avolkovs/applybot/internal/browser"
	"github.com/avolkovs/applybot/internal/logging"
	"github.com/avolkovs/applybot/internal/models"
)

// Selectors names the result-page landmarks. Cards are assumed to be sibling
// elements of one type, so an individual card is addressed by nth-of-type.
type Selectors struct {
	ResultsList  string
	Card         string
	CardTitle    string
	CardCompany  string
	CardLocation string
	CardLink     string
}

// DefaultSelectors returns the selector set for the supported job board.
func DefaultSelectors() Selectors {
	return Selectors{
		ResultsList:  ".jobs-search__results-list",
		Card:         ".job-card-container",
		CardTitle:    "h3.job-card-list__title",
		CardCompany:  "h4.job-card-container__company-name",
		CardLocation: ".job-card-container__metadata-item",
		CardLink:     "a.job-card-list__title",
	}
}

// Options tunes one search pass.
type Options struct {
	BaseURL   string
	Selectors Selectors

	// ScrollIterations bounds the lazy-load scroll loop.
	ScrollIterations int

	// ResultsTimeout bounds the wait for the results container.
	ResultsTimeout time.Duration
}

// Searcher runs result-page searches over a browser driver.
type Searcher struct {
	drv   browser.Driver
	pacer *browser.Pacer
	log   logging.Logger
	opts  Options
}

// NewSearcher wires a Searcher to the driver and pacer.
func NewSearcher(drv browser.Driver, pacer *browser.Pacer, log logging.Logger, opts Options) *Searcher {
	if opts.Selectors.Card == "" {
		opts.Selectors = DefaultSelectors()
	}
	if opts.ScrollIterations <= 0 {
		opts.ScrollIterations = 3
	}
	if opts.ResultsTimeout <= 0 {
		opts.ResultsTimeout = 10 * time.Second
	}
	return &Searcher{drv: drv, pacer: pacer, log: log, opts: opts}
}

// SearchURL builds the result-page URL for one keyword and location pair.
func (s *Searcher) SearchURL(keyword, location string) string {
	q := url.Values{}
	q.Set("keywords", keyword)
	q.Set("location", location)
	return s.opts.BaseURL + "/jobs/search/?" + q.Encode()
}

// Search loads the result page for the pair, scrolls a bounded number of
// times to trigger lazy loading, and extracts every well-formed card. The
// returned records have status "new"; deduplication against already-known
// URLs is the caller's concern.
func (s *Searcher) Search(ctx context.Context, keyword, location string) ([]models.JobRecord, error) {
	target := s.SearchURL(keyword, location)
	s.log.Info(ctx, "searching", "keyword", keyword, "location", location)

	if err := s.drv.Navigate(ctx, target); err != nil {
		return nil, fmt.Errorf("navigate search: %w", err)
	}
	if _, err := s.drv.Find(ctx, s.opts.Selectors.ResultsList, s.opts.ResultsTimeout); err != nil {
		return nil, fmt.Errorf("results list %s: %w", s.opts.Selectors.ResultsList, err)
	}

	for i := 0; i < s.opts.ScrollIterations; i++ {
		if err := s.drv.ScrollToBottom(ctx); err != nil {
			s.log.Warn(ctx, "scroll failed", "iteration", i+1, "err", err)
			break
		}
		s.pacer.Settle(ctx)
	}

	cards, err := s.drv.FindAll(ctx, s.opts.Selectors.Card)
	if err != nil {
		return nil, fmt.Errorf("find cards: %w", err)
	}

	now := time.Now().UTC()
	records := make([]models.JobRecord, 0, len(cards))
	for i := range cards {
		record, err := s.extractCard(ctx, i+1, now)
		if err != nil {
			s.log.Warn(ctx, "skipping malformed card", "index", i+1, "err", err)
			continue
		}
		records = append(records, record)
	}

	s.log.Info(ctx, "search complete",
		"keyword", keyword, "location", location,
		"cards", len(cards), "extracted", len(records))
	return records, nil
}

// extractCard reads the n-th card (1-based). Title, company and URL are
// required; a missing location degrades to "".
func (s *Searcher) extractCard(ctx context.Context, n int, discoveredAt time.Time) (models.JobRecord, error) {
	sel := s.opts.Selectors
	scope := fmt.Sprintf("%s:nth-of-type(%d)", sel.Card, n)

	title, err := s.cardText(ctx, scope, sel.CardTitle)
	if err != nil {
		return models.JobRecord{}, fmt.Errorf("title: %w", err)
	}
	company, err := s.cardText(ctx, scope, sel.CardCompany)
	if err != nil {
		return models.JobRecord{}, fmt.Errorf("company: %w", err)
	}

	links, err := s.drv.FindAll(ctx, scope+" "+sel.CardLink)
	if err != nil || len(links) == 0 {
		return models.JobRecord{}, fmt.Errorf("link %s: not found", sel.CardLink)
	}
	jobURL := links[0].Attr("href")
	if jobURL == "" {
		return models.JobRecord{}, fmt.Errorf("link %s: empty href", sel.CardLink)
	}

	location, _ := s.cardText(ctx, scope, sel.CardLocation)

	return models.JobRecord{
		Title:        title,
		Company:      company,
		Location:     location,
		URL:          jobURL,
		Status:       models.StatusNew,
		DiscoveredAt: discoveredAt,
		UpdatedAt:    discoveredAt,
	}, nil
}

func (s *Searcher) cardText(ctx context.Context, scope, selector string) (string, error) {
	els, err := s.drv.FindAll(ctx, scope+" "+selector)
	if err != nil || len(els) == 0 {
		return "", fmt.Errorf("%s: not found", selector)
	}
	text := els[0].Text()
	if text == "" {
		return "", fmt.Errorf("%s: empty text", selector)
	}
	return text, nil
}
