package otodom

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"flat-ranker/config"
	"flat-ranker/models"
	"flat-ranker/utils"
)

// Scraper collects rental listings from otodom search results and merges
// each listing's detail-page attributes into its field bag.
type Scraper struct {
	cfg        *config.Config
	logger     *utils.Logger
	pool       *utils.WorkerPool
	visitedURL *utils.URLSet
	retry      *utils.RetryConfig

	mu       sync.Mutex
	listings []*models.RawListing
}

// New creates a ready-to-use otodom Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:        cfg,
		logger:     logger,
		pool:       utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		visitedURL: utils.NewURLSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		listings: make([]*models.RawListing, 0),
	}
}

// Scrape walks the search result pages until MaxSearch listings are covered
// or the site stops returning a result list.
func (s *Scraper) Scrape(ctx context.Context) ([]*models.RawListing, error) {
	params := SearchParams{
		MaxPrice:         s.cfg.SearchMaxPrice,
		MinArea:          s.cfg.SearchMinArea,
		DaysSinceCreated: s.cfg.DaysSinceCreated,
	}
	pages := PageCount(s.cfg.MaxSearch)
	s.logger.Info("[otodom] Starting scrape: %d page(s), %d listings/page, max price %d, min area %d",
		pages, ListingsPerPage, params.MaxPrice, params.MinArea)

	chromeBin := s.cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	s.logger.Info("[otodom] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	for page := 1; page <= pages; page++ {
		pageURL := SearchURL(params, page)
		s.logger.Info("[otodom] Scraping page %d/%d", page, pages)
		s.logger.Debug("[otodom] Page URL: %s", pageURL)

		html, err := s.render(browserCtx, pageURL, fmt.Sprintf("search-page-%d", page))
		if err != nil {
			if ctx.Err() != nil {
				return s.listings, ctx.Err()
			}
			s.logger.Error("[otodom] Page %d failed: %v", page, err)
			continue
		}

		cards, ok, err := ParseSearchPage(html)
		if err != nil {
			s.logger.Error("[otodom] Page %d could not be parsed: %v", page, err)
			continue
		}
		if !ok {
			s.logger.Warn("[otodom] Page %d has no result list, stopping", page)
			break
		}

		s.scrapeDetails(browserCtx, cards)
		s.logger.Info("[otodom] Page %d done, collected %d listings so far", page, len(s.listings))
	}

	s.logger.Info("[otodom] Scrape complete, total raw listings: %d", len(s.listings))
	return s.listings, nil
}

// scrapeDetails fetches the detail page of every new card in the pool.
// A card whose detail page cannot be loaded is dropped: without it the
// monthly charges are unknown.
func (s *Scraper) scrapeDetails(browserCtx context.Context, cards []Card) {
	for _, card := range cards {
		c := card
		if !s.visitedURL.Add(c.URL) {
			s.logger.Debug("[otodom] Skipping duplicate: %s", c.URL)
			continue
		}

		s.pool.Submit(func() {
			html, err := s.render(browserCtx, c.URL, "detail-page")
			if err != nil {
				s.logger.Warn("[otodom] Detail page failed for %s: %v", c.URL, err)
				return
			}
			attrs, err := ParseDetailPage(html)
			if err != nil {
				s.logger.Warn("[otodom] Detail page unreadable for %s: %v", c.URL, err)
				return
			}

			fields := make(map[string]string, len(c.Fields)+len(attrs))
			for k, v := range c.Fields {
				fields[k] = v
			}
			for k, v := range attrs {
				fields[k] = v
			}

			s.mu.Lock()
			s.listings = append(s.listings, &models.RawListing{
				URL:       c.URL,
				Fields:    fields,
				ScrapedAt: time.Now(),
			})
			s.mu.Unlock()
		})
	}
	s.pool.Wait()
}

// render loads url in a fresh tab and returns the document HTML once the
// page scripts have run.
func (s *Scraper) render(browserCtx context.Context, url, operation string) (string, error) {
	var html string

	err := s.retry.Do(browserCtx, operation, func() error {
		ctx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
		defer cancelTimeout()

		err := chromedp.Run(ctx,
			chromedp.Navigate(url),
			chromedp.Sleep(3*time.Second),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil {
			return fmt.Errorf("chromedp render: %w", err)
		}
		return nil
	})

	return html, err
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
