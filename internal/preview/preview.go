// Package preview pre-fills article drafts from the page behind a URL.
package preview

import (
	"fmt"
	"time"

	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// Scraper abstracts the page download so tests can supply canned
// readability results instead of fetching anything.
type Scraper interface {
	Scrape(url string, timeout time.Duration) (*readability.Article, error)
}

// liveScraper fetches and parses the real page.
type liveScraper struct{}

func (s *liveScraper) Scrape(url string, timeout time.Duration) (*readability.Article, error) {
	art, err := readability.FromURL(url, timeout)
	return &art, err
}

// Preview is what the page offered for a draft: a title to use and an
// excerpt for the operator to eyeball before publishing.
type Preview struct {
	URL     string
	Title   string
	Excerpt string
}

type Fetcher struct {
	scraper Scraper
	timeout time.Duration
	logger  *zap.Logger
}

func NewFetcher(logger *zap.Logger) *Fetcher {
	return &Fetcher{
		scraper: &liveScraper{},
		timeout: 30 * time.Second,
		logger:  logger,
	}
}

// Fetch downloads the page and extracts a proposed title and excerpt.
func (f *Fetcher) Fetch(url string) (*Preview, error) {
	f.logger.Info("Fetching preview", zap.String("url", url))

	art, err := f.scraper.Scrape(url, f.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if art.Title == "" {
		return nil, fmt.Errorf("page at %s has no usable title", url)
	}

	return &Preview{
		URL:     url,
		Title:   art.Title,
		Excerpt: art.Excerpt,
	}, nil
}
