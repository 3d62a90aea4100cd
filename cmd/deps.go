package cmd

import (
	"github.com/JakeFAU/jobpost-scraper/internal/config"
	"github.com/JakeFAU/jobpost-scraper/internal/crawler"
	collyfetcher "github.com/JakeFAU/jobpost-scraper/internal/fetcher/colly"
)

// newFetcher builds the page fetcher shared by every network command. All
// requests carry the browser-like headers from the http config.
func newFetcher(cfg config.HTTPConfig) *collyfetcher.Fetcher {
	return collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.UserAgent,
		Headers:   crawler.BrowserHeaders(cfg.Referer, cfg.AcceptLanguage),
		Timeout:   cfg.Timeout,
		// URL listings can outgrow colly's 10MB body cap.
		MaxBodySize: -1,
	})
}
