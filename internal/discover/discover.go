// Package discover walks the paginated job listings of each company and
// collects the job posting links found on them.
package discover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/jobpost-scraper/internal/crawler"
	"github.com/JakeFAU/jobpost-scraper/internal/metrics"
	"github.com/JakeFAU/jobpost-scraper/internal/source"
)

const (
	jobLinkSelector  = "a[class*='JobTile'][class*='JobLink'][data-testid='Link']"
	nextPageSelector = "a[aria-label='Next page']"
)

// DefaultWorkers is the number of companies scraped at once.
const DefaultWorkers = 8

// Config controls a Discoverer.
type Config struct {
	// BaseURL is the company listing root, e.g. https://join.com/companies.
	BaseURL  string
	Workers  int
	DelayMin time.Duration
	DelayMax time.Duration
	Headers  http.Header
}

// Options configures Run.
type Options struct {
	// CompanySource holds a JSON array of {"company_name": "..."} objects.
	CompanySource string
	// URLSource holds the previously discovered URL list used as the seed.
	URLSource string
	// Output receives the merged URL list, one per line.
	Output string
}

// Result summarises a discovery run.
type Result struct {
	Companies  int
	Seeded     int
	Discovered int
	Written    int
}

// Discoverer scrapes company pages for job links.
type Discoverer struct {
	fetcher crawler.Fetcher
	loader  *source.Loader
	cfg     Config
	logger  *zap.Logger

	sleep func(ctx context.Context, d time.Duration)
}

// New constructs a Discoverer.
func New(fetcher crawler.Fetcher, cfg Config, logger *zap.Logger) *Discoverer {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = cfg.DelayMin
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{
		fetcher: fetcher,
		loader:  source.NewLoader(fetcher),
		cfg:     cfg,
		logger:  logger,
		sleep:   crawler.Sleep,
	}
}

type companyEntry struct {
	CompanyName string `json:"company_name"`
}

// Run loads the companies and the seed list, discovers every company's links
// and writes the merged, de-duplicated list. Unavailable sources are logged
// and treated as empty.
func (d *Discoverer) Run(ctx context.Context, opts Options) (Result, error) {
	var res Result

	companies, err := d.LoadCompanies(ctx, opts.CompanySource)
	if err != nil {
		d.logger.Error("failed to load companies", zap.String("source", opts.CompanySource), zap.Error(err))
		companies = nil
	}
	res.Companies = len(companies)
	d.logger.Info("extracted unique company names", zap.Int("count", len(companies)))

	var seed []string
	if opts.URLSource != "" {
		seed, err = d.loader.Load(ctx, opts.URLSource)
		if err != nil {
			d.logger.Error("failed to load job post urls", zap.String("source", opts.URLSource), zap.Error(err))
			seed = nil
		}
	}
	res.Seeded = len(seed)

	found := d.Discover(ctx, companies)
	res.Discovered = len(found)

	merged := source.Dedupe(append(seed, found...))
	if err := source.WriteLines(opts.Output, merged); err != nil {
		return res, fmt.Errorf("write discovered urls: %w", err)
	}
	res.Written = len(merged)
	d.logger.Info("job post urls saved", zap.String("output", opts.Output), zap.Int("count", len(merged)))
	return res, nil
}

// LoadCompanies reads the company listing at location and returns the unique
// company names in first-seen order.
func (d *Discoverer) LoadCompanies(ctx context.Context, location string) ([]string, error) {
	data, err := d.loader.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	var entries []companyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode company listing: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name := strings.TrimSpace(e.CompanyName); name != "" {
			names = append(names, name)
		}
	}
	return source.Dedupe(names), nil
}

// Discover scrapes every company with a bounded pool and returns the links in
// company completion order.
func (d *Discoverer) Discover(ctx context.Context, companies []string) []string {
	var (
		mu    sync.Mutex
		links []string
		g     errgroup.Group
	)
	g.SetLimit(d.cfg.Workers)
	for _, company := range companies {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			d.logger.Info("scraping jobs", zap.String("company", company))
			found := d.CompanyLinks(ctx, company)
			d.logger.Info("found job links", zap.String("company", company), zap.Int("count", len(found)))
			metrics.AddDiscoveredLinks(len(found))

			mu.Lock()
			links = append(links, found...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return links
}

// CompanyLinks follows a company's listing pages while a next-page link is
// present. A failing page ends that company's walk and keeps what was found.
func (d *Discoverer) CompanyLinks(ctx context.Context, company string) []string {
	base := d.cfg.BaseURL + "/" + url.PathEscape(company)
	pageURL := base
	var links []string
	for page := 1; ; {
		doc, err := d.fetchPage(ctx, pageURL)
		if err != nil {
			d.logger.Error("error fetching jobs", zap.String("company", company), zap.String("url", pageURL), zap.Error(err))
			return links
		}
		links = append(links, jobLinks(doc, pageURL)...)

		if doc.Find(nextPageSelector).Length() == 0 {
			return links
		}
		page++
		pageURL = fmt.Sprintf("%s?page=%d", base, page)
		d.sleep(ctx, crawler.RandomDelay(d.cfg.DelayMin, d.cfg.DelayMax))
		if ctx.Err() != nil {
			return links
		}
	}
}

func (d *Discoverer) fetchPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := d.fetcher.Fetch(ctx, crawler.FetchRequest{URL: pageURL, Headers: d.cfg.Headers.Clone()})
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("fetch page: HTTP %d", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// jobLinks returns the job tile hrefs of doc, resolved against pageURL.
func jobLinks(doc *goquery.Document, pageURL string) []string {
	base, _ := url.Parse(pageURL)
	var links []string
	doc.Find(jobLinkSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}
		links = append(links, href)
	})
	return links
}
