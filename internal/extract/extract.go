// Package extract turns a job posting page into a job.Record. Every field is
// looked up independently; a missing element leaves its field empty instead of
// failing the whole page.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/jobpost-scraper/internal/job"
)

// AboutCompanyHeader labels the first detail section.
const AboutCompanyHeader = "About the Company"

const (
	topperSelector = "div[class*='JobTopperData']"
	aboutSelector  = "div#about-job"
	footerSelector = "div[class*='Meta-elements'][class*='StyledFlex']"
	headerTags     = "h2, p"
	contentTags    = "p, ul"
)

// Icon names used by the page to mark the job topper blocks.
const (
	iconLocation = "LocationPinIcon"
	iconType     = "BriefcaseIcon"
	iconDomain   = "FolderIcon"
	iconSalary   = "SalaryIcon"
)

// Extractor implements crawler.Extractor.
type Extractor struct{}

// New returns an Extractor.
func New() Extractor {
	return Extractor{}
}

// Extract parses body and extracts a record for jobURL.
func (Extractor) Extract(jobURL string, body []byte) (job.Record, error) {
	return Extract(jobURL, body)
}

// Extract parses body and extracts a record for jobURL. It only fails when the
// markup cannot be parsed at all.
func Extract(jobURL string, body []byte) (job.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return job.Record{}, fmt.Errorf("parse html: %w", err)
	}
	return FromDocument(jobURL, doc), nil
}

// FromDocument extracts a record from an already parsed document.
func FromDocument(jobURL string, doc *goquery.Document) job.Record {
	root := doc.Selection
	rec := job.Record{
		CompanyName:    firstText(root, "span"),
		CompanyLogoURL: logoURL(root),
		JobURL:         jobURL,
		Title:          firstText(root, "h1"),
		Details:        detailSections(root),
		LastUpdated:    lastUpdated(root),
	}
	applyTopperData(root, &rec)
	return rec
}

func firstText(root *goquery.Selection, selector string) *string {
	sel := root.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(sel.Text())
	return &text
}

func logoURL(root *goquery.Selection) *string {
	img := root.Find("img").First()
	if img.Length() == 0 {
		return nil
	}
	src, ok := img.Attr("src")
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return nil
	}
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	return &src
}

// applyTopperData classifies each topper block by the svg name inside the
// nearest preceding <i> sibling.
func applyTopperData(root *goquery.Selection, rec *job.Record) {
	root.Find(topperSelector).Each(func(_ int, block *goquery.Selection) {
		icon := block.PrevAllFiltered("i").First()
		if icon.Length() == 0 {
			return
		}
		name, ok := icon.Find("svg").First().Attr("name")
		if !ok {
			return
		}
		text := strings.TrimSpace(block.Text())
		switch name {
		case iconLocation:
			rec.Location = &text
		case iconType:
			rec.EmploymentType = &text
		case iconDomain:
			rec.Domain = &text
		case iconSalary:
			rec.Salary = &text
		}
	})
}

func detailSections(root *goquery.Selection) []job.Section {
	sections := []job.Section{}

	about := root.Find(aboutSelector).First()
	if about.Length() == 0 {
		return sections
	}
	first := about.Find(headerTags).First()
	if first.Length() == 0 {
		return sections
	}
	container := first.Parent().Closest("div")
	if container.Length() == 0 {
		return sections
	}
	sections = append(sections, job.Section{
		Header:  AboutCompanyHeader,
		Content: joinedText(container, "\n"),
	})

	for cur := container.NextAllFiltered(headerTags).First(); cur.Length() > 0; cur = cur.NextAllFiltered(headerTags).First() {
		body := cur.NextAllFiltered("div").First()
		if body.Length() == 0 {
			continue
		}
		var parts []string
		body.ChildrenFiltered(contentTags).Each(func(_ int, el *goquery.Selection) {
			parts = append(parts, joinedText(el, "\n"))
		})
		sections = append(sections, job.Section{
			Header:  strippedText(cur),
			Content: strings.Join(parts, "\n"),
		})
	}
	return sections
}

func lastUpdated(root *goquery.Selection) *string {
	footer := root.Find(footerSelector).First()
	if footer.Length() == 0 {
		return nil
	}
	inner := footer.Find("div").First()
	if inner.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(inner.Text())
	return &text
}

// joinedText joins every descendant text node with sep and trims the result.
func joinedText(sel *goquery.Selection, sep string) string {
	return strings.TrimSpace(strings.Join(textNodes(sel), sep))
}

// strippedText concatenates the trimmed, non-empty descendant text nodes.
func strippedText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, t := range textNodes(sel) {
		b.WriteString(strings.TrimSpace(t))
	}
	return b.String()
}

func textNodes(sel *goquery.Selection) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}
