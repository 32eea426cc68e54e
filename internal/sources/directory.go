package sources

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/jonathan/company-directory/internal/fetch"
	"github.com/jonathan/company-directory/internal/types"
)

// Directory reads the accelerator's company directory. The listing and the
// company pages are rendered client-side, so every page goes through a Renderer.
type Directory struct {
	renderer fetch.Renderer
	cfg      DirectoryConfig
	log      zerolog.Logger
}

// NewDirectory creates the directory adapter.
func NewDirectory(renderer fetch.Renderer, cfg DirectoryConfig, logger zerolog.Logger) *Directory {
	return &Directory{renderer: renderer, cfg: cfg, log: logger}
}

// ListingURL returns the batch listing URL, e.g.
// https://www.ycombinator.com/companies?batch=Summer%202025.
func (d *Directory) ListingURL() string {
	return d.cfg.BaseURL + "?batch=" + url.PathEscape(d.cfg.Batch)
}

// ListCompanyLinks renders the listing, scrolls to load every card and
// returns the absolute company page URLs in listing order.
func (d *Directory) ListCompanyLinks(ctx context.Context) ([]string, error) {
	listingURL := d.ListingURL()
	html, err := d.renderer.Render(ctx, listingURL, fetch.RenderOptions{
		WaitSelector: d.cfg.CompanyLink,
		Scrolls:      d.cfg.Scrolls,
		ScrollPause:  d.cfg.ScrollPause,
		Timeout:      d.cfg.RenderTimeout,
	})
	if err != nil {
		return nil, err
	}

	links, err := ExtractCompanyLinks(html, listingURL, d.cfg.CompanyLink)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		d.log.Warn().Str("url", listingURL).Str("selector", d.cfg.CompanyLink).Msg("directory listing has no company links")
	}
	return links, nil
}

// FetchCompany renders one company page and builds a directory record.
// The record carries its directory URL, an undetermined mention and source yc.
func (d *Directory) FetchCompany(ctx context.Context, companyURL string) (*types.CompanyRecord, error) {
	html, err := d.renderer.Render(ctx, companyURL, fetch.RenderOptions{
		WaitSelector: d.cfg.Name,
		Timeout:      d.cfg.RenderTimeout,
	})
	if err != nil {
		return nil, err
	}
	return ParseCompanyPage(html, companyURL, d.cfg)
}

// FetchDirectoryCompanies lists the batch and fetches every company page.
// A company that fails to render or parse is logged and skipped.
func (d *Directory) FetchDirectoryCompanies(ctx context.Context) ([]types.CompanyRecord, error) {
	links, err := d.ListCompanyLinks(ctx)
	if err != nil {
		return nil, err
	}
	d.log.Info().Int("companies", len(links)).Str("batch", d.cfg.Batch).Msg("found directory companies")

	records := make([]types.CompanyRecord, 0, len(links))
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		record, err := d.FetchCompany(ctx, link)
		if err != nil {
			d.log.Warn().Err(err).Str("url", link).Msg("skipping directory company")
			continue
		}
		records = append(records, *record)
	}
	return records, nil
}

// ExtractCompanyLinks returns the absolute, deduplicated hrefs matched by selector.
func ExtractCompanyLinks(html, pageURL, selector string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &ParseError{URL: pageURL, Field: "company_link", Cause: err}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{URL: pageURL, Field: "company_link", Cause: err}
	}

	seen := make(map[string]bool)
	links := make([]string, 0)
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		link := abs.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})
	return links, nil
}

// ParseCompanyPage extracts a directory record from a rendered company page.
// The company name is required; the other fields default to empty.
func ParseCompanyPage(html, companyURL string, cfg DirectoryConfig) (*types.CompanyRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{URL: companyURL, Field: "document", Cause: err}
	}

	name := strings.TrimSpace(doc.Find(cfg.Name).First().Text())
	if name == "" {
		return nil, &ParseError{URL: companyURL, Field: "name"}
	}

	record := &types.CompanyRecord{
		Name:             name,
		Description:      strings.TrimSpace(doc.Find(cfg.Description).First().Text()),
		YCProfileURL:     types.StringPtr(companyURL),
		LinkedInMentions: types.MentionUnknown,
		Source:           types.SourceYC,
	}

	if href, ok := doc.Find(cfg.WebsiteButton).First().Attr("href"); ok {
		record.Website = types.StringPtr(strings.TrimSpace(href))
	}
	if href, ok := doc.Find(cfg.LinkedInLink).First().Attr("href"); ok {
		record.LinkedInURL = types.StringPtr(strings.TrimSpace(href))
	}

	return record, nil
}
