package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/jonathan/company-directory/internal/fetch"
	"github.com/jonathan/company-directory/internal/mention"
	"github.com/jonathan/company-directory/internal/types"
)

// UnknownName is used when a profile page has no recognizable title.
const UnknownName = types.UnknownName

// Profile is the content extracted from one network-profile page.
type Profile struct {
	URL string
	// Blocks are the lower-cased text blocks in classification order.
	Blocks      []mention.TextBlock
	Name        string
	Description string
	Website     *string
}

// Record builds a network-sourced record from the profile and its classification.
func (p *Profile) Record(result mention.Result) types.CompanyRecord {
	return types.CompanyRecord{
		Name:             p.Name,
		Description:      p.Description,
		Website:          p.Website,
		LinkedInURL:      types.StringPtr(p.URL),
		LinkedInMentions: result.Mention,
		LinkedInMatch:    result.Evidence,
		Source:           types.SourceLinkedIn,
	}
}

// LinkedIn reads public company pages through a fetch.Getter.
type LinkedIn struct {
	getter    fetch.Getter
	selectors LinkedInSelectors
	log       zerolog.Logger
}

// NewLinkedIn creates the network-profile adapter.
func NewLinkedIn(getter fetch.Getter, selectors LinkedInSelectors, logger zerolog.Logger) *LinkedIn {
	return &LinkedIn{getter: getter, selectors: selectors, log: logger}
}

// FetchProfile fetches one company page and extracts its blocks and fields.
// Any fetch failure is returned as is; the caller treats it as undetermined.
func (l *LinkedIn) FetchProfile(ctx context.Context, profileURL string) (*Profile, error) {
	result, err := l.getter.Get(ctx, profileURL)
	if err != nil {
		return nil, err
	}
	return ParseProfile(result.HTML, profileURL, l.selectors)
}

// FetchProfileText returns only the labeled text blocks of a profile.
func (l *LinkedIn) FetchProfileText(ctx context.Context, profileURL string) ([]mention.TextBlock, error) {
	profile, err := l.FetchProfile(ctx, profileURL)
	if err != nil {
		return nil, err
	}
	return profile.Blocks, nil
}

// DiscoverSimilar collects the "similar pages" company links listed on each
// of the given profiles. Pages that fail to load are logged and skipped.
// Results are deduplicated in first-seen order.
func (l *LinkedIn) DiscoverSimilar(ctx context.Context, profileURLs []string) ([]string, error) {
	seen := make(map[string]bool)
	links := make([]string, 0)

	for _, profileURL := range profileURLs {
		if err := ctx.Err(); err != nil {
			return links, err
		}

		result, err := l.getter.Get(ctx, profileURL)
		if err != nil {
			l.log.Warn().Err(err).Str("url", profileURL).Msg("failed to load profile for similar pages")
			continue
		}

		found, err := ExtractSimilarLinks(result.HTML, l.selectors)
		if err != nil {
			l.log.Warn().Err(err).Str("url", profileURL).Msg("failed to parse similar pages")
			continue
		}

		for _, link := range found {
			if !seen[link] {
				seen[link] = true
				links = append(links, link)
			}
		}
		l.log.Debug().Str("url", profileURL).Int("similar", len(found)).Msg("collected similar pages")
	}

	return links, nil
}

// ParseProfile extracts the profile content from page HTML.
// Missing elements fall back to defaults: the name becomes UnknownName and
// the description is empty.
func ParseProfile(html, profileURL string, sel LinkedInSelectors) (*Profile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{URL: profileURL, Field: "document", Cause: err}
	}

	tagline := firstText(doc, fmt.Sprintf("h1[class*='%s']", sel.Tagline))
	short := firstText(doc, fmt.Sprintf("span[class~='%s']", sel.ShortDescription))
	full := firstText(doc, fmt.Sprintf("p[class*='%s']", sel.FullDescription))

	profile := &Profile{
		URL:         profileURL,
		Blocks:      make([]mention.TextBlock, 0, 3),
		Name:        UnknownName,
		Description: "",
	}

	// Block order is the page layout priority: title first.
	if tagline != "" {
		profile.Name = tagline
		profile.Blocks = append(profile.Blocks, mention.TextBlock{Label: mention.LabelName, Text: strings.ToLower(tagline)})
	}
	if short != "" {
		profile.Blocks = append(profile.Blocks, mention.TextBlock{Label: mention.LabelShortDesc, Text: strings.ToLower(short)})
	}
	if full != "" {
		profile.Blocks = append(profile.Blocks, mention.TextBlock{Label: mention.LabelFullDesc, Text: strings.ToLower(full)})
	}

	switch {
	case full != "":
		profile.Description = full
	case short != "":
		profile.Description = short
	}

	profile.Website = types.StringPtr(extractWebsite(doc, sel))
	return profile, nil
}

// ExtractSimilarLinks returns the company links of the "similar pages" panel
// with tracking query parameters removed.
func ExtractSimilarLinks(html string, sel LinkedInSelectors) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{Field: "similar_pages", Cause: err}
	}

	seen := make(map[string]bool)
	links := make([]string, 0)
	doc.Find(fmt.Sprintf("a[data-tracking-control-name='%s']", sel.SimilarPages)).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || !strings.HasPrefix(href, sel.CompanyPrefix) {
			return
		}
		link := stripTracking(href)
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})
	return links, nil
}

func stripTracking(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		if i := strings.IndexAny(href, "?#"); i >= 0 {
			return href[:i]
		}
		return href
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

func extractWebsite(doc *goquery.Document, sel LinkedInSelectors) string {
	website := ""
	doc.Find(fmt.Sprintf("[class*='%s']", sel.Website)).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		candidate, ok := s.Attr("href")
		if !ok || !strings.HasPrefix(candidate, "http") {
			candidate = fetch.CleanText(s.Text())
		}
		if candidate == "" || strings.Contains(candidate, "linkedin.com") {
			return true
		}
		website = candidate
		return false
	})
	return website
}

func firstText(doc *goquery.Document, selector string) string {
	return fetch.CleanText(doc.Find(selector).First().Text())
}
