package sources

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/company-directory/internal/fetch"
	"github.com/jonathan/company-directory/internal/types"
)

const listingHTML = `
<html><body>
	<a class="_company_86jzd_338" href="/companies/acme">Acme</a>
	<a class="_company_86jzd_338" href="/companies/globex">Globex</a>
	<a class="_company_86jzd_338" href="/companies/acme#top">Acme dup</a>
	<a class="_company_86jzd_338" href="/companies/broken">Broken</a>
	<a class="nav" href="/about">About</a>
</body></html>`

const acmeHTML = `
<html><body>
	<h1 class="text-3xl font-bold">Acme</h1>
	<div class="prose max-w-full whitespace-pre-line">Widgets for everyone.</div>
	<a class="mb-2 whitespace-nowrap md:mb-0" href="https://acme.dev">acme.dev</a>
	<a href="https://twitter.com/acme">Twitter</a>
	<a href="https://www.linkedin.com/company/acme-inc/">LinkedIn</a>
	<a href="https://www.linkedin.com/company/other/">Other</a>
</body></html>`

const globexHTML = `
<html><body>
	<h1 class="text-3xl font-bold">  Globex  </h1>
</body></html>`

func TestDirectory_ListingURL(t *testing.T) {
	d := NewDirectory(fetch.StaticRenderer{}, DefaultDirectoryConfig(), zerolog.Nop())
	assert.Equal(t, "https://www.ycombinator.com/companies?batch=Summer%202025", d.ListingURL())
}

func TestExtractCompanyLinks(t *testing.T) {
	links, err := ExtractCompanyLinks(listingHTML, "https://www.ycombinator.com/companies?batch=Summer%202025", "a[class*='company']")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.ycombinator.com/companies/acme",
		"https://www.ycombinator.com/companies/globex",
		"https://www.ycombinator.com/companies/broken",
	}, links)
}

func TestParseCompanyPage(t *testing.T) {
	record, err := ParseCompanyPage(acmeHTML, "https://www.ycombinator.com/companies/acme", DefaultDirectoryConfig())
	require.NoError(t, err)

	assert.Equal(t, "Acme", record.Name)
	assert.Equal(t, "Widgets for everyone.", record.Description)
	assert.Equal(t, "https://acme.dev", types.Deref(record.Website))
	assert.Equal(t, "https://www.ycombinator.com/companies/acme", types.Deref(record.YCProfileURL))
	assert.Equal(t, "https://www.linkedin.com/company/acme-inc/", types.Deref(record.LinkedInURL))
	assert.Equal(t, types.MentionUnknown, record.LinkedInMentions)
	assert.Nil(t, record.LinkedInMatch)
	assert.Equal(t, types.SourceYC, record.Source)
}

func TestParseCompanyPage_OptionalFieldsMissing(t *testing.T) {
	record, err := ParseCompanyPage(globexHTML, "https://www.ycombinator.com/companies/globex", DefaultDirectoryConfig())
	require.NoError(t, err)

	assert.Equal(t, "Globex", record.Name)
	assert.Equal(t, "", record.Description)
	assert.Nil(t, record.Website)
	assert.Nil(t, record.LinkedInURL)
}

func TestParseCompanyPage_MissingName(t *testing.T) {
	_, err := ParseCompanyPage("<html><body><h1>Other</h1></body></html>", "https://www.ycombinator.com/companies/x", DefaultDirectoryConfig())
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "name", parseErr.Field)
}

func TestDirectory_FetchDirectoryCompanies(t *testing.T) {
	renderer := fetch.StaticRenderer{
		"https://www.ycombinator.com/companies?batch=Summer%202025": listingHTML,
		"https://www.ycombinator.com/companies/acme":                 acmeHTML,
		"https://www.ycombinator.com/companies/globex":               globexHTML,
		"https://www.ycombinator.com/companies/broken":               "<html><body>empty</body></html>",
	}
	d := NewDirectory(renderer, DefaultDirectoryConfig(), zerolog.Nop())

	records, err := d.FetchDirectoryCompanies(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Acme", records[0].Name)
	assert.Equal(t, "Globex", records[1].Name)
}

func TestDirectory_ListingFailure(t *testing.T) {
	d := NewDirectory(fetch.StaticRenderer{}, DefaultDirectoryConfig(), zerolog.Nop())

	_, err := d.FetchDirectoryCompanies(context.Background())
	require.Error(t, err)
}
