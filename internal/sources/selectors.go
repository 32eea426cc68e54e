package sources

import "time"

// LinkedInSelectors locates profile elements on a public company page.
// Class values are matched as substrings of the class attribute.
type LinkedInSelectors struct {
	Tagline          string `mapstructure:"tagline" validate:"required"`
	ShortDescription string `mapstructure:"short_description" validate:"required"`
	FullDescription  string `mapstructure:"full_description" validate:"required"`
	Website          string `mapstructure:"website" validate:"required"`
	SimilarPages     string `mapstructure:"similar_pages" validate:"required"`
	CompanyPrefix    string `mapstructure:"company_prefix" validate:"required,url"`
}

// DefaultLinkedInSelectors returns the selectors for the current public page layout.
func DefaultLinkedInSelectors() LinkedInSelectors {
	return LinkedInSelectors{
		Tagline:          "top-card-layout__title",
		ShortDescription: "line-clamp-2",
		FullDescription:  "break-words",
		Website:          "link-without-visited-state",
		SimilarPages:     "similar-pages",
		CompanyPrefix:    "https://www.linkedin.com/company/",
	}
}

// DirectoryConfig locates the batch listing and the elements of a company page.
// Selector fields are CSS selectors.
type DirectoryConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	Batch         string        `mapstructure:"batch" validate:"required"`
	CompanyLink   string        `mapstructure:"company_link" validate:"required"`
	Name          string        `mapstructure:"name" validate:"required"`
	Description   string        `mapstructure:"description" validate:"required"`
	WebsiteButton string        `mapstructure:"website_button" validate:"required"`
	LinkedInLink  string        `mapstructure:"linkedin_link" validate:"required"`
	Scrolls       int           `mapstructure:"scrolls" validate:"gte=0"`
	ScrollPause   time.Duration `mapstructure:"scroll_pause" validate:"gte=0"`
	RenderTimeout time.Duration `mapstructure:"render_timeout" validate:"gte=0"`
}

// DefaultDirectoryConfig returns the Summer 2025 listing configuration.
func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		BaseURL:       "https://www.ycombinator.com/companies",
		Batch:         "Summer 2025",
		CompanyLink:   "a[class*='company']",
		Name:          "h1[class*='text-3xl font-bold']",
		Description:   "div[class*='prose max-w-full whitespace-pre-line']",
		WebsiteButton: "a[class*='mb-2 whitespace-nowrap md:mb-0']",
		LinkedInLink:  "a[href*='linkedin.com/company']",
		Scrolls:       5,
		ScrollPause:   1500 * time.Millisecond,
		RenderTimeout: 30 * time.Second,
	}
}
