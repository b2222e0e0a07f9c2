// Package classifier assigns a coarse page type from URL shape and DOM signals.
package classifier

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/dtnitsch/chip-gate/models"
)

// searchEngine describes a host family and the query parameter that marks a results page.
type searchEngine struct {
	hostPattern *regexp.Regexp
	pathPrefix  string
	queryParams []string
}

var searchEngines = []searchEngine{
	{regexp.MustCompile(`(^|\.)google\.[a-z.]+$`), "/search", []string{"q"}},
	{regexp.MustCompile(`(^|\.)bing\.com$`), "/search", []string{"q"}},
	{regexp.MustCompile(`(^|\.)duckduckgo\.com$`), "/", []string{"q"}},
	{regexp.MustCompile(`^search\.yahoo\.com$`), "/search", []string{"p", "q"}},
	{regexp.MustCompile(`(^|\.)yandex\.[a-z.]+$`), "/search", []string{"text"}},
	{regexp.MustCompile(`(^|\.)baidu\.com$`), "/s", []string{"wd", "word"}},
	{regexp.MustCompile(`(^|\.)ecosia\.org$`), "/search", []string{"q"}},
	{regexp.MustCompile(`^search\.brave\.com$`), "/search", []string{"q"}},
	{regexp.MustCompile(`(^|\.)startpage\.com$`), "/", []string{"query", "q"}},
}

var listingHosts = []string{
	// retail
	"amazon.", "walmart.com", "target.com", "ebay.", "etsy.com", "bestbuy.com", "costco.com",
	"homedepot.com", "lowes.com", "aliexpress.com", "temu.com", "iherb.com", "walgreens.com",
	"cvs.com", "sephora.com", "ulta.com",
	// news
	"cnn.com", "bbc.com", "bbc.co.uk", "nytimes.com", "theguardian.com", "reuters.com",
	"foxnews.com", "nbcnews.com", "washingtonpost.com", "usatoday.com", "apnews.com",
	"news.yahoo.com", "dailymail.co.uk", "webmd.com", "healthline.com", "medicalnewstoday.com",
}

var (
	categoryPathPattern = regexp.MustCompile(`(?i)^/(c|b|s|cat|category|categories|browse|shop|department|departments|section|sections|topic|topics|tag|tags|collections?|deals|search|bestsellers|gp/bestsellers)(/|$)`)
	detailPathPattern   = regexp.MustCompile(`(?i)(/dp/|/gp/product/|/ip/|/p/|/product/|/products/|/itm/|/item/|/listing/|\.html?$|/\d{4}/\d{2}/|/article/|/articles/|/news/[^/]+-[^/]+)`)
	sluggedSegment      = regexp.MustCompile(`[a-z0-9]+(-[a-z0-9]+){2,}`)
)

// Classification carries the page type and the rule that produced it.
type Classification struct {
	Type models.PageType `json:"type" yaml:"type"`
	Rule string          `json:"rule" yaml:"rule"`
}

// Classifier is a pure function of a snapshot.
type Classifier struct {
	minListingCards int
}

// New creates a Classifier from the gate configuration.
func New(cfg models.GateConfig) *Classifier {
	minCards := cfg.MinListingCards
	if minCards <= 0 {
		minCards = models.DefaultGateConfig().MinListingCards
	}
	return &Classifier{minListingCards: minCards}
}

// Classify returns the page type for snap.
func (c *Classifier) Classify(snap *models.PageSnapshot) models.PageType {
	return c.Explain(snap).Type
}

// Explain classifies snap and reports which rule matched.
// Rules are checked in priority order; listing signals win over single-subject signals.
func (c *Classifier) Explain(snap *models.PageSnapshot) Classification {
	if snap == nil {
		return Classification{Type: models.PageUnknown, Rule: "empty"}
	}

	if isSearchEngineQuery(snap) {
		return Classification{Type: models.PageSERP, Rule: "search_engine_url"}
	}
	if snap.HasSearchContainer && snap.SearchResultBlocks >= 2 {
		return Classification{Type: models.PageSERP, Rule: "search_results_container"}
	}

	if isListingHost(snap.Host) && isBareOrCategoryPath(snap.Path) {
		return Classification{Type: models.PagePortal, Rule: "listing_host_path"}
	}
	if c.hasCardGrid(snap) {
		return Classification{Type: models.PagePortal, Rule: "card_grid"}
	}

	if snap.PrimaryHeading() != "" && (snap.HasByline || snap.HasTimestamp) && snap.ArticleCount <= 1 {
		return Classification{Type: models.PageArticle, Rule: "single_article"}
	}

	if (snap.HasCommerceSchema() || snap.HasAddToCart || snap.HasPrice) && snap.ProductItemCount() <= 1 {
		return Classification{Type: models.PageProduct, Rule: "single_product"}
	}

	return Classification{Type: models.PageUnknown, Rule: "no_match"}
}

// hasCardGrid reports a repeated card or product group without a singular detail element.
// Multiple product entities in the structured data count as a grid on their own.
func (c *Classifier) hasCardGrid(snap *models.PageSnapshot) bool {
	if snap.ProductItemCount() >= c.minListingCards {
		return true
	}
	return snap.CardCount >= c.minListingCards && snap.DetailCount == 0
}

func isSearchEngineQuery(snap *models.PageSnapshot) bool {
	query, err := url.ParseQuery(snap.Query)
	if err != nil {
		return false
	}
	path := snap.Path
	if path == "" {
		path = "/"
	}
	for _, engine := range searchEngines {
		if !engine.hostPattern.MatchString(snap.Host) {
			continue
		}
		if !strings.HasPrefix(path, engine.pathPrefix) {
			continue
		}
		for _, param := range engine.queryParams {
			if strings.TrimSpace(query.Get(param)) != "" {
				return true
			}
		}
	}
	return false
}

func isListingHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, known := range listingHosts {
		if strings.HasSuffix(known, ".") {
			if strings.HasPrefix(host, known) || strings.Contains(host, "."+known) {
				return true
			}
			continue
		}
		if host == known || strings.HasSuffix(host, "."+known) {
			return true
		}
	}
	return false
}

// isBareOrCategoryPath reports a homepage, a single section segment, or a category route
// with no content-detail signal.
func isBareOrCategoryPath(path string) bool {
	if detailPathPattern.MatchString(path) {
		return false
	}
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return true
	}
	if categoryPathPattern.MatchString(path) {
		return true
	}
	segments := strings.Split(trimmed, "/")
	return len(segments) == 1 && !sluggedSegment.MatchString(strings.ToLower(segments[0]))
}
