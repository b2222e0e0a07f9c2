// Package snapshot turns raw page HTML into the immutable PageSnapshot the gates read.
package snapshot

import (
	"bufio"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/chip-gate/models"
	"github.com/go-shiori/go-readability"
)

const maxContentBlocks = 200

var (
	searchContainerSelector = "#rso, #search, #b_results, #links, .search-results, .searchCenterMiddle, [data-testid=mainline]"
	searchBlockSelector     = ".g, .b_algo, .result, .search-result, [data-testid=result], .algo"

	cardSelectors = []string{
		".card", ".product-card", ".product-tile", ".product-item", ".s-result-item",
		"[data-component-type=s-search-result]", ".story", ".teaser", ".promo", ".tile",
		"[data-testid=product-card]", ".grid-item",
	}

	detailSelector = "#dp, #dp-container, #ppd, #productDetails, [data-product-detail], .product-detail, .product-details, .pdp, [itemprop=mainEntity]"

	priceSelector = "[itemprop=price], .a-price, .price, .product-price, [data-testid*=price], meta[property='product:price:amount'], meta[property='og:price:amount']"
	cartSelector  = "#add-to-cart-button, #buy-now-button, [name=add-to-cart], [name='submit.add-to-cart'], button.add-to-cart, [data-testid*=add-to-cart], [data-automation-id=atc], .btn-add-to-cart"

	breadcrumbSelector = "nav[aria-label*=readcrumb], .breadcrumb, .breadcrumbs, #wayfinding-breadcrumbs_feature_div, [itemtype*=BreadcrumbList], [data-testid*=breadcrumb]"
	bylineSelector     = "[rel=author], .byline, .author-name, [itemprop=author], [data-testid*=byline], .article-author"
	timestampSelector  = "time[datetime], [itemprop=datePublished], meta[property='article:published_time'], meta[itemprop=datePublished]"

	variantSelector = "[id^=variation_] .selection, [id^=inline-twister-expanded-dimension-text], select[data-variant] option[selected], [data-selected-variant], .variant-selected"

	purchaseTextPattern = regexp.MustCompile(`(?i)^\s*(add to (cart|bag|basket)|buy now|add to trolley)\s*$`)
)

// Build parses rawURL and html into a snapshot.
func Build(rawURL, html string) (*models.PageSnapshot, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	snap := FromDocument(u, doc)

	// Readability fills in article metadata the DOM selectors miss
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(html), u)
	if err == nil {
		if snap.Title == "" {
			snap.Title = normalizeText(article.Title)
		}
		if article.PublishedTime != nil {
			snap.HasTimestamp = true
		}
		snap.Language = DetectLanguage(article.TextContent)
	}
	if snap.Language == "" {
		snap.Language = DetectLanguage(strings.Join(snap.ContentBlocks, " "))
	}

	return snap, nil
}

// FromDocument extracts every DOM signal from an already-parsed document.
func FromDocument(u *url.URL, doc *goquery.Document) *models.PageSnapshot {
	snap := &models.PageSnapshot{
		URL:    u.String(),
		Scheme: strings.ToLower(u.Scheme),
		Host:   strings.ToLower(u.Hostname()),
		Path:   u.Path,
		Query:  u.RawQuery,
		Title:  normalizeText(doc.Find("title").First().Text()),
	}

	doc.Find("h1").Each(func(i int, s *goquery.Selection) {
		if text := normalizeText(s.Text()); text != "" {
			snap.Headings = append(snap.Headings, text)
		}
	})

	snap.StructuredData = append(extractJSONLD(doc), extractMicrodata(doc)...)

	snap.HasPrice = doc.Find(priceSelector).Length() > 0
	snap.HasAddToCart = doc.Find(cartSelector).Length() > 0 || hasPurchaseButton(doc)
	snap.HasBreadcrumb = doc.Find(breadcrumbSelector).Length() > 0 || hasType(snap.StructuredData, "breadcrumblist")
	snap.HasByline = doc.Find(bylineSelector).Length() > 0
	snap.HasTimestamp = doc.Find(timestampSelector).Length() > 0

	doc.Find(searchContainerSelector).Each(func(i int, s *goquery.Selection) {
		snap.HasSearchContainer = true
		blocks := s.Find(searchBlockSelector).Length()
		if blocks == 0 {
			blocks = s.Children().Length()
		}
		if blocks > snap.SearchResultBlocks {
			snap.SearchResultBlocks = blocks
		}
	})

	snap.ArticleCount = doc.Find("article").Length()
	for _, sel := range cardSelectors {
		if n := doc.Find(sel).Length(); n > snap.CardCount {
			snap.CardCount = n
		}
	}
	if snap.ArticleCount > 1 && snap.ArticleCount > snap.CardCount {
		snap.CardCount = snap.ArticleCount
	}

	snap.DetailCount = doc.Find(detailSelector).Length()
	if snap.ArticleCount == 1 {
		snap.DetailCount++
	}

	snap.ContentBlocks = extractContentBlocks(doc)

	doc.Find(variantSelector).Each(func(i int, s *goquery.Selection) {
		label := normalizeText(s.Text())
		if label == "" {
			label, _ = s.Attr("data-selected-variant")
			label = normalizeText(label)
		}
		if label != "" {
			snap.VariantLabels = append(snap.VariantLabels, label)
		}
	})

	return snap
}

func hasPurchaseButton(doc *goquery.Document) bool {
	found := false
	doc.Find("button, input[type=submit], a[role=button]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := s.Text()
		if v, ok := s.Attr("value"); ok && text == "" {
			text = v
		}
		if purchaseTextPattern.MatchString(text) {
			found = true
			return false
		}
		return true
	})
	return found
}

func hasType(items []models.StructuredItem, want string) bool {
	for _, item := range items {
		if strings.EqualFold(item.Type, want) || strings.HasSuffix(strings.ToLower(item.Type), "/"+want) {
			return true
		}
	}
	return false
}

// extractContentBlocks collects paragraph-level text, preferring the main content region.
func extractContentBlocks(doc *goquery.Document) []string {
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main, [role=main]").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var blocks []string
	root.Find("p, li, blockquote").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if text := normalizeText(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
		return len(blocks) < maxContentBlocks
	})
	return blocks
}

// normalizeText cleans up a string by trimming space and removing excess newlines.
func normalizeText(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.Join(strings.Fields(scanner.Text()), " ")
		if line != "" {
			b.WriteString(line)
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}
