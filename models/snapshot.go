package models

import "strings"

// StructuredItem is one schema.org entity found in JSON-LD or microdata.
type StructuredItem struct {
	Type     string `json:"type" yaml:"type"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Headline string `json:"headline,omitempty" yaml:"headline,omitempty"`
}

var commerceTypes = map[string]struct{}{
	"product": {}, "productgroup": {}, "productmodel": {}, "offer": {}, "aggregateoffer": {},
	"individualproduct": {}, "drug": {}, "dietarysupplement": {},
}

var contentTypes = map[string]struct{}{
	"article": {}, "newsarticle": {}, "blogposting": {}, "reportagenewsarticle": {},
	"analysisnewsarticle": {}, "scholarlyarticle": {}, "medicalscholarlyarticle": {},
	"medicalwebpage": {}, "healthtopiccontent": {}, "medicalcondition": {},
	"medicaltherapy": {}, "medicalentity": {},
}

func normalizedType(t string) string {
	t = strings.TrimSpace(t)
	if i := strings.LastIndexAny(t, "/#:"); i >= 0 {
		t = t[i+1:]
	}
	return strings.ToLower(t)
}

// IsCommerce reports whether the item describes something purchasable.
func (s StructuredItem) IsCommerce() bool {
	_, ok := commerceTypes[normalizedType(s.Type)]
	return ok
}

// IsProduct reports whether the item is a product entity (not an offer).
func (s StructuredItem) IsProduct() bool {
	switch normalizedType(s.Type) {
	case "product", "productgroup", "productmodel", "individualproduct", "drug", "dietarysupplement":
		return true
	}
	return false
}

// IsContent reports whether the item describes editorial or medical content.
func (s StructuredItem) IsContent() bool {
	_, ok := contentTypes[normalizedType(s.Type)]
	return ok
}

// PageSnapshot is the immutable view of a page that every gate reads.
// It is built once per evaluation at the system boundary.
type PageSnapshot struct {
	URL    string `json:"url" yaml:"url"`
	Scheme string `json:"scheme" yaml:"scheme"`
	Host   string `json:"host" yaml:"host"`
	Path   string `json:"path" yaml:"path"`
	Query  string `json:"query,omitempty" yaml:"query,omitempty"`

	Title          string           `json:"title,omitempty" yaml:"title,omitempty"`
	Headings       []string         `json:"headings,omitempty" yaml:"headings,omitempty"`
	StructuredData []StructuredItem `json:"structured_data,omitempty" yaml:"structured_data,omitempty"`

	HasPrice      bool `json:"has_price" yaml:"has_price"`
	HasAddToCart  bool `json:"has_add_to_cart" yaml:"has_add_to_cart"`
	HasBreadcrumb bool `json:"has_breadcrumb" yaml:"has_breadcrumb"`
	HasByline     bool `json:"has_byline" yaml:"has_byline"`
	HasTimestamp  bool `json:"has_timestamp" yaml:"has_timestamp"`

	HasSearchContainer bool `json:"has_search_container" yaml:"has_search_container"`
	SearchResultBlocks int  `json:"search_result_blocks" yaml:"search_result_blocks"`
	CardCount          int  `json:"card_count" yaml:"card_count"`
	DetailCount        int  `json:"detail_count" yaml:"detail_count"`
	ArticleCount       int  `json:"article_count" yaml:"article_count"`

	ContentBlocks []string `json:"content_blocks,omitempty" yaml:"content_blocks,omitempty"`
	VariantLabels []string `json:"variant_labels,omitempty" yaml:"variant_labels,omitempty"`
	Language      string   `json:"language,omitempty" yaml:"language,omitempty"`
}

// Origin returns scheme://host for origin-scoped state.
func (p *PageSnapshot) Origin() string {
	scheme := p.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + p.Host
}

// PrimaryHeading returns the first non-empty top-level heading.
func (p *PageSnapshot) PrimaryHeading() string {
	for _, h := range p.Headings {
		if strings.TrimSpace(h) != "" {
			return h
		}
	}
	return ""
}

// ProductItemCount counts distinct product entities in the structured data.
func (p *PageSnapshot) ProductItemCount() int {
	seen := make(map[string]struct{})
	anonymous := 0
	for _, item := range p.StructuredData {
		if !item.IsProduct() {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(item.Name))
		if name == "" {
			anonymous++
			continue
		}
		seen[name] = struct{}{}
	}
	return len(seen) + anonymous
}

// HasCommerceSchema reports whether any commerce entity was found.
func (p *PageSnapshot) HasCommerceSchema() bool {
	for _, item := range p.StructuredData {
		if item.IsCommerce() {
			return true
		}
	}
	return false
}

// HasContentSchema reports whether any editorial/medical entity was found.
func (p *PageSnapshot) HasContentSchema() bool {
	for _, item := range p.StructuredData {
		if item.IsContent() {
			return true
		}
	}
	return false
}
