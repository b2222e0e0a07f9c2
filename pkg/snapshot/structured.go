package snapshot

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/chip-gate/models"
)

// extractJSONLD reads every application/ld+json block, flattening @graph arrays.
// Malformed blocks are skipped.
func extractJSONLD(doc *goquery.Document) []models.StructuredItem {
	var items []models.StructuredItem
	doc.Find("script[type='application/ld+json']").Each(func(i int, s *goquery.Selection) {
		var raw any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &raw); err != nil {
			return
		}
		items = append(items, walkJSONLD(raw)...)
	})
	return items
}

func walkJSONLD(node any) []models.StructuredItem {
	var items []models.StructuredItem
	switch v := node.(type) {
	case []any:
		for _, child := range v {
			items = append(items, walkJSONLD(child)...)
		}
	case map[string]any:
		if graph, ok := v["@graph"]; ok {
			items = append(items, walkJSONLD(graph)...)
		}
		for _, t := range jsonLDTypes(v["@type"]) {
			items = append(items, models.StructuredItem{
				Type:     t,
				Name:     stringField(v["name"]),
				Headline: stringField(v["headline"]),
			})
		}
		// Products nested under a page entity still count as page data
		if main, ok := v["mainEntity"]; ok {
			items = append(items, walkJSONLD(main)...)
		}
	}
	return items
}

func jsonLDTypes(node any) []string {
	switch v := node.(type) {
	case string:
		return []string{v}
	case []any:
		var types []string
		for _, t := range v {
			if s, ok := t.(string); ok {
				types = append(types, s)
			}
		}
		return types
	}
	return nil
}

func stringField(node any) string {
	switch v := node.(type) {
	case string:
		return normalizeText(v)
	case []any:
		if len(v) > 0 {
			return stringField(v[0])
		}
	case map[string]any:
		return stringField(v["@value"])
	}
	return ""
}

// extractMicrodata reads top-level itemscope elements.
func extractMicrodata(doc *goquery.Document) []models.StructuredItem {
	var items []models.StructuredItem
	doc.Find("[itemscope][itemtype]").Each(func(i int, s *goquery.Selection) {
		if s.ParentsFiltered("[itemscope]").Length() > 0 {
			return
		}
		itemType, _ := s.Attr("itemtype")
		for _, t := range strings.Fields(itemType) {
			items = append(items, models.StructuredItem{
				Type:     t,
				Name:     itempropValue(s, "name"),
				Headline: itempropValue(s, "headline"),
			})
		}
	})
	return items
}

// itempropValue returns prop of the item scoped by s. Properties of nested items
// (a Product's brand or offers) are skipped.
func itempropValue(s *goquery.Selection, prop string) string {
	scope := s.Get(0)
	var value string
	s.Find("[itemprop~=" + prop + "]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if _, nested := sel.Attr("itemscope"); nested {
			return true
		}
		owner := sel.Parent().Closest("[itemscope]")
		if owner.Length() == 0 || owner.Get(0) != scope {
			return true
		}
		if content, ok := sel.Attr("content"); ok {
			value = normalizeText(content)
		} else {
			value = normalizeText(sel.Text())
		}
		return false
	})
	return value
}
