// Package subject extracts and validates the short subject a chip would check.
package subject

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dtnitsch/chip-gate/models"
)

// Candidate sources, in priority order.
const (
	SourceStructuredData = "structured_data"
	SourceHeading        = "heading"
	SourceTitle          = "title"
)

var (
	// "Subject | Site Name" and "amazon.com: Subject" style document titles
	titleSeparator = regexp.MustCompile(`\s+[|\-–—:]\s+`)
	domainPrefix   = regexp.MustCompile(`^[\w-]+(\.[a-z]{2,})+:\s*`)
)

// corporateSuffixes are dropped before comparing a candidate with brand tokens.
var corporateSuffixes = map[string]struct{}{
	"com": {}, "net": {}, "org": {}, "co": {}, "uk": {}, "inc": {}, "llc": {},
	"ltd": {}, "corp": {}, "official": {}, "store": {},
}

// Extractor is a pure function of a snapshot plus the adapter registry.
type Extractor struct {
	maxWords int
	brands   map[string]struct{}
	generic  map[string]struct{}
	registry *Registry
}

// New creates an Extractor. A nil registry uses DefaultRegistry.
func New(cfg models.GateConfig, registry *Registry) *Extractor {
	if registry == nil {
		registry = DefaultRegistry()
	}
	maxWords := cfg.MaxSubjectWords
	if maxWords <= 0 {
		maxWords = models.DefaultGateConfig().MaxSubjectWords
	}
	return &Extractor{
		maxWords: maxWords,
		brands:   phraseSet(cfg.BrandTokens),
		generic:  phraseSet(cfg.GenericTerms),
		registry: registry,
	}
}

// ExtractSubject never fails; an unusable page yields an empty subject that needs confirmation.
func (e *Extractor) ExtractSubject(chipType models.ChipType, snap *models.PageSnapshot) models.Subject {
	if snap == nil {
		snap = &models.PageSnapshot{}
	}

	candidate := pickCandidate(chipType, snap)
	method := MethodGeneric
	if adapter, ok := e.registry.Lookup(snap.Host); ok {
		candidate = adapter.Transform(snap, chipType, candidate)
		method = adapter.Name
	}

	text, truncated := Normalize(candidate.Text, e.maxWords)
	reason := e.Validate(text)

	subject := models.Subject{
		Text:             text,
		Confidence:       models.ConfidenceLow,
		NeedsConfirm:     reason != models.FailNone,
		FailReason:       reason,
		ExtractionMethod: method,
		Source:           candidate.Source,
		Variant:          candidate.Variant,
	}
	if !subject.NeedsConfirm {
		switch candidate.Source {
		case SourceStructuredData:
			subject.Confidence = models.ConfidenceHigh
		case SourceHeading:
			if !truncated {
				subject.Confidence = models.ConfidenceHigh
			}
		}
	}
	return subject
}

// Validate classifies how specific a normalized subject is.
func (e *Extractor) Validate(text string) models.FailReason {
	tokens := canonicalTokens(text)
	phrase := strings.Join(tokens, " ")

	if len(tokens) > 0 {
		if _, ok := e.brands[strings.Join(trimCorporateSuffix(tokens), " ")]; ok {
			return models.FailBrandOnly
		}
		if _, ok := e.generic[phrase]; ok {
			return models.FailContainsGenericTerm
		}
	}

	meaningful := 0
	for _, token := range tokens {
		if !isStopword(token) {
			meaningful++
		}
	}
	if meaningful < 2 {
		return models.FailTooShort
	}
	return models.FailNone
}

// Normalize trims, collapses whitespace, and caps text at maxWords whole words.
func Normalize(text string, maxWords int) (string, bool) {
	words := strings.Fields(text)
	truncated := false
	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
		truncated = true
	}
	return strings.Join(words, " "), truncated
}

func pickCandidate(chipType models.ChipType, snap *models.PageSnapshot) Candidate {
	if text := structuredName(chipType, snap.StructuredData); text != "" {
		return Candidate{Text: text, Source: SourceStructuredData}
	}
	if heading := snap.PrimaryHeading(); heading != "" {
		return Candidate{Text: heading, Source: SourceHeading}
	}
	if title := cleanTitle(snap.Title); title != "" {
		return Candidate{Text: title, Source: SourceTitle}
	}
	return Candidate{}
}

// structuredName picks the name/headline field of the entity matching the chip type.
func structuredName(chipType models.ChipType, items []models.StructuredItem) string {
	for _, item := range items {
		if chipType == models.ChipProduct && item.IsProduct() && strings.TrimSpace(item.Name) != "" {
			return item.Name
		}
		if chipType == models.ChipHealth && item.IsContent() {
			if strings.TrimSpace(item.Headline) != "" {
				return item.Headline
			}
			if strings.TrimSpace(item.Name) != "" {
				return item.Name
			}
		}
	}
	if chipType == models.ChipProduct {
		for _, item := range items {
			if item.IsCommerce() && strings.TrimSpace(item.Name) != "" {
				return item.Name
			}
		}
	}
	return ""
}

// cleanTitle drops the site-name segment of a document title.
func cleanTitle(title string) string {
	title = domainPrefix.ReplaceAllString(strings.TrimSpace(title), "")
	parts := titleSeparator.Split(title, -1)
	return strings.TrimSpace(parts[0])
}

// canonicalTokens lowercases text and splits it on anything that is not a letter or digit.
func canonicalTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func trimCorporateSuffix(tokens []string) []string {
	for len(tokens) > 1 {
		if _, ok := corporateSuffixes[tokens[len(tokens)-1]]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

func phraseSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		if phrase := strings.Join(canonicalTokens(term), " "); phrase != "" {
			set[phrase] = struct{}{}
		}
	}
	return set
}
