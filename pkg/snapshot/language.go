package snapshot

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// minLanguageSample is the shortest text worth running detection on.
const minLanguageSample = 40

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.Spanish, lingua.French, lingua.German, lingua.Portuguese, lingua.Italian).
			Build()
	})
	return detector
}

// DetectLanguage returns the ISO 639-1 code of text, or "" when unsure.
func DetectLanguage(text string) string {
	text = strings.TrimSpace(text)
	if len(text) < minLanguageSample {
		return ""
	}
	lang, ok := languageDetector().DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
