package analyzer

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// LanguageFilter keeps only posts whose detected language matches one of the
// configured ISO 639-1 codes.
type LanguageFilter struct {
	detector lingua.LanguageDetector
	targets  map[lingua.Language]bool
}

// NewLanguageFilter returns nil when no codes are given, meaning no filtering.
func NewLanguageFilter(isoCodes []string) *LanguageFilter {
	targets := make(map[lingua.Language]bool)
	for _, code := range isoCodes {
		if lang, ok := isoToLingua(code); ok {
			targets[lang] = true
		}
	}
	if len(targets) == 0 {
		return nil
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.AllLanguages()...).
		WithMinimumRelativeDistance(0.25).
		Build()

	return &LanguageFilter{detector: detector, targets: targets}
}

func (f *LanguageFilter) Keep(text string) bool {
	lang, ok := f.detector.DetectLanguageOf(text)
	return ok && f.targets[lang]
}

func isoToLingua(code string) (lingua.Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, lang := range lingua.AllLanguages() {
		if strings.ToLower(lang.IsoCode639_1().String()) == code {
			return lang, true
		}
	}
	return lingua.Unknown, false
}
