package textproc

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Compiled once at package init, shared across all calls.
var reURL = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`)

// currencyRunes is the fixed currency-symbol set counted by
// FeatureCurrencyCount. Runes in the Unicode Sc category count as well.
var currencyRunes = map[rune]bool{
	'$': true, '€': true, '£': true, '¥': true, '₹': true,
	'₩': true, '¢': true, '₽': true, '₺': true, '₿': true,
}

// shortMsgLen is the original-length bound under which a URL-bearing message
// sets the shortMsgWithUrl flag. Smished links overwhelmingly arrive in
// terse messages.
const shortMsgLen = 60

// shallowFeatures derives the cheap numeric signals. All rates use the
// original (pre-normalization) text length as their basis.
func shallowFeatures(original string) map[string]float64 {
	length := utf8.RuneCountInString(original)
	basis := float64(max(1, length))

	punct := 0
	currency := 0
	numeric := 0
	for _, r := range original {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			punct++
		}
		if currencyRunes[r] || unicode.Is(unicode.Sc, r) {
			currency++
		}
		if unicode.IsNumber(r) {
			numeric++
		}
	}

	urls := len(reURL.FindAllStringIndex(original, -1))

	shortWithURL := 0.0
	if length < shortMsgLen && urls >= 1 {
		shortWithURL = 1.0
	}

	return map[string]float64{
		FeaturePunctuationRate: float64(punct) / basis,
		FeatureCapsRatio:       capsRatio(original),
		FeatureURLCount:        float64(urls),
		FeatureCurrencyCount:   float64(currency),
		FeatureNumericDensity:  float64(numeric) / basis,
		FeatureShortMsgWithURL: shortWithURL,
	}
}

// capsRatio is the share of alphabetic tokens that are fully uppercase and
// at least three runes long, over all alphabetic tokens in the original
// text. Zero when the text has no alphabetic tokens.
func capsRatio(original string) float64 {
	fields := strings.FieldsFunc(original, tokenBoundary)
	alpha, caps := 0, 0
	for _, f := range fields {
		if !isAlphabetic(f) {
			continue
		}
		alpha++
		if utf8.RuneCountInString(f) >= 3 && f == strings.ToUpper(f) {
			caps++
		}
	}
	if alpha == 0 {
		return 0
	}
	return float64(caps) / float64(alpha)
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
