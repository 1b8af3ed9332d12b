package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ellipsis marks text shortened by TruncateAtWordBoundary
const Ellipsis = "..."

// wordBoundaryWindow is the share of the limit, counted from the end, in
// which a preceding space is accepted as the cut point
const wordBoundaryWindow = 0.2

// DefaultLeadInPhrases are redundant openings stripped from generated alt text
var DefaultLeadInPhrases = []string{
	"this image shows",
	"this picture shows",
	"this photo shows",
	"the image shows",
	"the picture shows",
	"the photo shows",
	"an image of",
	"a picture of",
	"a photo of",
	"a photograph of",
	"an illustration of",
	"image of",
	"picture of",
	"photo of",
	"photograph of",
	"illustration of",
	"this shows",
	"showing",
}

// TruncateAtWordBoundary shortens text to at most maxLength characters. The
// ellipsis is counted inside the limit. When the nearest space before the cut
// lies within the last 20% of the limit the cut moves back to it, otherwise
// the text is cut hard.
func TruncateAtWordBoundary(text string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}

	markerLen := utf8.RuneCountInString(Ellipsis)
	if maxLength <= markerLen {
		return string(runes[:maxLength])
	}

	limit := maxLength - markerLen
	cut := runes[:limit]
	if runes[limit] != ' ' {
		if i := lastSpace(cut); i >= 0 && float64(i) >= float64(limit)*(1-wordBoundaryWindow) {
			cut = cut[:i]
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + Ellipsis
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

// StripLeadInPhrases removes any of phrases from the start of text,
// case-insensitively, until none match
func StripLeadInPhrases(text string, phrases []string) string {
	text = strings.TrimSpace(text)
	for {
		stripped := false
		lower := strings.ToLower(text)
		for _, phrase := range phrases {
			phrase = strings.ToLower(strings.TrimSpace(phrase))
			if phrase == "" || !strings.HasPrefix(lower, phrase) {
				continue
			}
			rest := text[len(phrase):]
			// only whole-word matches: "photography" must survive "photo"
			if r, _ := utf8.DecodeRuneInString(rest); rest != "" && !unicode.IsSpace(r) && !unicode.IsPunct(r) {
				continue
			}
			text = strings.TrimLeftFunc(rest, func(r rune) bool {
				return unicode.IsSpace(r) || r == ':' || r == ',' || r == '-'
			})
			stripped = true
			break
		}
		if !stripped {
			return text
		}
	}
}

// CapitalizeFirst upper-cases the first character of text
func CapitalizeFirst(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if size == 0 {
		return text
	}
	return string(unicode.ToUpper(r)) + text[size:]
}

var quotePairs = map[rune]rune{
	'"':  '"',
	'\'': '\'',
	'`':  '`',
	'“':  '”',
	'‘':  '’',
	'«':  '»',
}

// StripWrappingQuotes removes matching quotes around text, repeatedly
func StripWrappingQuotes(text string) string {
	text = strings.TrimSpace(text)
	for {
		runes := []rune(text)
		if len(runes) < 2 {
			return text
		}
		closing, ok := quotePairs[runes[0]]
		if !ok || runes[len(runes)-1] != closing {
			return text
		}
		text = strings.TrimSpace(string(runes[1 : len(runes)-1]))
	}
}

// StripTrailingPeriods removes any run of periods at the end of text
func StripTrailingPeriods(text string) string {
	return strings.TrimRight(strings.TrimSpace(text), ".")
}

// CleanGeneratedText trims, unquotes, strips lead-in phrases and capitalizes
func CleanGeneratedText(text string, phrases []string) string {
	text = StripWrappingQuotes(text)
	text = StripLeadInPhrases(text, phrases)
	text = StripWrappingQuotes(text)
	return CapitalizeFirst(text)
}

// AppendSuffix appends suffix to text while keeping the result within
// maxLength; text is shortened to make room. A suffix that cannot fit
// alongside any text is dropped.
func AppendSuffix(text, suffix string, maxLength int) string {
	if suffix == "" {
		return TruncateAtWordBoundary(text, maxLength)
	}
	room := maxLength - utf8.RuneCountInString(suffix)
	if room <= utf8.RuneCountInString(Ellipsis) {
		return TruncateAtWordBoundary(text, maxLength)
	}
	return TruncateAtWordBoundary(text, room) + suffix
}

// RuneLen returns the length of text in characters
func RuneLen(text string) int {
	return utf8.RuneCountInString(text)
}
