package generator

import (
	"errors"
	"net/url"
	"path"
	"strings"
	"unicode"

	"metagen/utils"
)

var errEmptyAfterCleanup = errors.New("generated text is empty after cleanup")

// FallbackUsedPrefix starts the warning of a fallback event that produced text
const FallbackUsedPrefix = "using filename fallback"

// fallback turns a failed alt-tag run into a result: the filename-derived
// text when fallbackToFilename is on, "" otherwise
func (g *Generator) fallback(req AltTagRequest, out outcome) AltTagResult {
	result := AltTagResult{
		Error:    out.err.Error(),
		Metadata: out.meta,
	}

	c := out.call
	if out.settings == nil || !out.settings.AltTag.FallbackToFilename {
		c.warn(StageFallback, "filename fallback disabled, returning empty alt text")
		return result
	}

	name := req.Filename
	if name == "" {
		name = utils.FileNameFromRef(req.ImageURL)
	}
	result.AltText = FilenameToAltText(name)
	result.Fallback = result.AltText != ""
	if result.Fallback {
		c.warn(StageFallback, "%s %q", FallbackUsedPrefix, result.AltText)
	} else {
		c.warn(StageFallback, "filename fallback produced no text for %q", name)
	}
	return result
}

// FilenameToAltText derives alt text from a file name: the extension is
// dropped, "-" and "_" become spaces, leading and trailing digit runs are
// removed and every word is title-cased. "My_Great-Photo_02.jpg" becomes
// "My Great Photo".
func FilenameToAltText(filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	name = strings.TrimSuffix(name, path.Ext(name))

	name = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return ' '
		}
		return r
	}, name)
	name = strings.TrimFunc(name, func(r rune) bool {
		return unicode.IsDigit(r) || unicode.IsSpace(r)
	})

	words := strings.Fields(name)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	runes := []rune(strings.ToLower(w))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
