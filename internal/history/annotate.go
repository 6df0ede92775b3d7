package history

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Hashtag turns an underscore separated page title into a CamelCase hashtag:
// "solar_eclipse" -> "#SolarEclipse".
func Hashtag(title string) string {
	var b strings.Builder
	b.WriteByte('#')
	for _, word := range strings.Split(title, "_") {
		if word == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(word[size:])
	}
	return b.String()
}

// Annotate replaces every whole-word, case-insensitive occurrence of each page's
// normalized title with the page's hashtag. Pages are applied in order and each
// one sees the output of the previous ones. Pages without a title or normalized
// title are skipped.
func Annotate(text string, pages []Page) string {
	for _, p := range pages {
		if strings.TrimSpace(p.Title) == "" {
			continue
		}
		phrase := strings.ReplaceAll(p.NormalizedTitle, "_", " ")
		if strings.TrimSpace(phrase) == "" {
			continue
		}
		re, err := phrasePattern(phrase)
		if err != nil {
			continue
		}
		text = replaceOutsideHashtags(re, text, Hashtag(p.Title))
	}
	return text
}

func phrasePattern(phrase string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
}

// replaceOutsideHashtags works like ReplaceAllLiteralString but leaves matches
// that directly follow a '#', so a hashtag is never wrapped twice.
func replaceOutsideHashtags(re *regexp.Regexp, text, repl string) string {
	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > 0 && text[start-1] == '#' {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(repl)
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}
