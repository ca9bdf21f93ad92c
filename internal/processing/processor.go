package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

var (
	urlRegex    = regexp.MustCompile(`https?://[^\s]+`)
	tagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "in": {}, "for": {}, "of": {}, "on": {},
	"and": {}, "or": {}, "is": {}, "are": {}, "was": {}, "were": {}, "that": {}, "this": {},
	"with": {}, "from": {}, "have": {}, "has": {}, "been": {}, "will": {}, "they": {}, "their": {},
	"about": {}, "into": {}, "than": {}, "then": {}, "there": {}, "these": {}, "those": {},
}

// StripTags removes HTML tags and decodes entities.
func StripTags(input string) string {
	return html.UnescapeString(tagRegex.ReplaceAllString(input, " "))
}

// ExtractURLs returns the distinct HTTP(S) URLs of input in order of appearance.
func ExtractURLs(input string) []string {
	matches := urlRegex.FindAllString(input, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var urls []string
	for _, u := range matches {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	return urls
}

// CleanText strips markup, URLs and punctuation and squeezes whitespace.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	out := StripTags(input)
	out = urlRegex.ReplaceAllString(out, " ")
	out = punctuation.ReplaceAllString(out, " ")
	out = whitespace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// SqueezeText strips markup and collapses whitespace but keeps punctuation and URLs.
func SqueezeText(input string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(StripTags(input), " "))
}

// ExtractKeywords returns the most frequent non-stopword tokens of at least minLen runes.
// Ties are broken alphabetically.
func ExtractKeywords(text string, limit, minLen int) []string {
	clean := strings.ToLower(CleanText(text))
	if clean == "" {
		return nil
	}

	freq := make(map[string]int)
	for _, token := range strings.Fields(clean) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if utf8.RuneCountInString(token) < minLen {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		freq[token]++
	}

	if len(freq) == 0 {
		return nil
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] == freq[words[j]] {
			return words[i] < words[j]
		}
		return freq[words[i]] > freq[words[j]]
	})

	if limit > 0 && limit < len(words) {
		words = words[:limit]
	}
	return words
}

// BuildDocumentID hashes the stable fields of a feed article into a deterministic ID.
func BuildDocumentID(title, text string, ts time.Time) string {
	s := sha1.Sum([]byte(title + "|" + text + "|" + ts.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(s[:])
}

// GenerateTitleFromText uses the first sentence of text, cut to maxWords words.
func GenerateTitleFromText(text string, maxWords int) string {
	text = urlRegex.ReplaceAllString(text, " ")

	if end := strings.IndexAny(text, ".!?"); end > 0 {
		text = text[:end]
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if maxWords > 0 && len(words) > maxWords {
		return strings.Join(words[:maxWords], " ") + "..."
	}
	return strings.Join(words, " ")
}

// BuildIngestText joins a headline and its description the way the knowledge base expects:
// title, newline, description. Empty parts are dropped.
func BuildIngestText(title, description string) string {
	title = SqueezeText(title)
	description = SqueezeText(description)
	switch {
	case title == "":
		return description
	case description == "":
		return title
	default:
		return title + "\n" + description
	}
}

// Truncate cuts s to at most maxRunes runes.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes])
}
