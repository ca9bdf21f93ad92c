package translate

import "strings"

// Language is a display language selectable by the user.
type Language string

const (
	English Language = "English"
	Hindi   Language = "Hindi"
	Spanish Language = "Spanish"
	French  Language = "French"
	German  Language = "German"
)

// DefaultLanguage is the language the analysis backend answers in.
const DefaultLanguage = English

var codes = map[Language]string{
	English: "en",
	Hindi:   "hi",
	Spanish: "es",
	French:  "fr",
	German:  "de",
}

// Languages returns every supported language, default first.
func Languages() []Language {
	return []Language{English, Hindi, Spanish, French, German}
}

// ParseLanguage resolves a language name case-insensitively.
func ParseLanguage(name string) (Language, bool) {
	name = strings.TrimSpace(name)
	for _, l := range Languages() {
		if strings.EqualFold(string(l), name) {
			return l, true
		}
	}
	return Language(name), false
}

// Code returns the ISO 639-1 code of a supported language.
func (l Language) Code() (string, bool) {
	c, ok := codes[l]
	return c, ok
}
