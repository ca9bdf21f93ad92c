package processing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/credibility-engine/backend/internal/processing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "punctuation", input: "Vaccines!!!   work", want: "Vaccines work"},
		{name: "collapse whitespace", input: "foo\n\nbar\t baz", want: "foo bar baz"},
		{name: "remove urls", input: "Check https://example.com for info", want: "Check for info"},
		{name: "strip tags", input: "<b>Breaking</b> &amp; news", want: "Breaking news"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.CleanText(tt.input))
		})
	}
}

func TestSqueezeText(t *testing.T) {
	require.Equal(t, "Storm hits coast. See https://x.io", processing.SqueezeText("<p>Storm  hits\ncoast.</p> See https://x.io"))
}

func TestExtractKeywords(t *testing.T) {
	text := "Climate climate report report report warns and the ocean"
	got := processing.ExtractKeywords(text, 3, 4)
	require.Equal(t, []string{"report", "climate", "ocean"}, got)

	require.Nil(t, processing.ExtractKeywords("", 5, 3))
	require.Nil(t, processing.ExtractKeywords("the and of", 5, 2))
}

func TestExtractKeywordsIgnoresURLWords(t *testing.T) {
	text := "vaccine vaccine https://example.com/autism-study safety"
	got := processing.ExtractKeywords(text, 5, 4)
	require.ElementsMatch(t, []string{"vaccine", "safety"}, got)
}

func TestBuildDocumentID(t *testing.T) {
	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	id1 := processing.BuildDocumentID("title", "text", ts)
	id2 := processing.BuildDocumentID("title", "text", ts.In(time.FixedZone("x", 3600)))
	require.Len(t, id1, 40)
	require.Equal(t, id1, id2)
	require.NotEqual(t, id1, processing.BuildDocumentID("title", "other", ts))
}

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "no urls", input: "Hello world", want: nil},
		{name: "multiple urls", input: "Go to https://example.com or http://test.org now", want: []string{"https://example.com", "http://test.org"}},
		{name: "duplicate urls", input: "https://example.com and https://example.com again", want: []string{"https://example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.ExtractURLs(tt.input))
		})
	}
}

func TestGenerateTitleFromText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWords int
		want     string
	}{
		{name: "empty", text: "", maxWords: 10, want: ""},
		{name: "first sentence", text: "Floods hit the coast! Thousands evacuated.", maxWords: 10, want: "Floods hit the coast"},
		{name: "truncated", text: "Officials confirm the new policy will take effect next month", maxWords: 4, want: "Officials confirm the new..."},
		{name: "no sentence end", text: "Markets rally on rate cut", maxWords: 10, want: "Markets rally on rate cut"},
		{name: "url before period", text: "Read https://news.example.com/a.b then decide.", maxWords: 0, want: "Read then decide"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.GenerateTitleFromText(tt.text, tt.maxWords))
		})
	}
}

func TestBuildIngestText(t *testing.T) {
	require.Equal(t, "Title\nDescription here", processing.BuildIngestText(" Title ", "Description   here"))
	require.Equal(t, "Only title", processing.BuildIngestText("Only title", ""))
	require.Equal(t, "Only body", processing.BuildIngestText("", "<i>Only</i> body"))
	require.Equal(t, "", processing.BuildIngestText("", " "))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "héllo", processing.Truncate("héllo wörld", 5))
	require.Equal(t, "short", processing.Truncate("short", 10))
	require.Equal(t, "unbounded", processing.Truncate("unbounded", 0))
}
