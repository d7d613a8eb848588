package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Analyzer splits text field values and query text into index terms.
// Implementations must be safe for concurrent use.
type Analyzer interface {
	Tokens(field, text string) []string
}

var englishStopWords = stopSet(
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "if", "in",
	"into", "is", "it", "no", "not", "of", "on", "or", "such", "that", "the",
	"their", "then", "there", "these", "they", "this", "to", "was", "will", "with",
)

var germanStopWords = stopSet(
	"aber", "als", "am", "an", "auch", "auf", "aus", "bei", "bin", "bis", "bist",
	"da", "dadurch", "daher", "darum", "das", "dass", "dein", "deine", "dem", "den",
	"der", "des", "dessen", "deshalb", "die", "dies", "dieser", "dieses", "doch",
	"dort", "du", "durch", "ein", "eine", "einem", "einen", "einer", "eines", "er",
	"es", "euer", "eure", "fur", "hatte", "hatten", "hattest", "hattet", "hier",
	"hinter", "ich", "ihr", "ihre", "im", "in", "ist", "ja", "jede", "jedem",
	"jeden", "jeder", "jedes", "jener", "jenes", "jetzt", "kann", "kannst",
	"konnen", "konnt", "machen", "mein", "meine", "mit", "muss", "musst", "nach",
	"nachdem", "nein", "nicht", "nun", "oder", "seid", "sein", "seine", "sich",
	"sie", "sind", "soll", "sollen", "sollst", "sollt", "sonst", "soweit",
	"sowie", "und", "unser", "unsere", "unter", "vom", "von", "vor", "wann",
	"warum", "was", "weiter", "weitere", "wenn", "wer", "werde", "werden",
	"werdet", "weshalb", "wie", "wieder", "wieso", "wir", "wird", "wirst", "wo",
	"woher", "wohin", "zu", "zum", "zur", "uber",
)

func stopSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// StandardAnalyzer splits on anything that is not a letter or digit,
// lower-cases and drops English stop words.
type StandardAnalyzer struct {
	StopWords map[string]struct{}
}

func NewStandardAnalyzer() *StandardAnalyzer {
	return &StandardAnalyzer{StopWords: englishStopWords}
}

func (a *StandardAnalyzer) Tokens(field, text string) []string {
	return filterStop(splitWords(lower(text)), a.StopWords)
}

// WhitespaceAnalyzer splits on white space only and keeps case.
type WhitespaceAnalyzer struct{}

func (WhitespaceAnalyzer) Tokens(field, text string) []string {
	return strings.Fields(text)
}

// GermanAnalyzer is StandardAnalyzer with German stop words and diacritics
// folded away (ä -> a, ß -> ss).
type GermanAnalyzer struct{}

func (GermanAnalyzer) Tokens(field, text string) []string {
	return filterStop(splitWords(foldGerman(lower(text))), germanStopWords)
}

// PerFieldAnalyzer dispatches on field name and falls back to Default.
type PerFieldAnalyzer struct {
	Default Analyzer
	Fields  map[string]Analyzer
}

func NewPerFieldAnalyzer(def Analyzer, fields map[string]Analyzer) *PerFieldAnalyzer {
	return &PerFieldAnalyzer{Default: def, Fields: fields}
}

func (a *PerFieldAnalyzer) Tokens(field, text string) []string {
	if fa := a.Fields[field]; fa != nil {
		return fa.Tokens(field, text)
	}
	return a.Default.Tokens(field, text)
}

// LanguageAnalyzer returns the analyzer for an ISO 639-1 language code.
// Unknown languages get a StandardAnalyzer.
func LanguageAnalyzer(lang string) Analyzer {
	switch strings.ToLower(lang) {
	case "de", "german":
		return GermanAnalyzer{}
	case "ws", "whitespace":
		return WhitespaceAnalyzer{}
	default:
		return NewStandardAnalyzer()
	}
}

// cases.Caser is stateful, so each call gets its own.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

func foldGerman(s string) string {
	s = strings.ReplaceAll(s, "ß", "ss")
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func filterStop(tokens []string, stop map[string]struct{}) []string {
	if len(stop) == 0 {
		return tokens
	}
	out := tokens[:0]
	for _, tok := range tokens {
		if _, found := stop[tok]; !found {
			out = append(out, tok)
		}
	}
	return out
}
