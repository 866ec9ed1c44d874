package transcript

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

// fold strips diacritics so "café" matches "cafe".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Pattern compiles the search expression for query. Exact matching anchors
// the query on word boundaries; both forms are case-insensitive. The query is
// a user pattern, so compile errors are returned to the caller.
func Pattern(query string, exact bool) (*regexp.Regexp, error) {
	q := fold(query)
	if exact {
		return regexp.Compile(`(?i)\b(?:` + q + `)\b`)
	}
	return regexp.Compile(`(?i)` + q)
}

// Search returns the words matching query, in transcript order. A blank or
// malformed query yields no matches.
func Search(words []domain.Word, query string, exact bool) []domain.WordMatch {
	if strings.TrimSpace(query) == "" {
		return []domain.WordMatch{}
	}
	re, err := Pattern(query, exact)
	if err != nil {
		return []domain.WordMatch{}
	}

	matches := []domain.WordMatch{}
	for i, w := range words {
		if re.MatchString(fold(w.Text)) {
			matches = append(matches, domain.WordMatch{Index: i, Word: w})
		}
	}
	return matches
}

// Phrase is a run of consecutive words matching a multi-word query.
type Phrase struct {
	First int     `json:"first"`
	Last  int     `json:"last"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// token lowercases, folds and trims punctuation for phrase comparison.
func token(s string) string {
	return strings.TrimFunc(strings.ToLower(fold(s)), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// FindPhrase returns every run of consecutive words equal to phrase,
// ignoring case, accents and surrounding punctuation.
func FindPhrase(words []domain.Word, phrase string) []Phrase {
	var want []string
	for _, f := range strings.Fields(phrase) {
		if t := token(f); t != "" {
			want = append(want, t)
		}
	}
	if len(want) == 0 {
		return nil
	}

	var out []Phrase
	for i := 0; i+len(want) <= len(words); i++ {
		ok := true
		for j, w := range want {
			if token(words[i+j].Text) != w {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		last := i + len(want) - 1
		texts := make([]string, 0, len(want))
		for _, w := range words[i : last+1] {
			texts = append(texts, w.Text)
		}
		out = append(out, Phrase{
			First: i,
			Last:  last,
			Start: words[i].Start,
			End:   words[last].End,
			Text:  strings.Join(texts, " "),
		})
	}
	return out
}

// WordsInRange returns the words overlapping sel.
func WordsInRange(words []domain.Word, sel domain.Selection) []domain.WordMatch {
	out := []domain.WordMatch{}
	for i, w := range words {
		if sel.Overlaps(w.Start, w.End) {
			out = append(out, domain.WordMatch{Index: i, Word: w})
		}
	}
	return out
}
