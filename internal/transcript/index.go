package transcript

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

// Index is an in-memory full-text index over one transcript's words. It
// finds stemmed and misspelled forms that the pattern search misses.
//
// Safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	words []domain.Word
}

type wordDocument struct {
	Text string `json:"text"`
}

// NewIndex builds an index over words.
func NewIndex(words []domain.Word) (*Index, error) {
	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = en.AnalyzerName

	doc := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	text.Analyzer = en.AnalyzerName
	text.Store = false
	doc.AddFieldMappingsAt("text", text)
	m.DefaultMapping = doc

	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("create transcript index: %w", err)
	}

	batch := idx.NewBatch()
	for i, w := range words {
		if err := batch.Index(strconv.Itoa(i), wordDocument{Text: fold(w.Text)}); err != nil {
			idx.Close()
			return nil, fmt.Errorf("index word %d: %w", i, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return nil, fmt.Errorf("index transcript: %w", err)
	}

	return &Index{index: idx, words: words}, nil
}

// Fuzzy returns words matching q by stem or within edit distance 1, in
// transcript order. At most limit matches are returned.
func (x *Index) Fuzzy(ctx context.Context, q string, limit int) ([]domain.WordMatch, error) {
	q = strings.TrimSpace(fold(q))
	if q == "" {
		return []domain.WordMatch{}, nil
	}
	if limit <= 0 {
		limit = 100
	}

	match := bleve.NewMatchQuery(q)
	match.SetField("text")

	queries := []query.Query{match}
	for _, term := range strings.Fields(strings.ToLower(q)) {
		fz := bleve.NewFuzzyQuery(term)
		fz.SetField("text")
		fz.SetFuzziness(1)
		queries = append(queries, fz)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(queries...), limit, 0, false)

	x.mu.RLock()
	defer x.mu.RUnlock()

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search transcript: %w", err)
	}

	out := make([]domain.WordMatch, 0, len(res.Hits))
	for _, hit := range res.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil || i < 0 || i >= len(x.words) {
			continue
		}
		out = append(out, domain.WordMatch{Index: i, Word: x.words[i]})
	}
	slices.SortFunc(out, func(a, b domain.WordMatch) int { return a.Index - b.Index })
	return out, nil
}

// Close releases the index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index.Close()
}
