package reference

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/marshbird/sightings-etl/internal/domain"
)

// Vocabulary is one closed reference list with fuzzy lookup. It implements
// domain.Vocabulary as a pure function over an immutable snapshot: no
// per-call state, safe for concurrent page workers.
//
// Lookups are a full linear scan. Vocabularies hold hundreds of entries, so
// a scan is fast enough and keeps the matching auditable; no index needed.
type Vocabulary struct {
	name      string
	entries   []domain.ReferenceEntry
	folded    []string       // normalized form of each entry, same order
	exact     map[string]int // normalized form → entries index
	threshold float64
}

func newVocabulary(name string, entries []domain.ReferenceEntry, threshold float64) (*Vocabulary, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s vocabulary is empty", name)
	}

	v := &Vocabulary{
		name:      name,
		entries:   entries,
		folded:    make([]string, len(entries)),
		exact:     make(map[string]int, len(entries)),
		threshold: threshold,
	}
	for i, e := range entries {
		f := fold(e.Canonical)
		if f == "" {
			return nil, fmt.Errorf("%s vocabulary: blank canonical entry at row %d", name, i+1)
		}
		if prev, dup := v.exact[f]; dup {
			return nil, fmt.Errorf("%s vocabulary: duplicate canonical entry %q (rows %d and %d)",
				name, e.Canonical, prev+1, i+1)
		}
		v.folded[i] = f
		v.exact[f] = i
	}
	return v, nil
}

// Name identifies the vocabulary in reports and metrics.
func (v *Vocabulary) Name() string { return v.name }

// Len returns the number of canonical entries.
func (v *Vocabulary) Len() int { return len(v.entries) }

// Match resolves a raw token to the closest canonical entry.
//
// The raw string is normalized (case-folded, trimmed, internal whitespace
// collapsed). An equality hit returns Exact with score 1.0. Otherwise every
// entry is scored by normalized Levenshtein similarity and the maximum wins;
// ties break to the shortest canonical string, then lexicographic order, so
// identical inputs always yield identical output. Below the threshold the
// status is Unmatched, with the best score retained for diagnostics.
func (v *Vocabulary) Match(raw string) domain.MatchResult {
	needle := fold(raw)
	if needle == "" {
		return domain.MatchResult{Status: domain.MatchUnmatched}
	}

	if i, ok := v.exact[needle]; ok {
		return domain.MatchResult{
			Canonical: v.entries[i].Canonical,
			Score:     1.0,
			Status:    domain.MatchExact,
		}
	}

	best := -1
	bestScore := 0.0
	for i, candidate := range v.folded {
		score := similarity(needle, candidate)
		switch {
		case best < 0 || score > bestScore:
			best, bestScore = i, score
		case score == bestScore && tieBreakBefore(candidate, v.folded[best]):
			best = i
		}
	}

	if bestScore < v.threshold {
		return domain.MatchResult{Score: bestScore, Status: domain.MatchUnmatched}
	}
	return domain.MatchResult{
		Canonical: v.entries[best].Canonical,
		Score:     bestScore,
		Status:    domain.MatchFuzzy,
	}
}

// Entry returns the full reference entry for a canonical name.
func (v *Vocabulary) Entry(canonical string) (domain.ReferenceEntry, bool) {
	if i, ok := v.exact[fold(canonical)]; ok {
		return v.entries[i], true
	}
	return domain.ReferenceEntry{}, false
}

// tieBreakBefore orders equal-scoring candidates: shorter first, then
// lexicographic.
func tieBreakBefore(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// fold normalizes a string for comparison: case-folded, trimmed, internal
// whitespace collapsed.
func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// similarity is one minus the Levenshtein distance normalized by the longer
// string's length. Monotonic (fewer edits relative to length scores higher)
// and symmetric, since both inputs are pre-folded.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

// Similarity scores two raw strings on the matcher's own scale, folding both
// first. Exposed for data integrity tooling that looks for near-duplicate
// reference entries.
func Similarity(a, b string) float64 {
	return similarity(fold(a), fold(b))
}
