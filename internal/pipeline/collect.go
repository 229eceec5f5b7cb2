package pipeline

import (
	"sort"
	"sync"
)

// UnknownTokens accumulates tokens that matched nothing in a vocabulary,
// with occurrence counts. Reviewers use the counts to decide which spellings
// deserve a reference-list or synonym entry. Safe for concurrent use.
type UnknownTokens struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewUnknownTokens creates an empty collector.
func NewUnknownTokens() *UnknownTokens {
	return &UnknownTokens{counts: make(map[string]int)}
}

// Add records one occurrence of a token. Blank tokens are ignored.
func (u *UnknownTokens) Add(token string) {
	if token == "" {
		return
	}
	u.mu.Lock()
	u.counts[token]++
	u.mu.Unlock()
}

// Merge folds a per-page count map into the collector.
func (u *UnknownTokens) Merge(counts map[string]int) {
	u.mu.Lock()
	for token, n := range counts {
		u.counts[token] += n
	}
	u.mu.Unlock()
}

// Counts returns a copy of the token counts.
func (u *UnknownTokens) Counts() map[string]int {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]int, len(u.counts))
	for token, n := range u.counts {
		out[token] = n
	}
	return out
}

// Tokens returns the distinct tokens ordered by descending count, then
// alphabetically, so review lists come out stable run to run.
func (u *UnknownTokens) Tokens() []string {
	counts := u.Counts()
	tokens := make([]string, 0, len(counts))
	for token := range counts {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	return tokens
}
