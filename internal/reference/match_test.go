package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshbird/sightings-etl/internal/domain"
)

func testEntries(names ...string) []domain.ReferenceEntry {
	entries := make([]domain.ReferenceEntry, len(names))
	for i, n := range names {
		entries[i] = domain.ReferenceEntry{Canonical: n}
	}
	return entries
}

func TestNewVocabularyValidation(t *testing.T) {
	tests := []struct {
		name    string
		entries []domain.ReferenceEntry
		wantErr string
	}{
		{
			name:    "empty list rejected",
			entries: nil,
			wantErr: "empty",
		},
		{
			name:    "blank canonical rejected",
			entries: testEntries("Shelduck", "  "),
			wantErr: "blank canonical",
		},
		{
			name:    "case-insensitive duplicate rejected",
			entries: testEntries("Shelduck", "SHELDUCK"),
			wantErr: "duplicate",
		},
		{
			name:    "valid list accepted",
			entries: testEntries("Shelduck", "Teal", "Wigeon"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := newVocabulary("species", tt.entries, DefaultThreshold)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.entries), v.Len())
		})
	}
}

func TestVocabularyMatch(t *testing.T) {
	v, err := newVocabulary("species", testEntries(
		"Shelduck", "Teal", "Wigeon", "Great Crested Grebe", "Little Grebe",
	), DefaultThreshold)
	require.NoError(t, err)

	tests := []struct {
		name       string
		raw        string
		wantName   string
		wantStatus domain.MatchStatus
	}{
		{
			name:       "exact hit scores one",
			raw:        "Shelduck",
			wantName:   "Shelduck",
			wantStatus: domain.MatchExact,
		},
		{
			name:       "exact match is case-insensitive",
			raw:        "  shelduck ",
			wantName:   "Shelduck",
			wantStatus: domain.MatchExact,
		},
		{
			name:       "internal whitespace collapsed",
			raw:        "great  crested   grebe",
			wantName:   "Great Crested Grebe",
			wantStatus: domain.MatchExact,
		},
		{
			name:       "single-edit typo resolves fuzzily",
			raw:        "Shelduk",
			wantName:   "Shelduck",
			wantStatus: domain.MatchFuzzy,
		},
		{
			name:       "trailing plural resolves fuzzily",
			raw:        "Wigeons",
			wantName:   "Wigeon",
			wantStatus: domain.MatchFuzzy,
		},
		{
			name:       "unrelated token stays unmatched",
			raw:        "lorry reversing",
			wantStatus: domain.MatchUnmatched,
		},
		{
			name:       "empty input stays unmatched",
			raw:        "   ",
			wantStatus: domain.MatchUnmatched,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Match(tt.raw)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantName, got.Canonical)
			switch tt.wantStatus {
			case domain.MatchExact:
				assert.Equal(t, 1.0, got.Score)
			case domain.MatchFuzzy:
				assert.GreaterOrEqual(t, got.Score, DefaultThreshold)
				assert.Less(t, got.Score, 1.0)
			}
		})
	}
}

func TestVocabularyMatchUnmatchedKeepsBestScore(t *testing.T) {
	v, err := newVocabulary("species", testEntries("Shelduck", "Teal"), DefaultThreshold)
	require.NoError(t, err)

	got := v.Match("Sheld")
	assert.Equal(t, domain.MatchUnmatched, got.Status)
	assert.Empty(t, got.Canonical)
	// Score of the closest candidate is retained for diagnostics.
	assert.Greater(t, got.Score, 0.0)
	assert.Less(t, got.Score, DefaultThreshold)
}

func TestVocabularyMatchDeterministicTieBreak(t *testing.T) {
	// "Tern" is one edit from both equal-length entries, so the tie breaks
	// lexicographically and repeated calls agree.
	v, err := newVocabulary("species", testEntries("Terns", "Stern"), 0.5)
	require.NoError(t, err)

	first := v.Match("Tern")
	assert.Equal(t, "Stern", first.Canonical)
	for range 10 {
		assert.Equal(t, first, v.Match("Tern"))
	}
}

func TestVocabularyEntry(t *testing.T) {
	entries := []domain.ReferenceEntry{
		{Canonical: "Shelduck", Meta: map[string]string{domain.MetaScientific: "Tadorna tadorna"}},
		{Canonical: "Teal"},
	}
	v, err := newVocabulary("species", entries, DefaultThreshold)
	require.NoError(t, err)

	e, ok := v.Entry("Shelduck")
	require.True(t, ok)
	assert.Equal(t, "Tadorna tadorna", e.Meta[domain.MetaScientific])

	_, ok = v.Entry("Wigeon")
	assert.False(t, ok)
}
