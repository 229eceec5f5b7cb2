package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshbird/sightings-etl/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(
		testEntries("Shelduck", "Teal", "Wigeon"),
		testEntries("Mostyn Bank", "Point of Ayr", "Connah's Quay"),
		DefaultSynonyms(),
		DefaultThreshold,
	)
	require.NoError(t, err)
	return store
}

func TestNewStoreValidation(t *testing.T) {
	species := testEntries("Shelduck")
	locations := testEntries("Mostyn Bank")

	tests := []struct {
		name      string
		species   []domain.ReferenceEntry
		locations []domain.ReferenceEntry
		synonyms  map[string]string
		threshold float64
		wantErr   string
	}{
		{
			name:      "zero threshold rejected",
			species:   species,
			locations: locations,
			synonyms:  DefaultSynonyms(),
			threshold: 0,
			wantErr:   "threshold",
		},
		{
			name:      "threshold above one rejected",
			species:   species,
			locations: locations,
			synonyms:  DefaultSynonyms(),
			threshold: 1.5,
			wantErr:   "threshold",
		},
		{
			name:      "empty synonym table rejected",
			species:   species,
			locations: locations,
			synonyms:  map[string]string{},
			threshold: DefaultThreshold,
			wantErr:   "synonym table is empty",
		},
		{
			name:      "empty species vocabulary rejected",
			species:   nil,
			locations: locations,
			synonyms:  DefaultSynonyms(),
			threshold: DefaultThreshold,
			wantErr:   "species vocabulary is empty",
		},
		{
			name:      "empty locations vocabulary rejected",
			species:   species,
			locations: nil,
			synonyms:  DefaultSynonyms(),
			threshold: DefaultThreshold,
			wantErr:   "locations vocabulary is empty",
		},
		{
			name:      "conflicting synonym rejected",
			species:   species,
			locations: locations,
			synonyms:  map[string]string{"drake": domain.SexMale, "Drake": domain.SexFemale},
			threshold: DefaultThreshold,
			wantErr:   "maps to both",
		},
		{
			name:      "valid inputs accepted",
			species:   species,
			locations: locations,
			synonyms:  DefaultSynonyms(),
			threshold: DefaultThreshold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.species, tt.locations, tt.synonyms, tt.threshold)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, store)
			assert.Equal(t, "species", store.Species().Name())
			assert.Equal(t, "locations", store.Locations().Name())
		})
	}
}

func TestNormalizeSexStage(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{raw: "male", want: domain.SexMale, wantOK: true},
		{raw: "drake", want: domain.SexMale, wantOK: true},
		{raw: "m", want: domain.SexMale, wantOK: true},
		{raw: "f", want: domain.SexFemale, wantOK: true},
		{raw: "ringtail", want: domain.SexFemale, wantOK: true},
		{raw: "ad", want: domain.StageAdult, wantOK: true},
		{raw: "juv", want: domain.StageJuvenile, wantOK: true},
		{raw: "chicks", want: domain.StageJuvenile, wantOK: true},
		{raw: "pair", want: domain.QuantityPair, wantOK: true},

		// Case folding and scrape punctuation.
		{raw: "DRAKE", want: domain.SexMale, wantOK: true},
		{raw: "(drake)", want: domain.SexMale, wantOK: true},
		{raw: "juv.", want: domain.StageJuvenile, wantOK: true},

		// Canonical values round-trip to themselves.
		{raw: domain.SexMale, want: domain.SexMale, wantOK: true},
		{raw: domain.SexFemale, want: domain.SexFemale, wantOK: true},
		{raw: domain.StageAdult, want: domain.StageAdult, wantOK: true},
		{raw: domain.StageJuvenile, want: domain.StageJuvenile, wantOK: true},
		{raw: domain.QuantityPair, want: domain.QuantityPair, wantOK: true},

		// Unknown markers pass through unchanged.
		{raw: "winter plumage", want: "winter plumage", wantOK: false},
		{raw: "", want: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := store.NormalizeSexStage(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSexStage(t *testing.T) {
	store := newTestStore(t)

	assert.True(t, store.IsSexStage("drake"))
	assert.True(t, store.IsSexStage("Juv"))
	assert.False(t, store.IsSexStage("Shelduck"))
	assert.False(t, store.IsSexStage(""))
}
