// Package reference holds the closed vocabularies sightings are normalized
// against: the species list, the location gazetteer, and the sex/stage
// synonym table. A Store is built once before any page is processed and is
// immutable afterwards, so matching needs no synchronization.
package reference

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marshbird/sightings-etl/internal/domain"
)

// DefaultThreshold is the acceptance similarity for fuzzy matches.
const DefaultThreshold = 0.8

// Store exposes read access to the reference data. Construct with NewStore;
// the zero value is not usable.
type Store struct {
	species   *Vocabulary
	locations *Vocabulary
	synonyms  map[string]string
}

// NewStore validates the reference data and builds an immutable store.
// Malformed data — an empty vocabulary, a duplicate canonical entry, an
// empty synonym table — is a precondition violation reported before any page
// is processed, since every subsequent match would be meaningless.
func NewStore(species, locations []domain.ReferenceEntry, synonyms map[string]string, threshold float64) (*Store, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("match threshold %g outside (0, 1]", threshold)
	}
	if len(synonyms) == 0 {
		return nil, errors.New("sex/stage synonym table is empty")
	}

	speciesVocab, err := newVocabulary("species", species, threshold)
	if err != nil {
		return nil, err
	}
	locationVocab, err := newVocabulary("locations", locations, threshold)
	if err != nil {
		return nil, err
	}

	folded := make(map[string]string, len(synonyms))
	for raw, canonical := range synonyms {
		key := foldToken(raw)
		if key == "" {
			return nil, fmt.Errorf("synonym table: empty raw token for %q", canonical)
		}
		if prev, dup := folded[key]; dup && prev != canonical {
			return nil, fmt.Errorf("synonym table: token %q maps to both %q and %q", key, prev, canonical)
		}
		folded[key] = canonical
	}

	return &Store{
		species:   speciesVocab,
		locations: locationVocab,
		synonyms:  folded,
	}, nil
}

// Species returns the species vocabulary.
func (s *Store) Species() *Vocabulary { return s.species }

// Locations returns the location vocabulary.
func (s *Store) Locations() *Vocabulary { return s.locations }

// NormalizeSexStage maps a raw sex/stage token to its canonical value.
// Lookup is case-insensitive and ignores surrounding whitespace and
// punctuation. Unrecognized tokens come back unchanged with ok=false —
// an unknown marker must not abort an otherwise valid record.
func (s *Store) NormalizeSexStage(raw string) (canonical string, ok bool) {
	if canonical, ok = s.synonyms[foldToken(raw)]; ok {
		return canonical, true
	}
	return raw, false
}

// IsSexStage reports whether a token belongs to the sex/stage closed set.
// Used by the parser to pull bare markers out of species text.
func (s *Store) IsSexStage(token string) bool {
	_, ok := s.synonyms[foldToken(token)]
	return ok
}

// foldToken lower-cases a token and strips the surrounding whitespace and
// punctuation left over from scraping ("(drake)," → "drake").
func foldToken(s string) string {
	return strings.ToLower(strings.Trim(s, " \t()[]-.,;:'\""))
}

// DefaultSynonyms is the sex/stage synonym table used when no synonym file
// is configured. Many-to-one: all raw spellings of a marker map to the same
// canonical value, and each canonical value maps to itself.
func DefaultSynonyms() map[string]string {
	return map[string]string{
		// Sex.
		"male":      domain.SexMale,
		"males":     domain.SexMale,
		"m":         domain.SexMale,
		"drake":     domain.SexMale,
		"drakes":    domain.SexMale,
		"female":    domain.SexFemale,
		"females":   domain.SexFemale,
		"f":         domain.SexFemale,
		"ringtail":  domain.SexFemale,
		"ringtails": domain.SexFemale,
		"ring-tail": domain.SexFemale,
		"ring-tails": domain.SexFemale,

		// Stage.
		"adult":      domain.StageAdult,
		"adults":     domain.StageAdult,
		"ad":         domain.StageAdult,
		"ads":        domain.StageAdult,
		"chick":      domain.StageJuvenile,
		"chicks":     domain.StageJuvenile,
		"fledgling":  domain.StageJuvenile,
		"fledglings": domain.StageJuvenile,
		"immature":   domain.StageJuvenile,
		"imm":        domain.StageJuvenile,
		"juvenile":   domain.StageJuvenile,
		"juveniles":  domain.StageJuvenile,
		"juv":        domain.StageJuvenile,
		"juvs":       domain.StageJuvenile,
		"sub-ad":     domain.StageJuvenile,
		"young":      domain.StageJuvenile,

		// Quantity.
		"pair": domain.QuantityPair,
	}
}
