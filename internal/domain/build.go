package domain

import (
	"strings"
)

// Vocabulary resolves raw tokens against one closed reference vocabulary.
// Implementations must be pure over an immutable snapshot and safe for
// concurrent use.
type Vocabulary interface {
	// Match returns the best canonical entry for a raw token with its
	// similarity score and status.
	Match(raw string) MatchResult

	// Entry returns the full reference entry for a canonical name.
	Entry(canonical string) (ReferenceEntry, bool)
}

// SexStageNormalizer maps a raw sex/stage token to its canonical value.
// The second return reports whether the token was recognized; unrecognized
// tokens come back unchanged.
type SexStageNormalizer interface {
	NormalizeSexStage(raw string) (string, bool)
}

// BuildRecord assembles a finished SightingRecord from a draft. It never
// fails and never drops: missing or unmatched fields are flagged for manual
// review, and the raw scraped text is always retained beside the match
// outcome.
func BuildRecord(draft DraftRecord, species, locations Vocabulary, norm SexStageNormalizer) SightingRecord {
	rec := SightingRecord{
		ID:          recordID(draft.Line.PageID, draft.Line.Index, draft.Line.Text),
		PageID:      draft.Line.PageID,
		LineIndex:   draft.Line.Index,
		RecordText:  draft.Line.Text,
		Date:        draft.Date,
		CountText:   draft.CountText,
		Count:       draft.Count,
		Notes:       draft.Notes,
		ProcessedAt: clock.Now(),
	}

	rec.SexStage, rec.SexStageRecognized = normalizeSexStage(draft.SexStage, norm)

	rawSpecies, rawLocation := resolveSplit(draft.Species, draft.Location, species, locations)

	rec.Species = matchField(rawSpecies, species)
	if entry, ok := species.Entry(rec.Species.Result.Canonical); ok {
		rec.Scientific = entry.Meta[MetaScientific]
	}

	rec.Location = matchField(rawLocation, locations)
	if entry, ok := locations.Entry(rec.Location.Result.Canonical); ok {
		rec.GridRef = entry.Meta[MetaGridRef]
	}

	rec.Status, rec.StatusNote = reviewStatus(rec)
	return rec
}

// normalizeSexStage canonicalizes each raw marker and joins them in source
// order ("drake" + "imm" → "Male Juvenile"). An empty list is explicit
// absence, not an error.
func normalizeSexStage(raw []string, norm SexStageNormalizer) (string, bool) {
	if len(raw) == 0 {
		return SexStageNotRecorded, true
	}

	recognized := true
	parts := make([]string, 0, len(raw))
	for _, tok := range raw {
		canon, ok := norm.NormalizeSexStage(tok)
		if !ok {
			recognized = false
		}
		parts = append(parts, canon)
	}
	return strings.Join(parts, " "), recognized
}

// matchField resolves one raw token, keeping raw and outcome side by side.
// An absent field yields an unmatched result with a zero score.
func matchField(raw string, vocab Vocabulary) FieldMatch {
	fm := FieldMatch{Raw: raw, Result: MatchResult{Status: MatchUnmatched}}
	if raw == "" {
		return fm
	}
	fm.Result = vocab.Match(raw)
	return fm
}

// resolveSplit handles lines whose species and location arrived combined
// ("Shelduck Mostyn Bank"). It scores every word-boundary split against both
// vocabularies and accepts the best one where each half clears its
// threshold; otherwise the combined text stays the raw species. Ties go to
// the earliest split for determinism.
func resolveSplit(rawSpecies, rawLocation string, species, locations Vocabulary) (string, string) {
	if rawLocation != "" || rawSpecies == "" {
		return rawSpecies, rawLocation
	}

	// No point splitting when the whole text is already an exact species.
	if species.Match(rawSpecies).Status == MatchExact {
		return rawSpecies, ""
	}

	words := strings.Fields(rawSpecies)
	if len(words) < 2 {
		return rawSpecies, ""
	}

	bestScore := 0.0
	bestSplit := -1
	for i := 1; i < len(words); i++ {
		sres := species.Match(strings.Join(words[:i], " "))
		if sres.Status == MatchUnmatched {
			continue
		}
		lres := locations.Match(strings.Join(words[i:], " "))
		if lres.Status == MatchUnmatched {
			continue
		}
		if combined := sres.Score + lres.Score; combined > bestScore {
			bestScore = combined
			bestSplit = i
		}
	}

	if bestSplit < 0 {
		return rawSpecies, ""
	}
	return strings.Join(words[:bestSplit], " "), strings.Join(words[bestSplit:], " ")
}

// reviewStatus labels a record for the manual-review columns of the upload
// file, naming the raw text a reviewer should look at.
func reviewStatus(rec SightingRecord) (string, string) {
	if rec.Species.Raw == "" && rec.CountText == "" {
		return StatusFormat, rec.RecordText
	}

	speciesOK := rec.Species.Result.Status != MatchUnmatched && rec.Species.Raw != ""
	locationOK := rec.Location.Result.Status != MatchUnmatched && rec.Location.Raw != ""

	switch {
	case speciesOK && locationOK:
		return StatusOK, ""
	case !speciesOK && !locationOK:
		return StatusCheckBoth, rec.Species.Raw + " / " + rec.Location.Raw
	case !speciesOK:
		return StatusCheckSpecies, rec.Species.Raw
	default:
		return StatusCheckLocation, rec.Location.Raw
	}
}
