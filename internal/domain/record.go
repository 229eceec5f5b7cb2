package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// MatchStatus classifies the outcome of resolving a raw token against a
// reference vocabulary.
type MatchStatus string

const (
	// MatchExact means the raw token equals a canonical entry case-insensitively.
	MatchExact MatchStatus = "exact"
	// MatchFuzzy means the best candidate scored below exact but at or above
	// the acceptance threshold.
	MatchFuzzy MatchStatus = "fuzzy"
	// MatchUnmatched means no candidate reached the threshold.
	MatchUnmatched MatchStatus = "unmatched"
)

// Canonical sex/stage values written to upload files.
const (
	SexMale       = "Male"
	SexFemale     = "Female"
	StageAdult    = "Adult"
	StageJuvenile = "Juvenile"
	QuantityPair  = "Pair"

	// SexStageNotRecorded is written when a sighting carries no sex/stage marker.
	SexStageNotRecorded = "Not recorded"
)

// Review status labels attached to finished records for manual checking.
const (
	StatusOK            = "ok"
	StatusCheckSpecies  = "check species"
	StatusCheckLocation = "check location"
	StatusCheckBoth     = "check species & location"
	StatusFormat        = "format"
)

// CandidateLine is one span of page text believed to describe a single
// sighting event. Created by the extractor, consumed by the parser, not
// retained afterwards.
type CandidateLine struct {
	PageID string // page identifier, for provenance only
	Index  int    // ordinal within the page, source order
	Offset int    // rune offset of the sighting span in the cleaned page text

	// Text is the sighting span with its trailing location and commentary
	// sections, separated by '|'.
	Text string

	// DateText is the raw governing date header, e.g. "August 31, 2008".
	// Empty when no header preceded the span.
	DateText string

	// Year is the page's archive year, used to complete headers that omit it.
	Year int
}

// DraftRecord is the parser's output: all fields raw, none mandatory.
// A zero Date or an empty string means the field was absent from the line.
type DraftRecord struct {
	Line CandidateLine

	Date      time.Time
	CountText string // raw abundance, e.g. "c250" or "10-12000"
	Count     int    // parsed value when CountText is a bare integer, else 0
	Species   string // raw species text; may still include the location when
	// the line had no section delimiter (the builder resolves the split)
	Location string   // raw location text, empty when unsplit
	SexStage []string // raw sex/stage tokens in source order
	Notes    string   // text not consumed by any recognizer
}

// MatchResult is the fuzzy matcher's verdict for one raw token.
// Canonical is empty when Status is MatchUnmatched; Score is retained even on
// failure for diagnostics.
type MatchResult struct {
	Canonical string      `json:"canonical,omitempty"`
	Score     float64     `json:"score"`
	Status    MatchStatus `json:"status"`
}

// FieldMatch pairs a raw scraped string with its match outcome. The raw text
// survives even on an exact match so the resolution can be audited.
type FieldMatch struct {
	Raw    string      `json:"raw"`
	Result MatchResult `json:"result"`
}

// ReferenceEntry is one canonical vocabulary entry plus the extra columns
// carried by its reference file (scientific name, grid reference, notes).
type ReferenceEntry struct {
	Canonical string
	Meta      map[string]string
}

// Meta keys populated by the reference loaders.
const (
	MetaScientific = "scientific"
	MetaGridRef    = "gridref"
)

// SightingRecord is the finished unit emitted by the builder: one sighting
// with normalized fields, match outcomes, and provenance.
type SightingRecord struct {
	ID         string    `json:"id"`
	PageID     string    `json:"page_id"`
	LineIndex  int       `json:"line_index"`
	RecordText string    `json:"record_text"` // full raw span, for audit
	Date       time.Time `json:"date,omitzero"`

	CountText string `json:"count_text,omitempty"`
	Count     int    `json:"count,omitempty"`

	Species    FieldMatch `json:"species"`
	Scientific string     `json:"scientific,omitempty"` // from the matched entry
	Location   FieldMatch `json:"location"`
	GridRef    string     `json:"grid_ref,omitempty"` // from the matched entry

	SexStage           string `json:"sex_stage"`
	SexStageRecognized bool   `json:"sex_stage_recognized"`

	Notes      string `json:"notes,omitempty"`
	Status     string `json:"status"`
	StatusNote string `json:"status_note,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
}

// recordID produces a deterministic ID from a record's provenance and raw
// text. Reprocessing the same page yields the same IDs, so downstream sinks
// can upsert idempotently.
func recordID(pageID string, index int, raw string) string {
	input := fmt.Sprintf("%s|%d|%s", pageID, index, raw)
	hash := sha256.Sum256([]byte(input))
	return "sighting-" + hex.EncodeToString(hash[:8])
}
