package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// leadingDateRe spots a date at the start of a candidate line so it can
	// be consumed before count recognition ("12/04/2022 2 drake Shelduck…").
	leadingDateRe = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4})\s+`)

	// leadingCountRe matches an abundance at the start of the remaining text.
	// Same class as the extractor's abundanceRe, spaced ranges included.
	leadingCountRe = regexp.MustCompile(`^c?\d[0-9\-+/ ]*`)

	// trailingCountRe matches a small bare count at the end of the text,
	// a convention some page variants use ("Wheatear 3").
	trailingCountRe = regexp.MustCompile(`\s(\d{1,3})$`)

	// bareIntRe decides whether a raw count is numerically parseable.
	bareIntRe = regexp.MustCompile(`^\d+$`)

	// parenRe captures parenthesised groups, which hold sex/stage markers.
	parenRe = regexp.MustCompile(`\(([^)]*)\)`)
)

// defaultDateLayouts accepts the formats observed across the archive.
var defaultDateLayouts = []string{
	"January 2 2006",
	"Jan 2 2006",
	"2/1/2006",
	"2/1/06",
}

// defaultLocationCues are the phrase boundaries used to split species from
// location when a line carries no section delimiter. Ordered by priority.
var defaultLocationCues = []string{" - ", " at ", " on ", " over ", " off ", " near "}

// ParseOptions configures the recognizer rules. The zero value is usable:
// defaults apply and sex/stage recognition is limited to parenthesised
// groups.
type ParseOptions struct {
	// IsSexStage reports closed-set membership for a lower-cased token.
	// Injected from the reference store's synonym table; nil disables bare
	// (unparenthesised) sex/stage recognition.
	IsSexStage func(token string) bool

	// LocationCues override the phrase boundaries for the positional
	// species/location split.
	LocationCues []string

	// DateLayouts override the accepted date formats.
	DateLayouts []string
}

func (o ParseOptions) locationCues() []string {
	if len(o.LocationCues) > 0 {
		return o.LocationCues
	}
	return defaultLocationCues
}

func (o ParseOptions) dateLayouts() []string {
	if len(o.DateLayouts) > 0 {
		return o.DateLayouts
	}
	return defaultDateLayouts
}

// ParseCandidate parses one candidate line into a DraftRecord by applying
// the recognizers in a fixed order: date, count, sex/stage markers, then the
// species/location split. No field is mandatory; whatever no recognizer
// consumes becomes the notes remainder. Deterministic and side-effect free.
func ParseCandidate(line CandidateLine, opts ParseOptions) DraftRecord {
	draft := DraftRecord{Line: line}

	sections := splitTrimmed(line.Text, "|")
	if len(sections) == 0 {
		return draft
	}
	head := sections[0]

	head, draft.Date = recognizeDate(head, line, opts)
	head, draft.CountText, draft.Count = recognizeCount(head)
	head, draft.SexStage = recognizeSexStage(head, opts)

	draft.Species, draft.Location, draft.Notes = splitSpeciesLocation(head, sections[1:], opts)
	return draft
}

// recognizeDate consumes a leading date from the line text, falling back to
// the line's governing date header.
func recognizeDate(head string, line CandidateLine, opts ParseOptions) (string, time.Time) {
	if m := leadingDateRe.FindStringSubmatch(head); m != nil {
		if d := parseDateText(m[1], line.Year, opts.dateLayouts()); !d.IsZero() {
			return strings.TrimSpace(head[len(m[0]):]), d
		}
	}
	if line.DateText != "" {
		return head, parseDateText(line.DateText, line.Year, opts.dateLayouts())
	}
	return head, time.Time{}
}

// parseDateText parses a raw date string, completing a missing year from the
// page's archive year. Returns the zero time when nothing matches.
func parseDateText(raw string, year int, layouts []string) time.Time {
	s := strings.NewReplacer(",", "", ":", "", ".", "").Replace(raw)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}
	}
	// "Sept" defeats Go's "Jan" token.
	s = strings.NewReplacer("Sept ", "Sep ", "sept ", "Sep ").Replace(s)

	// Try the header as written first: a two-digit year ("12/04/22") would
	// otherwise be mistaken for a missing one.
	if d, ok := tryLayouts(s, layouts); ok {
		return d
	}
	if year > 0 {
		if d, ok := tryLayouts(s+" "+strconv.Itoa(year), layouts); ok {
			return d
		}
	}
	return time.Time{}
}

func tryLayouts(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// recognizeCount consumes a leading abundance, or failing that a trailing
// bare count. The raw text is preserved; only bare integers also parse
// numerically ("c250" keeps Count zero).
func recognizeCount(head string) (rest, countText string, count int) {
	if m := leadingCountRe.FindString(head); m != "" {
		countText = strings.TrimRight(m, "- ")
		rest = strings.TrimLeft(head[len(m):], "- ")
	} else if m := trailingCountRe.FindStringSubmatch(head); m != nil {
		countText = m[1]
		rest = strings.TrimSpace(head[:len(head)-len(m[0])])
	} else {
		return head, "", 0
	}

	if bareIntRe.MatchString(countText) {
		count, _ = strconv.Atoi(countText)
	}
	return rest, countText, count
}

// recognizeSexStage removes sex/stage markers from the text. Parenthesised
// groups are always treated as markers (recognized or not — the normalizer
// flags unknowns later); bare tokens only when the closed set confirms them.
func recognizeSexStage(head string, opts ParseOptions) (string, []string) {
	var tokens []string

	head = parenRe.ReplaceAllStringFunc(head, func(group string) string {
		inner := strings.Trim(group, "() ")
		for _, tok := range splitTokens(inner) {
			tokens = append(tokens, tok)
		}
		return ""
	})

	if opts.IsSexStage != nil {
		var kept []string
		for _, word := range strings.Fields(head) {
			if opts.IsSexStage(strings.ToLower(strings.Trim(word, ".,;:"))) {
				tokens = append(tokens, word)
				continue
			}
			kept = append(kept, word)
		}
		head = strings.Join(kept, " ")
	}

	return strings.TrimSpace(head), tokens
}

// splitTokens breaks a parenthesised group into individual markers:
// "fem/imm" → ["fem", "imm"], "1st win male" → ["1st", "win", "male"].
func splitTokens(s string) []string {
	var out []string
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == ' '
	}) {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// splitSpeciesLocation assigns the species and location fields. With section
// delimiters present the split is positional: first section species, second
// location, the rest commentary. Without them it falls back to the
// configured cue phrases; if none occur the combined text is kept as the raw
// species for the builder to resolve against the vocabularies.
func splitSpeciesLocation(head string, trailing []string, opts ParseOptions) (species, location, notes string) {
	species = strings.Trim(head, "- ")

	if len(trailing) > 0 {
		location = strings.Trim(trailing[0], "- ")
		notes = strings.TrimSpace(strings.Join(trailing[1:], " "))
		return species, location, notes
	}

	for _, cue := range opts.locationCues() {
		if i := strings.Index(species, cue); i > 0 {
			location = strings.Trim(species[i+len(cue):], "- ")
			species = strings.Trim(species[:i], "- ")
			return species, location, ""
		}
	}
	return species, "", ""
}

func splitTrimmed(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
