package domain

import (
	"regexp"
	"strings"
)

var (
	// abundanceRe matches a count or textual approximation at the start of a
	// sighting run: "5", "c250", "10-12000", "2+". The space in the class
	// keeps spaced ranges ("10 - 12000") as one abundance.
	abundanceRe = regexp.MustCompile(`c?\d[0-9\-+/ ]*`)

	// fillerRe matches the connective debris left between sighting runs once
	// counts are removed: "and", dashes, whitespace.
	fillerRe = regexp.MustCompile(`^[\s\-]*(?:and[\s\-]*)?$`)
)

// ExtractRules is the configurable pattern set driving segmentation. Observed
// pages vary in structure, so none of these are hard-coded into the scan.
type ExtractRules struct {
	// DateHeaders recognize a section that is a governing date header
	// ("August 31 2008", "12/04/2022"). Matched against the section with
	// commas and colons stripped.
	DateHeaders []*regexp.Regexp

	// Drop patterns identify boilerplate records (navigation, banners,
	// commentary) excluded outright.
	Drop []*regexp.Regexp

	// Require patterns qualify a record as a sighting: its first content
	// section must match at least one. Records matching none are dropped.
	Require []*regexp.Regexp
}

// DefaultExtractRules covers the two archive layouts. Callers add patterns
// for page variants via configuration rather than editing the scan.
func DefaultExtractRules() ExtractRules {
	return ExtractRules{
		DateHeaders: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^(?:january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept?|oct|nov|dec)\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:\s+\d{4})?$`),
			regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`),
		},
		Drop: []*regexp.Regexp{
			regexp.MustCompile(`(?i)click here`),
			regexp.MustCompile(`(?i)archived (?:sightings|records)`),
			regexp.MustCompile(`(?i)birdwatch\w* (?:diary|events)`),
			regexp.MustCompile(`(?i)available on this website`),
			regexp.MustCompile(`(?i)www\.[a-z]`),
		},
		Require: []*regexp.Regexp{
			regexp.MustCompile(`^c?\d`),
		},
	}
}

// CompileRules builds ExtractRules from configured pattern strings, falling
// back to the defaults for any empty list.
func CompileRules(dateHeaders, drop, require []string) (ExtractRules, error) {
	def := DefaultExtractRules()
	rules := ExtractRules{}

	var err error
	if rules.DateHeaders, err = compilePatterns(dateHeaders, def.DateHeaders); err != nil {
		return ExtractRules{}, err
	}
	if rules.Drop, err = compilePatterns(drop, def.Drop); err != nil {
		return ExtractRules{}, err
	}
	if rules.Require, err = compilePatterns(require, def.Require); err != nil {
		return ExtractRules{}, err
	}
	return rules, nil
}

func compilePatterns(patterns []string, fallback []*regexp.Regexp) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return fallback, nil
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// CleanPageText normalizes raw page text for segmentation: exclamation marks
// become record stops, line breaks and thousands-separator commas are
// removed, whitespace collapses, and doubled stop/section runs shrink.
func CleanPageText(text string) string {
	r := strings.NewReplacer("!", ".", "\r", "", "\n", " ", ",", "")
	cleaned := r.Replace(text)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.ReplaceAll(cleaned, ".|.|", ".|")
	return cleaned
}

// ExtractCandidates segments one page's text into candidate sighting lines.
//
// The text is cleaned, split into records on '.', and each record into
// sections on '|'. A leading date-header section sets the governing date for
// subsequent records. Records matching a Drop pattern, or whose first content
// section matches no Require pattern, are not reported. A record's first
// section may hold several sighting runs ("4 Short-eared Owl 1 Eider
// (drake)"); each run becomes its own candidate carrying the record's
// location and commentary sections.
//
// Candidates preserve source order and their sighting spans never overlap.
// A page with no recognizable structure yields an empty slice, not an error.
func ExtractCandidates(pageID, text string, year int, rules ExtractRules) []CandidateLine {
	cleaned := CleanPageText(text)
	if cleaned == "" {
		return nil
	}

	var out []CandidateLine
	var dateText string

	offset := 0
	for _, record := range strings.Split(cleaned, ".") {
		recordOffset := offset
		offset += len([]rune(record)) + 1

		sections, sectionOffsets := splitSections(record, recordOffset)
		if len(sections) == 0 {
			continue
		}

		// A date header occupies its own leading section, or prefixes the
		// first sighting on the same line.
		if header, ok := matchDateHeader(sections[0], rules.DateHeaders); ok {
			dateText = header
			sections = sections[1:]
			sectionOffsets = sectionOffsets[1:]
			if len(sections) == 0 {
				continue
			}
		} else if header, rest, ok := peelLeadingDate(sections[0], rules.DateHeaders); ok {
			dateText = header
			sections[0] = rest
		}

		if matchesAny(record, rules.Drop) || !matchesAny(sections[0], rules.Require) {
			continue
		}

		out = appendRecordCandidates(out, recordCtx{
			pageID:   pageID,
			dateText: dateText,
			year:     year,
		}, sections, sectionOffsets)
	}

	return out
}

// recordCtx carries the per-record provenance shared by its candidates.
type recordCtx struct {
	pageID   string
	dateText string
	year     int
}

// appendRecordCandidates explodes one record's sections into candidates.
// Sighting runs may spill past the first section (the page author forgot a
// stop); a section holding runs contributes them, the next plain section is
// the location, and anything after that is commentary.
func appendRecordCandidates(out []CandidateLine, ctx recordCtx, sections []string, sectionOffsets []int) []CandidateLine {
	type span struct {
		text   string
		offset int
	}
	var runs []span
	locIdx := -1

	for i, sec := range sections {
		secRuns, runOffsets := splitSightingRuns(sec)
		if len(secRuns) > 0 && (i == 0 || locIdx == -1) {
			for j, r := range secRuns {
				runs = append(runs, span{text: r, offset: sectionOffsets[i] + runOffsets[j]})
			}
			continue
		}
		locIdx = i
		break
	}

	location := ""
	var commentary []string
	if locIdx >= 0 {
		location = strings.Trim(sections[locIdx], "- ")
		for _, sec := range sections[locIdx+1:] {
			commentary = append(commentary, strings.Trim(sec, "- "))
		}
	}

	for _, r := range runs {
		text := r.text
		if location != "" {
			text += "|" + location
		}
		if len(commentary) > 0 {
			text += "|" + strings.Join(commentary, " ")
		}
		out = append(out, CandidateLine{
			PageID:   ctx.pageID,
			Index:    len(out),
			Offset:   r.offset,
			Text:     text,
			DateText: ctx.dateText,
			Year:     ctx.year,
		})
	}
	return out
}

// splitSections splits a record on '|', trimming each section and dropping
// empties, and reports each kept section's rune offset in the page text.
func splitSections(record string, base int) ([]string, []int) {
	var sections []string
	var offsets []int

	pos := 0
	for _, raw := range strings.Split(record, "|") {
		start := pos
		pos += len([]rune(raw)) + 1

		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		lead := len([]rune(raw)) - len([]rune(strings.TrimLeft(raw, " ")))
		sections = append(sections, trimmed)
		offsets = append(offsets, base+start+lead)
	}
	return sections, offsets
}

// splitSightingRuns splits a section into "<count> <description>" runs at
// abundance boundaries. A section whose text before the first count is more
// than connective filler is not a sighting list and yields no runs.
func splitSightingRuns(section string) ([]string, []int) {
	s := strings.ReplaceAll(section, " and ", " ")
	locs := abundanceRe.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return nil, nil
	}
	if !fillerRe.MatchString(s[:locs[0][0]]) {
		return nil, nil
	}

	var runs []string
	var offsets []int
	for i, loc := range locs {
		end := len(s)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		run := strings.Trim(s[loc[0]:end], "- ")
		if run == "" {
			continue
		}
		runs = append(runs, run)
		offsets = append(offsets, len([]rune(s[:loc[0]])))
	}
	return runs, offsets
}

// peelLeadingDate detects a date prefixing the first sighting of a line
// ("12/04/2022 2 drake Shelduck …") and splits it off. It tries the longest
// run of leading words that fully matches a header pattern.
func peelLeadingDate(section string, patterns []*regexp.Regexp) (header, rest string, ok bool) {
	words := strings.Fields(section)
	const maxHeaderWords = 4
	limit := min(maxHeaderWords, len(words)-1)

	for n := limit; n >= 1; n-- {
		prefix := strings.Join(words[:n], " ")
		if h, matched := matchDateHeader(prefix, patterns); matched {
			return h, strings.Join(words[n:], " "), true
		}
	}
	return "", "", false
}

// matchDateHeader reports whether a section is a date header, returning the
// header text with punctuation stripped.
func matchDateHeader(section string, patterns []*regexp.Regexp) (string, bool) {
	stripped := strings.NewReplacer(",", "", ":", "").Replace(section)
	stripped = strings.TrimSpace(stripped)
	for _, re := range patterns {
		if re.MatchString(stripped) {
			return stripped, true
		}
	}
	return "", false
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
