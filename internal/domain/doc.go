// Package domain models bird-sighting records scraped from the Dee Estuary
// Birding archive pages and the heuristics that turn page text into them.
//
// # Data Source
//
// Sighting pages are hand-written HTML with no formal schema. Two layouts
// occur in the archive:
//
//	Type 1: a two-column table, dates in the first column and that day's
//	        sightings in the second.
//	Type 2: a single block of prose with date headers inline, e.g.
//	        "|August 31, 2008:|3 Wheatear on rocks at|Dove Point, Meols|".
//
// The page adapter flattens both layouts into one stream of text in which
// '|' separates the original HTML text nodes and '.' terminates a record.
// A record usually has the shape
//
//	<sightings> | <location> | <commentary>
//
// where <sightings> is one or more "<abundance> <species> (<sex/stage>)"
// runs, e.g. "4 Short-eared Owl 1 Eider (drake) 25 Brent Geese".
//
// # Field Conventions
//
// Abundance:
//
//	A count or a textual approximation: "5", "c250", "10-12000", "2+".
//	Matched by the pattern `c?\d[0-9\-+/ ]*`. Only bare integers are also
//	parsed numerically; the raw text is always preserved.
//
// Dates:
//
//	Month-name headers ("August 31, 2008", "Feb 10") with the year sometimes
//	omitted — the page's archive year completes it — or numeric day-first
//	dates ("12/04/2022" = 12 April 2022) at the start of a line.
//
// Sex and stage:
//
//	Parenthesised or bare tokens from a small closed set: "m", "f", "drake",
//	"ringtail", "imm", "juv", "ad", "pair", plurals included. The synonym
//	table maps each to a canonical value (Male, Female, Adult, Juvenile,
//	Pair). Unrecognised tokens pass through unchanged, flagged for review.
//
// # Matching
//
// Free-text species and location strings are resolved against closed
// reference vocabularies by exact case-insensitive equality first, then by
// normalized Levenshtein similarity above a configurable threshold. Raw text
// is never discarded on a successful match: every finished record carries the
// scraped string and the match outcome side by side so a reviewer can audit
// the resolution. Records that fail to resolve are flagged, never dropped.
package domain
