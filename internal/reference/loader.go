package reference

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/marshbird/sightings-etl/internal/domain"
)

// Reference data ships as header-keyed CSV files so the lists can be
// maintained in a spreadsheet. Column lookup is case-insensitive and
// order-independent.

// LoadSpecies reads a species list. Required column: "Common". Optional:
// "Scientific", stored as entry metadata.
func LoadSpecies(path string) ([]domain.ReferenceEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open species file: %w", err)
	}
	defer f.Close()
	return ReadSpecies(f)
}

// ReadSpecies parses species CSV from r. See LoadSpecies.
func ReadSpecies(r io.Reader) ([]domain.ReferenceEntry, error) {
	return readEntries(r, "Common", map[string]string{
		"Scientific": domain.MetaScientific,
	})
}

// LoadLocations reads a site list. Required column: "Location description".
// Optional: "Grid reference", stored as entry metadata.
func LoadLocations(path string) ([]domain.ReferenceEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open locations file: %w", err)
	}
	defer f.Close()
	return ReadLocations(f)
}

// ReadLocations parses location CSV from r. See LoadLocations.
func ReadLocations(r io.Reader) ([]domain.ReferenceEntry, error) {
	return readEntries(r, "Location description", map[string]string{
		"Grid reference": domain.MetaGridRef,
	})
}

// LoadSynonyms reads a raw→canonical override table with columns "Raw" and
// "Canonical". Returns nil when path is empty so callers can fall back to
// DefaultSynonyms.
func LoadSynonyms(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open synonyms file: %w", err)
	}
	defer f.Close()
	return ReadSynonyms(f)
}

// ReadSynonyms parses synonym CSV from r. See LoadSynonyms.
func ReadSynonyms(r io.Reader) (map[string]string, error) {
	rows, header, err := readRows(r)
	if err != nil {
		return nil, err
	}
	rawCol, ok := header["raw"]
	if !ok {
		return nil, fmt.Errorf("synonyms CSV: missing %q column", "Raw")
	}
	canonCol, ok := header["canonical"]
	if !ok {
		return nil, fmt.Errorf("synonyms CSV: missing %q column", "Canonical")
	}

	out := make(map[string]string, len(rows))
	for i, row := range rows {
		raw := field(row, rawCol)
		canon := field(row, canonCol)
		if raw == "" || canon == "" {
			return nil, fmt.Errorf("synonyms CSV: blank value at line %d", i+2)
		}
		out[raw] = canon
	}
	return out, nil
}

// readEntries parses one reference list: keyCol becomes the canonical name,
// metaCols map CSV column names to entry metadata keys.
func readEntries(r io.Reader, keyCol string, metaCols map[string]string) ([]domain.ReferenceEntry, error) {
	rows, header, err := readRows(r)
	if err != nil {
		return nil, err
	}
	keyIdx, ok := header[strings.ToLower(keyCol)]
	if !ok {
		return nil, fmt.Errorf("reference CSV: missing %q column", keyCol)
	}

	var entries []domain.ReferenceEntry
	for i, row := range rows {
		canonical := field(row, keyIdx)
		if canonical == "" {
			return nil, fmt.Errorf("reference CSV: blank %q at line %d", keyCol, i+2)
		}
		e := domain.ReferenceEntry{Canonical: canonical}
		for col, metaKey := range metaCols {
			idx, ok := header[strings.ToLower(col)]
			if !ok {
				continue
			}
			if v := field(row, idx); v != "" {
				if e.Meta == nil {
					e.Meta = make(map[string]string, len(metaCols))
				}
				e.Meta[metaKey] = v
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// readRows reads all CSV rows and returns the data rows plus a
// lowercased-header → column-index map.
func readRows(r io.Reader) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged rows tolerated, missing cells read as ""
	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read CSV: %w", err)
	}
	if len(all) < 2 {
		return nil, nil, fmt.Errorf("no data rows")
	}

	header := make(map[string]int, len(all[0]))
	for i, h := range all[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return all[1:], header, nil
}

func field(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
