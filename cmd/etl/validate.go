package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marshbird/sightings-etl/internal/adapter/page"
	"github.com/marshbird/sightings-etl/internal/config"
	"github.com/marshbird/sightings-etl/internal/domain"
	"github.com/marshbird/sightings-etl/internal/reference"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check reference data and cached pages for integrity problems",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if code := runValidation(cfg); code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}
}

func runValidation(cfg *config.Config) int {
	fmt.Println("=== Reference Data Integrity Validation ===")
	fmt.Println()

	species, err := reference.LoadSpecies(cfg.SpeciesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load species: %v\n", err)
		return 1
	}
	locations, err := reference.LoadLocations(cfg.LocationsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load locations: %v\n", err)
		return 1
	}
	synonyms, err := reference.LoadSynonyms(cfg.SynonymsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load synonyms: %v\n", err)
		return 1
	}
	if synonyms == nil {
		synonyms = reference.DefaultSynonyms()
	}

	phases := []*phase{
		validateSpecies(species, cfg.MatchThreshold),
		validateLocations(locations, cfg.MatchThreshold),
		validateSynonyms(synonyms, species),
		validatePages(cfg.PagesDir),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Entries: %d species, %d locations, %d synonyms\n",
		len(species), len(locations), len(synonyms))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Species list ──
// Near-duplicate canonical names would make fuzzy matching ambiguous: a
// misspelling could land on either entry depending on tie-break order.

func validateSpecies(species []domain.ReferenceEntry, threshold float64) *phase {
	p := &phase{name: "Phase 1: Species list"}
	checkNearDuplicates(p, species, threshold)
	for _, e := range species {
		if e.Meta[domain.MetaScientific] == "" {
			p.errorf("%q: missing scientific name", e.Canonical)
		}
	}
	return p
}

// ── Phase 2: Locations list ──

var gridRefRe = regexp.MustCompile(`^[A-Z]{2} ?\d{4}(\d{2})?$`)

func validateLocations(locations []domain.ReferenceEntry, threshold float64) *phase {
	p := &phase{name: "Phase 2: Locations list"}
	checkNearDuplicates(p, locations, threshold)
	for _, e := range locations {
		gr := e.Meta[domain.MetaGridRef]
		if gr != "" && !gridRefRe.MatchString(gr) {
			p.errorf("%q: grid reference %q is not an OS grid reference", e.Canonical, gr)
		}
	}
	return p
}

// ── Phase 3: Sex/stage synonyms ──
// A synonym that spells a species name would strip that species from every
// record it appears in, so the two namespaces must not overlap.

func validateSynonyms(synonyms map[string]string, species []domain.ReferenceEntry) *phase {
	p := &phase{name: "Phase 3: Sex/stage synonyms"}

	speciesNames := make(map[string]string, len(species))
	for _, e := range species {
		speciesNames[strings.ToLower(e.Canonical)] = e.Canonical
	}
	for raw := range synonyms {
		if canonical, ok := speciesNames[strings.ToLower(raw)]; ok {
			p.errorf("synonym %q shadows species %q", raw, canonical)
		}
	}
	return p
}

// ── Phase 4: Cached pages ──
// Every cached page must flatten to non-empty text; a page whose archive
// year cannot be found loses year completion for dates like "August 31".

func validatePages(dir string) *phase {
	p := &phase{name: "Phase 4: Cached pages"}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Printf("  Note: pages dir %s not present, skipping page checks\n", dir)
		return p
	}

	pages, err := page.LoadDir(dir)
	if err != nil {
		p.errorf("load pages: %v", err)
		return p
	}
	if len(pages) == 0 {
		p.errorf("no pages found in %s", dir)
		return p
	}

	for _, pt := range pages {
		if strings.TrimSpace(pt.Text) == "" {
			p.errorf("%s: page flattened to empty text", pt.ID)
		}
		if pt.Year == 0 {
			p.errorf("%s: no archive year found", pt.ID)
		}
	}
	return p
}

// checkNearDuplicates flags entry pairs whose similarity clears the match
// threshold. Such pairs are reachable from each other's misspellings.
func checkNearDuplicates(p *phase, entries []domain.ReferenceEntry, threshold float64) {
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			score := reference.Similarity(entries[i].Canonical, entries[j].Canonical)
			if score >= threshold && score < 1.0 {
				p.errorf("%q and %q are near-duplicates (similarity %.2f)",
					entries[i].Canonical, entries[j].Canonical, score)
			}
		}
	}
}
