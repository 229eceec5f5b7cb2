// Command genpage generates a synthetic archive page and its expected
// sighting records. It runs the actual extraction and matching code so the
// fixture always reflects real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genpage \
//	  -species data/species.csv \
//	  -locations data/locations.csv \
//	  -page-out testdata/l2008aug.htm \
//	  -records-out testdata/l2008aug_expected.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/marshbird/sightings-etl/internal/adapter/page"
	"github.com/marshbird/sightings-etl/internal/domain"
	"github.com/marshbird/sightings-etl/internal/reference"
)

// pageRow is one table row of the generated page: a date cell and the
// sightings reported under that date.
type pageRow struct {
	date      string
	sightings []string
}

var rows = []pageRow{
	{date: "August 31 2008", sightings: []string{
		"2 Shelduck (drake) Mostyn Bank",
		"c250 Dunlin at Point of Ayr",
		"1 Wheatear on the sea wall",
	}},
	{date: "August 30 2008", sightings: []string{
		"4 Curlew Mostyn Bank on the rising tide",
		"1 Peregrine over the marsh",
	}},
	{date: "30/08/2008", sightings: []string{
		"12 Black-tailed Godwit at Connah's Quay",
	}},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	speciesPath := flag.String("species", "", "path to species reference CSV")
	locationsPath := flag.String("locations", "", "path to locations reference CSV")
	pageOut := flag.String("page-out", "", "output path for the synthetic archive page")
	recordsOut := flag.String("records-out", "", "output path for the expected records JSON")
	flag.Parse()

	if *speciesPath == "" || *locationsPath == "" || *pageOut == "" || *recordsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -species, -locations, -page-out, -records-out")
	}

	// Fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2008, time.September, 1, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	species, err := reference.LoadSpecies(*speciesPath)
	if err != nil {
		return fmt.Errorf("load species: %w", err)
	}
	locations, err := reference.LoadLocations(*locationsPath)
	if err != nil {
		return fmt.Errorf("load locations: %w", err)
	}
	store, err := reference.NewStore(species, locations, reference.DefaultSynonyms(), reference.DefaultThreshold)
	if err != nil {
		return err
	}

	html := renderPage(rows)
	if err := writeFile(*pageOut, []byte(html)); err != nil {
		return fmt.Errorf("writing page: %w", err)
	}
	log.Printf("wrote page: %s", *pageOut)

	records, err := extractRecords(*pageOut, store)
	if err != nil {
		return err
	}
	log.Printf("extracted %d records", len(records))

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFile(*recordsOut, append(data, '\n')); err != nil {
		return fmt.Errorf("writing records: %w", err)
	}
	log.Printf("wrote expected records: %s", *recordsOut)

	printStats(records)
	return nil
}

// renderPage emits the table layout the real archive uses: a banner heading
// and one row per date with the date in the first cell.
func renderPage(rows []pageRow) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Latest Sightings</title></head><body>\n")
	b.WriteString("<h1>Archived Sightings - August 2008</h1>\n<table>\n")
	for _, row := range rows {
		b.WriteString("<tr><td>")
		b.WriteString(row.date)
		b.WriteString("</td><td>")
		b.WriteString(strings.Join(row.sightings, ". "))
		b.WriteString(".</td></tr>\n")
	}
	b.WriteString("</table>\n<p>Click here for previous records.</p>\n</body></html>\n")
	return b.String()
}

// extractRecords runs the full extraction and matching path on the page.
func extractRecords(path string, store *reference.Store) ([]domain.SightingRecord, error) {
	pt, err := page.ParseFile(path)
	if err != nil {
		return nil, err
	}

	rules, err := domain.CompileRules(nil, nil, nil)
	if err != nil {
		return nil, err
	}

	candidates := domain.ExtractCandidates(pt.ID, pt.Text, pt.Year, rules)
	records := make([]domain.SightingRecord, 0, len(candidates))
	for _, cand := range candidates {
		draft := domain.ParseCandidate(cand, domain.ParseOptions{IsSexStage: store.IsSexStage})
		records = append(records, domain.BuildRecord(draft, store.Species(), store.Locations(), store))
	}
	return records, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printStats(records []domain.SightingRecord) {
	statusCounts := map[string]int{}
	matched := 0
	for i := range records {
		statusCounts[records[i].Status]++
		if records[i].Species.Result.Status != domain.MatchUnmatched {
			matched++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(records))
	fmt.Printf("Species matched: %d\n", matched)
	fmt.Printf("By status: ok=%d, check species=%d, check location=%d, check both=%d, format=%d\n",
		statusCounts[domain.StatusOK], statusCounts[domain.StatusCheckSpecies],
		statusCounts[domain.StatusCheckLocation], statusCounts[domain.StatusCheckBoth],
		statusCounts[domain.StatusFormat])

	if len(records) > 0 {
		r := &records[0]
		fmt.Println("\nFirst record:")
		fmt.Printf("  ID: %s\n", r.ID)
		fmt.Printf("  Date: %s\n", r.Date.Format(time.DateOnly))
		fmt.Printf("  Species: %q -> %q (%s, %.2f)\n",
			r.Species.Raw, r.Species.Result.Canonical, r.Species.Result.Status, r.Species.Result.Score)
		fmt.Printf("  Location: %q -> %q (%s, %.2f)\n",
			r.Location.Raw, r.Location.Result.Canonical, r.Location.Result.Status, r.Location.Result.Score)
		fmt.Printf("  Sex/Stage: %s\n", r.SexStage)
		fmt.Printf("  Status: %s\n", r.Status)
	}
}
