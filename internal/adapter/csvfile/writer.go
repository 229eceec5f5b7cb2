// Package csvfile writes pipeline output as CSV upload files: one file per
// page, a combined file across the run, and unknown-token review lists.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/marshbird/sightings-etl/internal/domain"
	"github.com/marshbird/sightings-etl/internal/pipeline"
)

// recordHeader is the upload file column layout. Reviewers work these files
// by hand, so the order is stable.
var recordHeader = []string{
	"Source",
	"Record",
	"Status",
	"Status Note",
	"Date",
	"Abundance",
	"Name",
	"Scientific",
	"Location",
	"Grid Reference",
	"Sex/Stage",
	"Record Type",
	"Observer",
	"Determiner",
	"Comments",
}

// recordType labels every row; the archive only carries field sightings.
const recordType = "Field record"

// The archive does not attribute individual sightings, so every row carries
// the site-wide observer/determiner and a provenance note.
const (
	recordAttribution = "Anon at Dee Estuary Bird Sightings"
	provenanceNote    = "Retrieved from www.deeestuary.co.uk."
)

// Writer implements pipeline.RecordSink on a directory of CSV files. Each
// page becomes <page-id>.csv and every record also lands in combined.csv.
// Not safe for concurrent use; the pipeline delivers pages sequentially.
type Writer struct {
	dir      string
	combined *csv.Writer
	file     *os.File
}

// NewWriter creates the output directory and opens the combined file.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "combined.csv"))
	if err != nil {
		return nil, fmt.Errorf("create combined file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(recordHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write combined header: %w", err)
	}

	return &Writer{dir: dir, combined: w, file: f}, nil
}

// WritePage writes one page's records to its own file and appends them to
// the combined file.
func (w *Writer) WritePage(_ context.Context, result pipeline.PageResult) error {
	f, err := os.Create(filepath.Join(w.dir, result.PageID+".csv"))
	if err != nil {
		return fmt.Errorf("create page file: %w", err)
	}
	defer f.Close()

	pw := csv.NewWriter(f)
	if err := pw.Write(recordHeader); err != nil {
		return fmt.Errorf("write page header: %w", err)
	}

	for _, rec := range result.Records {
		row := recordRow(rec)
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("write record %s: %w", rec.ID, err)
		}
		if err := w.combined.Write(row); err != nil {
			return fmt.Errorf("write combined record %s: %w", rec.ID, err)
		}
	}

	pw.Flush()
	if err := pw.Error(); err != nil {
		return fmt.Errorf("flush page file: %w", err)
	}
	return nil
}

// WriteUnknowns writes the unknown-token review lists: unknown_species.csv
// and unknown_locations.csv, ordered by descending count.
func (w *Writer) WriteUnknowns(species, locations *pipeline.UnknownTokens) error {
	if err := writeTokenFile(filepath.Join(w.dir, "unknown_species.csv"), "Species", species); err != nil {
		return err
	}
	return writeTokenFile(filepath.Join(w.dir, "unknown_locations.csv"), "Location", locations)
}

// Close flushes and closes the combined file.
func (w *Writer) Close() error {
	w.combined.Flush()
	if err := w.combined.Error(); err != nil {
		w.file.Close()
		return fmt.Errorf("flush combined file: %w", err)
	}
	return w.file.Close()
}

func recordRow(rec domain.SightingRecord) []string {
	date := ""
	if !rec.Date.IsZero() {
		date = rec.Date.Format(time.DateOnly)
	}
	comments := provenanceNote
	if rec.Notes != "" {
		comments += " " + rec.Notes
	}
	return []string{
		rec.PageID,
		rec.RecordText,
		rec.Status,
		rec.StatusNote,
		date,
		rec.CountText,
		rec.Species.Result.Canonical,
		rec.Scientific,
		rec.Location.Result.Canonical,
		rec.GridRef,
		rec.SexStage,
		recordType,
		recordAttribution,
		recordAttribution,
		comments,
	}
}

func writeTokenFile(path, label string, tokens *pipeline.UnknownTokens) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{label, "Count"}); err != nil {
		return fmt.Errorf("write %s header: %w", filepath.Base(path), err)
	}

	counts := tokens.Counts()
	for _, token := range tokens.Tokens() {
		if err := w.Write([]string{token, strconv.Itoa(counts[token])}); err != nil {
			return fmt.Errorf("write %s row: %w", filepath.Base(path), err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	return nil
}
