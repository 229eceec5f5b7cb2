// Command etl turns the Dee Estuary sightings archive into normalized
// records. `harvest` mirrors the archive pages to disk, `run` extracts and
// matches sighting records from them, and `validate` checks the reference
// data the matcher depends on.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marshbird/sightings-etl/internal/config"
	"github.com/marshbird/sightings-etl/internal/reference"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:           "etl",
		Short:         "Bird sightings archive ETL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	root.AddCommand(newRunCmd(), newHarvestCmd(), newValidateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadStore reads the reference files named by cfg into a matcher store.
func loadStore(cfg *config.Config) (*reference.Store, error) {
	species, err := reference.LoadSpecies(cfg.SpeciesFile)
	if err != nil {
		return nil, fmt.Errorf("load species: %w", err)
	}
	locations, err := reference.LoadLocations(cfg.LocationsFile)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	synonyms, err := reference.LoadSynonyms(cfg.SynonymsFile)
	if err != nil {
		return nil, fmt.Errorf("load synonyms: %w", err)
	}
	if synonyms == nil {
		synonyms = reference.DefaultSynonyms()
	}
	return reference.NewStore(species, locations, synonyms, cfg.MatchThreshold)
}
