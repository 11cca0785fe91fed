// Package directory loads the cafe name to place id side file produced by
// find-place-ids. It is a soft dependency: every failure yields an empty
// directory.
package directory

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"cafepulse/internal/models"

	"github.com/jszwec/csvutil"
)

const FileName = "cafe_place_ids.csv"

type Directory map[string]models.PlaceEntry

func (d Directory) Lookup(name string) (models.PlaceEntry, bool) {
	entry, ok := d[name]
	return entry, ok
}

// DefaultPaths lists the probe order: next to the executable, the repo
// scripts directory under the working directory, then the working directory.
func DefaultPaths() []string {
	var paths []string
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), FileName))
	}
	if wd, err := os.Getwd(); err == nil {
		paths = append(paths,
			filepath.Join(wd, "packages", "api", "scripts", FileName),
			filepath.Join(wd, FileName),
		)
	}
	return paths
}

// Resolve returns the first existing path, or the first candidate when none exist.
func Resolve(paths ...string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	if len(paths) > 0 {
		return paths[0]
	}
	return ""
}

func Load(paths ...string) Directory {
	dir := Directory{}

	path := Resolve(paths...)
	if path == "" {
		log.Println("No place id file candidates configured")
		return dir
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Error loading place IDs from CSV: %v", err)
		return dir
	}

	var entries []models.PlaceEntry
	if err := csvutil.Unmarshal(data, &entries); err != nil {
		log.Printf("Error parsing place IDs from %s: %v", path, err)
		return dir
	}

	for _, e := range entries {
		if e.PlaceID == "" || e.Name == "" {
			continue
		}
		if e.GoogleName == "" {
			e.GoogleName = e.Name
		}
		if e.GoogleAddress == "" {
			e.GoogleAddress = e.Address
		}
		dir[e.Name] = e
	}

	log.Printf("Loaded %d place IDs from %s", len(dir), path)
	return dir
}

// Save writes entries as CSV and, when jsonPath is set, as indented JSON.
func Save(csvPath, jsonPath string, entries []models.PlaceEntry) error {
	data, err := csvutil.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal csv: %w", err)
	}
	if err := os.WriteFile(csvPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", csvPath, err)
	}

	if jsonPath == "" {
		return nil
	}

	jsonData, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(jsonPath, jsonData, 0644); err != nil {
		return fmt.Errorf("write %s: %w", jsonPath, err)
	}
	return nil
}
