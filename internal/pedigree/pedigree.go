// Package pedigree reads GATK-format PED files and resolves trio
// relationships against the set of samples with usable results.
package pedigree

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/PacificBiosciences/Paraviewer/internal/namelist"
)

// Sex labels recoded from the numeric PED sex column.
const (
	SexMale    = "Male"
	SexFemale  = "Female"
	SexUnknown = "Unknown"
)

// Entry is one pedigree record. Parental IDs are empty when the PED
// file marks them unknown ("0").
type Entry struct {
	FamilyID     string
	IndividualID string
	PaternalID   string
	MaternalID   string
	Sex          string
	Phenotype    string
}

// ReadFile parses a PED file into a map keyed by individual ID.
// Records are whitespace-delimited six-column lines; blank lines and
// "#" comments are skipped, malformed lines are logged and skipped.
// Samples rejected by the filter are dropped. An empty path returns an
// empty map; an unreadable file is an error.
func ReadFile(path string, samples namelist.Filter, logger *zap.Logger) (map[string]Entry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return map[string]Entry{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pedigree file: %w", err)
	}
	defer f.Close()

	entries := make(map[string]Entry)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 6 {
			logger.Warn("skipping malformed PED line", zap.String("line", line))
			continue
		}

		entry := Entry{
			FamilyID:     fields[0],
			IndividualID: fields[1],
			PaternalID:   blankUnknown(fields[2]),
			MaternalID:   blankUnknown(fields[3]),
			Sex:          recodeSex(fields[4]),
			Phenotype:    fields[5],
		}
		if !samples.Keep(entry.IndividualID) {
			continue
		}
		if _, seen := entries[entry.IndividualID]; seen {
			// Duplicate individual IDs are not guarded against in the
			// PED format; the last record wins.
			logger.Debug("duplicate individual ID in pedigree, keeping later record",
				zap.String("individual", entry.IndividualID))
		}
		entries[entry.IndividualID] = entry
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pedigree file: %w", err)
	}

	return entries, nil
}

func blankUnknown(id string) string {
	if id == "0" {
		return ""
	}
	return id
}

func recodeSex(code string) string {
	switch code {
	case "1":
		return SexMale
	case "2":
		return SexFemale
	default:
		return SexUnknown
	}
}

// Trios returns the pedigree entries whose individual and both named
// parents all appear in available, keyed by the trio subject name
// "<individual>-trio". The available set is whatever collection of
// per-sample results the caller has; only key membership matters.
func Trios[V any](ped map[string]Entry, available map[string]V) map[string]Entry {
	trios := make(map[string]Entry)
	for id, entry := range ped {
		if _, ok := available[id]; !ok {
			continue
		}
		if entry.PaternalID == "" || entry.MaternalID == "" {
			continue
		}
		if _, ok := available[entry.PaternalID]; !ok {
			continue
		}
		if _, ok := available[entry.MaternalID]; !ok {
			continue
		}
		trios[id+"-trio"] = entry
	}
	return trios
}
