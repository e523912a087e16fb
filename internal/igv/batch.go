package igv

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// batchSize caps the snapshot stanzas per batch script so one hung IGV
// run forfeits at most this many images.
const batchSize = 100

const genomeLine = "genome https://raw.githubusercontent.com/igvteam/igv-data/refs/heads/main/genomes/json/%s.json"

// writeBatchScripts chunks the stanzas into batch scripts under
// outdir, each opening with the hosted genome line and ending with an
// exit command. The caller removes each script after running it.
func writeBatchScripts(outdir, genome string, entries []string) (paths []string, err error) {
	for start := 0; start < len(entries); start += batchSize {
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}

		f, cerr := os.CreateTemp(outdir, "*.txt")
		if cerr != nil {
			return nil, fmt.Errorf("create batch script: %w", cerr)
		}
		_, werr := fmt.Fprintf(f, genomeLine, genome)
		for _, entry := range entries[start:end] {
			if werr != nil {
				break
			}
			_, werr = f.WriteString(entry + "\n")
		}
		if werr == nil {
			_, werr = f.WriteString("exit\n")
		}
		werr = multierr.Append(werr, f.Close())
		if werr != nil {
			return nil, fmt.Errorf("write batch script %s: %w", f.Name(), werr)
		}
		paths = append(paths, f.Name())
	}
	return paths, nil
}

// writePrefsFile writes the IGV window bounds that size the rendered
// snapshots. Trio sessions stack three panels, so they get triple the
// height.
func writePrefsFile(outdir string, trio bool) (string, error) {
	left, top, width, height := 780, 128, 1546, 300
	if trio {
		height *= 3
	}
	path := filepath.Join(outdir, "prefs.txt")
	content := fmt.Sprintf("IGV.Bounds=%d,%d,%d,%d\n", left, top, width, height)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write preferences: %w", err)
	}
	return path, nil
}
