package results

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/PacificBiosciences/Paraviewer/internal/namelist"
	"github.com/PacificBiosciences/Paraviewer/internal/pedigree"
)

// DiscoverPureTarget scans a PureTarget output directory. Each sample
// lives in its own <base>_paraphase subdirectory, laid out exactly like
// a paraphase run, with optional <base>.f8inversion.json and
// <base>.havanno.json annotation sidecars alongside.
func DiscoverPureTarget(dir string, samples namelist.Filter, ped map[string]pedigree.Entry, logger *zap.Logger) (map[string]Results, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	subdirs, err := filepath.Glob(filepath.Join(dir, "*_paraphase"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	all := make(map[string]Results)
	for _, sub := range subdirs {
		found, err := DiscoverParaphase(sub, samples, ped, logger)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			continue
		}

		base := strings.TrimSuffix(sub, "_paraphase")
		f8Note := f8InversionNote(base+".f8inversion.json", logger)
		hapNotes := haplotypeNotes(base+".havanno.json", logger)
		for sample, res := range found {
			res.F8Inversion = f8Note
			res.HaplotypeNotes = hapNotes
			all[sample] = res
		}
	}
	if len(all) == 0 {
		logger.Warn("no samples found", zap.String("dir", dir))
	}

	return all, nil
}

// f8InversionNote renders the called F8 intron inversion genotypes as
// a comma-terminated string, empty when nothing was called or the
// sidecar is unreadable.
func f8InversionNote(path string, logger *zap.Logger) string {
	info := unpackJSON(path, logger)
	if info == nil {
		return ""
	}
	var note string
	for _, key := range []string{"f8inv1", "f8inv22"} {
		call, ok := info[key].(map[string]any)
		if !ok {
			continue
		}
		if has, _ := call["has_inversion"].(bool); !has {
			continue
		}
		genotype, _ := call["inversion_genotype"].(string)
		note += genotype + ","
	}
	return note
}

// haplotypeNotes renders per-region haplotype annotations from a
// havanno sidecar. Haplotypes whose names mark HBA homology artifacts
// are skipped; only positive counts and sizes are reported.
func haplotypeNotes(path string, logger *zap.Logger) map[string]string {
	notes := map[string]string{}
	info := unpackJSON(path, logger)
	if info == nil {
		return notes
	}
	annotations, ok := info["annotations"].(map[string]any)
	if !ok {
		return notes
	}

	for region, v := range annotations {
		haps, ok := v.(map[string]any)
		if !ok {
			continue
		}
		var regionNotes []string
		for _, hap := range sortedKeys(haps) {
			if strings.Contains(hap, "hba_homology") {
				continue
			}
			ann, ok := haps[hap].(map[string]any)
			if !ok {
				continue
			}
			var parts []string
			if n, ok := positiveNumber(ann["num_pathogenic_variants"]); ok {
				parts = append(parts, n+" possible pathogenic vars")
			}
			if n, ok := positiveNumber(ann["total_insertion_size"]); ok {
				parts = append(parts, n+"bp INS")
			}
			if n, ok := positiveNumber(ann["total_deletion_size"]); ok {
				parts = append(parts, n+"bp DEL")
			}
			if len(parts) > 0 {
				regionNotes = append(regionNotes, hap+","+strings.Join(parts, ", "))
			}
		}
		if len(regionNotes) > 0 {
			notes[region] = strings.Join(regionNotes, ";")
		}
	}

	return notes
}

// positiveNumber formats a decoded JSON number when it is above zero.
// Integral values render without a decimal point.
func positiveNumber(v any) (string, bool) {
	f, ok := v.(float64)
	if !ok || f <= 0 {
		return "", false
	}
	return strconv.FormatFloat(f, 'g', -1, 64), true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
