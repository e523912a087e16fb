// Package results locates pipeline output files on disk and decodes
// the per-region call metadata they carry.
package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/PacificBiosciences/Paraviewer/internal/namelist"
	"github.com/PacificBiosciences/Paraviewer/internal/pedigree"
)

// Results holds the discovered output files for one sample.
// F8Inversion and HaplotypeNotes are populated only for PureTarget
// runs, which ship extra annotation sidecar files.
type Results struct {
	Sample string
	BAM    string
	BAI    string
	JSON   string

	// F8Inversion is free text describing called F8 intron inversions.
	F8Inversion string
	// HaplotypeNotes maps region names to per-haplotype annotation text.
	HaplotypeNotes map[string]string
}

// DiscoverParaphase scans a paraphase output directory for per-sample
// result sets. A sample is usable when its JSON, BAM and BAI files are
// all present; anything else is logged and skipped. When ped is
// non-empty, samples absent from it are excluded.
func DiscoverParaphase(dir string, samples namelist.Filter, ped map[string]pedigree.Entry, logger *zap.Logger) (map[string]Results, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	plain, err := filepath.Glob(filepath.Join(dir, "*paraphase.json"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	gzipped, err := filepath.Glob(filepath.Join(dir, "*paraphase.json.gz"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	matches := append(plain, gzipped...)
	if len(matches) == 0 {
		logger.Warn("no JSON result file found", zap.String("dir", dir))
		return map[string]Results{}, nil
	}

	all := make(map[string]Results)
	for _, jsonPath := range matches {
		sample := SampleName(jsonPath)
		if !samples.Keep(sample) {
			continue
		}
		if len(ped) > 0 {
			if _, ok := ped[sample]; !ok {
				continue
			}
		}

		bamPath := filepath.Join(dir, sample+".paraphase.bam")
		if !isFile(bamPath) {
			logger.Warn("no BAM result file found", zap.String("dir", dir), zap.String("sample", sample))
			continue
		}
		baiPath := bamPath + ".bai"
		if !isFile(baiPath) {
			logger.Warn("no BAM index file found", zap.String("dir", dir), zap.String("sample", sample))
			continue
		}

		all[sample] = Results{
			Sample: sample,
			BAM:    bamPath,
			BAI:    baiPath,
			JSON:   jsonPath,
		}
	}
	if len(all) == 0 {
		logger.Warn("no samples found", zap.String("dir", dir))
	}

	return all, nil
}

// SampleName derives the sample name from a pipeline output path by
// stripping extensions back to and including ".paraphase".
func SampleName(path string) string {
	name, ext := splitExt(filepath.Base(path))
	for ext != "" && ext != ".paraphase" {
		name, ext = splitExt(name)
	}
	return name
}

func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
