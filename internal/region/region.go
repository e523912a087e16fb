// Package region provides the built-in region definitions for each
// supported genome build and pipeline, and parsing for genomic
// interval descriptors.
package region

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/*
var definitionFiles embed.FS

// Supported genome builds and source pipelines.
const (
	GenomeHG19 = "hg19"
	GenomeHG38 = "hg38"

	PipelineParaphase  = "paraphase"
	PipelinePureTarget = "puretarget"
)

// Definition holds the configured properties of one region of
// interest. Only the realignment interval is consumed today; the YAML
// files may carry additional keys for other tooling.
type Definition struct {
	RealignRegion string `yaml:"realign_region"`
}

// LoadDefinitions decodes the embedded definition file for the given
// genome build and source pipeline, keyed by region name.
func LoadDefinitions(genome, pipeline string) (map[string]Definition, error) {
	switch genome {
	case GenomeHG19, GenomeHG38:
	default:
		return nil, fmt.Errorf("unknown genome build %q", genome)
	}
	switch pipeline {
	case PipelineParaphase, PipelinePureTarget:
	default:
		return nil, fmt.Errorf("unknown source pipeline %q", pipeline)
	}

	name := path.Join("data", genome, fmt.Sprintf("config_%s.yaml", pipeline))
	raw, err := definitionFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read region definitions %s: %w", name, err)
	}

	defs := make(map[string]Definition)
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("parse region definitions %s: %w", name, err)
	}
	return defs, nil
}

// Names returns the sorted region names of a definition map.
func Names(defs map[string]Definition) []string {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Interval is a half-open genomic span on one chromosome.
type Interval struct {
	Chrom string
	Start int
	End   int
}

// ParseInterval parses a "chrom:start-end" descriptor. Digit grouping
// commas are tolerated in the coordinates.
func ParseInterval(s string) (Interval, error) {
	chrom, span, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || chrom == "" {
		return Interval{}, fmt.Errorf("invalid interval %q: want chrom:start-end", s)
	}
	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return Interval{}, fmt.Errorf("invalid interval %q: want chrom:start-end", s)
	}

	start, err := parseCoordinate(startStr)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	end, err := parseCoordinate(endStr)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid interval %q: %w", s, err)
	}

	return Interval{Chrom: chrom, Start: start, End: end}, nil
}

func parseCoordinate(s string) (int, error) {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0, fmt.Errorf("non-numeric coordinate %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative coordinate %d", n)
	}
	return n, nil
}

// Pad returns a copy widened by margin on both ends, clamped at zero.
func (iv Interval) Pad(margin int) Interval {
	return Interval{
		Chrom: iv.Chrom,
		Start: max(0, iv.Start-margin),
		End:   max(0, iv.End+margin),
	}
}

// String renders the interval as chrom:start-end.
func (iv Interval) String() string {
	return fmt.Sprintf("%s:%d-%d", iv.Chrom, iv.Start, iv.End)
}
