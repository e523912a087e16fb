// Package viewer runs the whole pipeline: result discovery, read
// partitioning, session and snapshot generation, and the final review
// page.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/PacificBiosciences/Paraviewer/internal/igv"
	"github.com/PacificBiosciences/Paraviewer/internal/layout"
	"github.com/PacificBiosciences/Paraviewer/internal/namelist"
	"github.com/PacificBiosciences/Paraviewer/internal/page"
	"github.com/PacificBiosciences/Paraviewer/internal/partition"
	"github.com/PacificBiosciences/Paraviewer/internal/pedigree"
	"github.com/PacificBiosciences/Paraviewer/internal/region"
	"github.com/PacificBiosciences/Paraviewer/internal/report"
	"github.com/PacificBiosciences/Paraviewer/internal/results"
)

// DefaultMaxReadsPerHaplotype bounds how many reads each haplotype
// group keeps in a region slice unless the caller overrides it.
const DefaultMaxReadsPerHaplotype = 500

// Options configures a run. Exactly one of ParaphaseDir and
// PureTargetDir must be set.
type Options struct {
	// Outdir is the output root; its data directory must not exist
	// yet unless Clobber is set.
	Outdir string

	ParaphaseDir  string
	PureTargetDir string

	// Genome is the build the alignments were made against, "hg19" or
	// "hg38".
	Genome string

	// PedigreePath optionally points at a GATK-format PED file. When
	// set, samples absent from it are excluded and complete trios get
	// combined entries.
	PedigreePath string

	Clobber bool

	// NoIGVRerun skips snapshot rendering, leaving any images from a
	// previous run in place.
	NoIGVRerun bool

	// MaxReadsPerHaplotype overrides DefaultMaxReadsPerHaplotype when
	// positive.
	MaxReadsPerHaplotype int

	IncludeSamples []string
	ExcludeSamples []string
	IncludeRegions []string
	ExcludeRegions []string

	// Version is printed on the review page.
	Version string

	Logger *zap.Logger
}

// Run executes a full run over the configured input directory and
// writes the browsable output tree under Options.Outdir.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pipeline, inputDir, err := sourcePipeline(opts)
	if err != nil {
		return err
	}
	defs, err := region.LoadDefinitions(opts.Genome, pipeline)
	if err != nil {
		return err
	}

	sampleFilter, err := namelist.New(opts.IncludeSamples, opts.ExcludeSamples, "sample", nil, logger)
	if err != nil {
		return err
	}
	regionFilter, err := namelist.New(opts.IncludeRegions, opts.ExcludeRegions, "region", region.Names(defs), logger)
	if err != nil {
		return err
	}

	if err := layout.Prepare(opts.Outdir, opts.Clobber); err != nil {
		return err
	}

	ped, err := pedigree.ReadFile(opts.PedigreePath, sampleFilter, logger)
	if err != nil {
		return err
	}

	var found map[string]results.Results
	switch pipeline {
	case region.PipelineParaphase:
		found, err = results.DiscoverParaphase(inputDir, sampleFilter, ped, logger)
	case region.PipelinePureTarget:
		found, err = results.DiscoverPureTarget(inputDir, sampleFilter, ped, logger)
	}
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("no results found in input directory %s", inputDir)
	}

	trios := pedigree.Trios(ped, found)

	maxReads := opts.MaxReadsPerHaplotype
	if maxReads <= 0 {
		maxReads = DefaultMaxReadsPerHaplotype
	}

	var rows []report.Row
	splits := make(map[string]map[string]partition.Output, len(found))
	for _, sample := range sortedKeys(found) {
		res := found[sample]
		logger.Info("processing sample", zap.String("sample", sample))
		if err := layout.MakeSubjectDirs(opts.Outdir, sample); err != nil {
			return err
		}

		splitter := &partition.Splitter{
			BAM:                  res.BAM,
			Outdir:               opts.Outdir,
			Subject:              sample,
			Regions:              regionFilter,
			MaxReadsPerHaplotype: maxReads,
			Logger:               logger,
		}
		out, err := splitter.Split()
		if err != nil {
			return fmt.Errorf("partition reads for %s: %w", sample, err)
		}
		splits[sample] = out

		var entry *pedigree.Entry
		if e, ok := ped[sample]; ok {
			entry = &e
		}
		sampleRows := report.BuildSampleRows(res, entry, out, defs, logger)
		if len(sampleRows) == 0 {
			logger.Warn("no reportable regions for sample", zap.String("sample", sample))
			continue
		}
		if err := render(ctx, sampleRows, opts, false, logger); err != nil {
			return err
		}
		rows = append(rows, sampleRows...)
	}

	for _, subject := range sortedKeys(trios) {
		trio := trios[subject]
		logger.Info("processing trio", zap.String("subject", subject))
		if err := layout.MakeSubjectDirs(opts.Outdir, subject); err != nil {
			return err
		}

		trioRows, err := report.BuildTrioRows(trio, found[trio.IndividualID], splits, defs, opts.Outdir, logger)
		if err != nil {
			return err
		}
		if len(trioRows) == 0 {
			logger.Warn("no shared regions for trio", zap.String("subject", subject))
			continue
		}
		if err := render(ctx, trioRows, opts, true, logger); err != nil {
			return err
		}
		rows = append(rows, trioRows...)
	}

	return page.Build(opts.Outdir, rows, opts.Version, logger)
}

// render writes the session documents for a subject's rows and, unless
// disabled, drives IGV over them to produce the snapshot images.
func render(ctx context.Context, rows []report.Row, opts Options, trio bool, logger *zap.Logger) error {
	entries, err := igv.WriteSessions(rows, opts.Outdir, opts.Genome)
	if err != nil {
		return err
	}
	if opts.NoIGVRerun {
		logger.Info("skipping image generation", zap.String("subject", rows[0].Sample))
		return nil
	}
	return igv.GenerateImages(ctx, entries, opts.Outdir, opts.Genome, trio, logger)
}

func sourcePipeline(opts Options) (pipeline, dir string, err error) {
	switch {
	case opts.ParaphaseDir != "" && opts.PureTargetDir != "":
		return "", "", errors.New("the paraphase and PureTarget input directories are mutually exclusive: specify only one or the other")
	case opts.ParaphaseDir != "":
		return region.PipelineParaphase, opts.ParaphaseDir, nil
	case opts.PureTargetDir != "":
		return region.PipelinePureTarget, opts.PureTargetDir, nil
	default:
		return "", "", errors.New("either a paraphase or a PureTarget input directory must be specified")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
