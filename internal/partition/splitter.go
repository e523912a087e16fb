// Package partition streams one aligned-read file and fans its reads
// out into per-region slices, then indexes each slice.
package partition

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/PacificBiosciences/Paraviewer/internal/layout"
	"github.com/PacificBiosciences/Paraviewer/internal/namelist"
)

// ErrNoRegions reports a source file that yielded no retained regions,
// as opposed to one that could not be read.
var ErrNoRegions = errors.New("no matching regions")

const defaultHandleLimit = 5

var (
	regionTag    = sam.Tag{'R', 'N'}
	haplotypeTag = sam.Tag{'H', 'P'}
)

// Output holds the root-relative paths of one region's alignment slice
// and its index.
type Output struct {
	BAM string
	BAI string
}

// Splitter fans one subject's aligned reads out into per-region BAM
// slices under the subject's output directory.
type Splitter struct {
	// BAM is the source alignment file, read once, sequentially.
	BAM string
	// Outdir is the run's output root.
	Outdir string
	// Subject names the output namespace and the slice files.
	Subject string
	// Regions filters region tags, case-insensitively.
	Regions namelist.Filter
	// MaxReadsPerHaplotype bounds retained reads per (region,
	// haplotype) group; reads beyond it are dropped silently.
	MaxReadsPerHaplotype int
	// HandleLimit bounds concurrently open output descriptors.
	// Zero means the default of 5.
	HandleLimit int

	Logger *zap.Logger
}

type haplotypeKey struct {
	region    string
	haplotype string
}

// Split performs the single pass over the source reads and returns the
// per-region outputs. Every slice's index is built only after its
// writer has been flushed and closed. A readable source containing no
// retained regions reports ErrNoRegions.
func (s *Splitter) Split() (map[string]Output, error) {
	f, err := os.Open(s.BAM)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.BAM, err)
	}
	defer f.Close()

	br, err := bam.NewReader(f, 1)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.BAM, err)
	}
	paths, err := s.partition(br)
	err = multierr.Append(err, br.Close())
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", s.BAM, ErrNoRegions)
	}

	outputs := make(map[string]Output, len(paths))
	for region, rel := range paths {
		if err := WriteBAI(filepath.Join(s.Outdir, rel)); err != nil {
			return nil, fmt.Errorf("index %s: %w", rel, err)
		}
		outputs[region] = Output{BAM: rel, BAI: rel + ".bai"}
	}
	return outputs, nil
}

// partition drains the reader into per-region writers. All writers are
// closed before it returns, on success and on error alike.
func (s *Splitter) partition(br *bam.Reader) (paths map[string]string, err error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := s.HandleLimit
	if limit <= 0 {
		limit = defaultHandleLimit
	}

	header, err := minimalHeader(br.Header())
	if err != nil {
		return nil, err
	}
	pool := newWriterPool(limit, header)
	defer func() {
		err = multierr.Append(err, pool.closeAll())
	}()

	paths = make(map[string]string)
	counts := make(map[haplotypeKey]int)
	for {
		rec, rerr := br.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("read %s: %w", s.BAM, rerr)
		}

		region, ok := tagString(rec, regionTag)
		if !ok || !s.Regions.Keep(region) {
			continue
		}
		hap := "unknown"
		if h, ok := tagString(rec, haplotypeTag); ok {
			hap = h
		}
		key := haplotypeKey{region: region, haplotype: hap}
		if counts[key] >= s.MaxReadsPerHaplotype {
			continue
		}

		rel, seen := paths[region]
		if !seen {
			rel = layout.SplitBAM(s.Subject, s.Subject, region)
			paths[region] = rel
		}
		w, werr := pool.writer(region, filepath.Join(s.Outdir, rel))
		if werr != nil {
			return nil, werr
		}
		if werr := w.Write(rec); werr != nil {
			return nil, fmt.Errorf("write %s reads: %w", region, werr)
		}
		counts[key]++
	}

	for key, n := range counts {
		logger.Debug("retained reads",
			zap.String("sample", s.Subject),
			zap.String("region", key.region),
			zap.String("haplotype", key.haplotype),
			zap.Int("reads", n))
	}
	return paths, nil
}

// minimalHeader copies only the reference list and basic metadata from
// the source header, keeping slices self-describing but small.
func minimalHeader(src *sam.Header) (*sam.Header, error) {
	refs := make([]*sam.Reference, 0, len(src.Refs()))
	for _, ref := range src.Refs() {
		refs = append(refs, ref.Clone())
	}
	h, err := sam.NewHeader(nil, refs)
	if err != nil {
		return nil, fmt.Errorf("build output header: %w", err)
	}
	h.Version = src.Version
	h.SortOrder = src.SortOrder
	h.GroupOrder = src.GroupOrder
	return h, nil
}

// tagString reads an auxiliary tag as text. Integer-valued tags are
// rendered in decimal so haplotype groups compare consistently.
func tagString(rec *sam.Record, tag sam.Tag) (string, bool) {
	aux := rec.AuxFields.Get(tag)
	if aux == nil {
		return "", false
	}
	if s, ok := aux.Value().(string); ok {
		return s, true
	}
	return fmt.Sprint(aux.Value()), true
}
