package report

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/PacificBiosciences/Paraviewer/internal/layout"
	"github.com/PacificBiosciences/Paraviewer/internal/partition"
	"github.com/PacificBiosciences/Paraviewer/internal/pedigree"
	"github.com/PacificBiosciences/Paraviewer/internal/region"
	"github.com/PacificBiosciences/Paraviewer/internal/results"
)

// regionPadding widens each region's configured interval on both ends
// so flanking context is visible in the rendered snapshots.
const regionPadding = 1000

// BuildSampleRows produces one row per region present in both the
// sample's call metadata and its partition map. Regions without a
// configuration entry are skipped with a notice; configuration may
// legitimately lag behind pipeline output.
func BuildSampleRows(res results.Results, entry *pedigree.Entry, splits map[string]partition.Output, defs map[string]region.Definition, logger *zap.Logger) []Row {
	if logger == nil {
		logger = zap.NewNop()
	}
	calls := results.LoadCalls(res.JSON, logger)

	rows := make([]Row, 0, len(calls))
	for _, regionName := range sortedRegions(calls) {
		out, ok := splits[regionName]
		if !ok {
			continue
		}
		iv, ok := configuredInterval(regionName, defs, logger)
		if !ok {
			continue
		}

		row := Row{
			Chrom:       iv.Chrom,
			Start:       iv.Start,
			End:         iv.End,
			Region:      regionName,
			Sample:      res.Sample,
			BAMs:        []string{out.BAM},
			BAIs:        []string{out.BAI},
			CopyNumber:  CopyNumber(calls[regionName]),
			SpecialInfo: SpecialInfo(regionName, calls[regionName], res),
			Image:       layout.Image(res.Sample, res.Sample, regionName),
			IGVSession:  layout.Session(res.Sample, regionName),
		}
		if entry != nil {
			row.FamilyID = entry.FamilyID
			row.PaternalID = entry.PaternalID
			row.MaternalID = entry.MaternalID
			row.Sex = entry.Sex
			row.Phenotype = entry.Phenotype
		}
		rows = append(rows, row)
	}
	return rows
}

// BuildTrioRows produces the family's rows, one per region known to
// the proband's metadata and present in all three members' partition
// maps. Each such region's three slices are copied (paternal,
// maternal, proband) into the trio's own namespace; the proband's
// metadata drives copy number and special info. A trio whose members
// lack partition results yields no rows, silently.
func BuildTrioRows(trio pedigree.Entry, probandRes results.Results, splits map[string]map[string]partition.Output, defs map[string]region.Definition, outdir string, logger *zap.Logger) ([]Row, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	proband, okP := splits[trio.IndividualID]
	paternal, okF := splits[trio.PaternalID]
	maternal, okM := splits[trio.MaternalID]
	if !okP || !okF || !okM {
		return nil, nil
	}

	calls := results.LoadCalls(probandRes.JSON, logger)
	subject := trio.IndividualID + "-trio"

	var rows []Row
	for _, regionName := range sortedRegions(calls) {
		probandOut, ok := proband[regionName]
		if !ok {
			continue
		}
		paternalOut, ok := paternal[regionName]
		if !ok {
			continue
		}
		maternalOut, ok := maternal[regionName]
		if !ok {
			continue
		}
		iv, ok := configuredInterval(regionName, defs, logger)
		if !ok {
			continue
		}

		bams, err := copyTrioBAMs(outdir, subject, regionName, []member{
			{id: trio.PaternalID, out: paternalOut},
			{id: trio.MaternalID, out: maternalOut},
			{id: trio.IndividualID, out: probandOut},
		})
		if err != nil {
			return nil, err
		}
		bais := make([]string, len(bams))
		for i, bam := range bams {
			bais[i] = bam + ".bai"
		}

		rows = append(rows, Row{
			Chrom:       iv.Chrom,
			Start:       iv.Start,
			End:         iv.End,
			Region:      regionName,
			Sample:      subject,
			BAMs:        bams,
			BAIs:        bais,
			CopyNumber:  CopyNumber(calls[regionName]),
			SpecialInfo: SpecialInfo(regionName, calls[regionName], probandRes),
			Image:       layout.Image(subject, subject, regionName),
			IGVSession:  layout.Session(subject, regionName),
			FamilyID:    trio.FamilyID,
			PaternalID:  trio.PaternalID,
			MaternalID:  trio.MaternalID,
			Sex:         trio.Sex,
			Phenotype:   trio.Phenotype,
		})
	}
	return rows, nil
}

type member struct {
	id  string
	out partition.Output
}

// copyTrioBAMs duplicates the members' region slices into the trio's
// namespace and returns the new relative BAM paths in member order.
// The originals are never touched.
func copyTrioBAMs(outdir, subject, regionName string, members []member) ([]string, error) {
	paths := make([]string, 0, len(members))
	for _, m := range members {
		dst := layout.SplitBAM(subject, m.id, regionName)
		if err := layout.Copy(outdir, m.out.BAM, dst); err != nil {
			return nil, fmt.Errorf("copy %s slice for %s: %w", regionName, m.id, err)
		}
		if err := layout.Copy(outdir, m.out.BAI, dst+".bai"); err != nil {
			return nil, fmt.Errorf("copy %s index for %s: %w", regionName, m.id, err)
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

func configuredInterval(regionName string, defs map[string]region.Definition, logger *zap.Logger) (region.Interval, bool) {
	def, ok := defs[regionName]
	if !ok {
		logger.Info("no configuration for region, skipping", zap.String("region", regionName))
		return region.Interval{}, false
	}
	iv, err := region.ParseInterval(def.RealignRegion)
	if err != nil {
		logger.Info("bad configuration for region, skipping",
			zap.String("region", regionName), zap.Error(err))
		return region.Interval{}, false
	}
	return iv.Pad(regionPadding), true
}

func sortedRegions(calls map[string]map[string]any) []string {
	names := make([]string, 0, len(calls))
	for name := range calls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
