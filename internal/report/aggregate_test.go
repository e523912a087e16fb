package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PacificBiosciences/Paraviewer/internal/layout"
	"github.com/PacificBiosciences/Paraviewer/internal/partition"
	"github.com/PacificBiosciences/Paraviewer/internal/pedigree"
	"github.com/PacificBiosciences/Paraviewer/internal/region"
	"github.com/PacificBiosciences/Paraviewer/internal/results"
)

func writeCalls(t *testing.T, dir, sample, content string) results.Results {
	t.Helper()
	path := filepath.Join(dir, sample+".paraphase.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return results.Results{Sample: sample, JSON: path}
}

func sampleSplits(subject string, regions ...string) map[string]partition.Output {
	splits := make(map[string]partition.Output, len(regions))
	for _, r := range regions {
		bam := layout.SplitBAM(subject, subject, r)
		splits[r] = partition.Output{BAM: bam, BAI: bam + ".bai"}
	}
	return splits
}

func TestBuildSampleRows(t *testing.T) {
	defs := map[string]region.Definition{
		"smn1": {RealignRegion: "chr5:70,900,000-70,960,000"},
		"rccx": {RealignRegion: "chr6:31,980,000-32,050,000"},
		"near": {RealignRegion: "chr1:500-900"},
		"bad":  {RealignRegion: "not an interval"},
	}

	t.Run("rows merge calls, splits and config", func(t *testing.T) {
		res := writeCalls(t, t.TempDir(), "HG002", `{
			"smn1": {"smn1_cn": 2, "smn2_cn": 3},
			"rccx": {"total_cn": 4}
		}`)
		splits := sampleSplits("HG002", "smn1", "rccx")

		rows := BuildSampleRows(res, nil, splits, defs, zap.NewNop())
		require.Len(t, rows, 2)

		// deterministic construction order: region names sorted
		rccx, smn1 := rows[0], rows[1]

		assert.Equal(t, "chr6", rccx.Chrom)
		assert.Equal(t, 31979000, rccx.Start)
		assert.Equal(t, 32051000, rccx.End)
		assert.Equal(t, "4", rccx.CopyNumber)

		assert.Equal(t, "smn1", smn1.Region)
		assert.Equal(t, "HG002", smn1.Sample)
		assert.Equal(t, 70899000, smn1.Start)
		assert.Equal(t, 70961000, smn1.End)
		assert.Equal(t, []string{splits["smn1"].BAM}, smn1.BAMs)
		assert.Equal(t, []string{splits["smn1"].BAI}, smn1.BAIs)
		assert.Equal(t, "", smn1.CopyNumber)
		assert.Equal(t, "smn1_cn,2;smn2_cn,3", smn1.SpecialInfo)
		assert.Equal(t, layout.Image("HG002", "HG002", "smn1"), smn1.Image)
		assert.Equal(t, layout.Session("HG002", "smn1"), smn1.IGVSession)
		assert.False(t, smn1.IsTrio())

		for _, row := range rows {
			assert.Empty(t, row.FamilyID)
			assert.Empty(t, row.Sex)
		}
	})

	t.Run("padding is clamped at zero", func(t *testing.T) {
		res := writeCalls(t, t.TempDir(), "HG002", `{"near": {}}`)
		rows := BuildSampleRows(res, nil, sampleSplits("HG002", "near"), defs, zap.NewNop())

		require.Len(t, rows, 1)
		assert.Equal(t, 0, rows[0].Start)
		assert.Equal(t, 1900, rows[0].End)
	})

	t.Run("regions without partition output are skipped", func(t *testing.T) {
		res := writeCalls(t, t.TempDir(), "HG002", `{
			"smn1": {},
			"rccx": {}
		}`)
		rows := BuildSampleRows(res, nil, sampleSplits("HG002", "smn1"), defs, zap.NewNop())

		require.Len(t, rows, 1)
		assert.Equal(t, "smn1", rows[0].Region)
	})

	t.Run("regions without usable config are skipped", func(t *testing.T) {
		res := writeCalls(t, t.TempDir(), "HG002", `{
			"smn1": {},
			"bad": {},
			"novel": {}
		}`)
		rows := BuildSampleRows(res, nil, sampleSplits("HG002", "smn1", "bad", "novel"), defs, zap.NewNop())

		require.Len(t, rows, 1)
		assert.Equal(t, "smn1", rows[0].Region)
	})

	t.Run("pedigree fields stamped when known", func(t *testing.T) {
		res := writeCalls(t, t.TempDir(), "HG002", `{"smn1": {}}`)
		entry := &pedigree.Entry{
			FamilyID:     "fam1",
			IndividualID: "HG002",
			PaternalID:   "HG003",
			MaternalID:   "HG004",
			Sex:          pedigree.SexMale,
			Phenotype:    "2",
		}
		rows := BuildSampleRows(res, entry, sampleSplits("HG002", "smn1"), defs, zap.NewNop())

		require.Len(t, rows, 1)
		assert.Equal(t, "fam1", rows[0].FamilyID)
		assert.Equal(t, "HG003", rows[0].PaternalID)
		assert.Equal(t, "HG004", rows[0].MaternalID)
		assert.Equal(t, pedigree.SexMale, rows[0].Sex)
		assert.Equal(t, "2", rows[0].Phenotype)
	})

	t.Run("unreadable metadata yields no rows", func(t *testing.T) {
		res := results.Results{Sample: "HG002", JSON: filepath.Join(t.TempDir(), "absent.json")}
		rows := BuildSampleRows(res, nil, sampleSplits("HG002", "smn1"), defs, zap.NewNop())
		assert.Empty(t, rows)
	})
}

// trioFixture lays out split slices for three members under outdir and
// returns their partition maps.
func trioFixture(t *testing.T, outdir string, regions ...string) map[string]map[string]partition.Output {
	t.Helper()
	splits := make(map[string]map[string]partition.Output)
	for _, subject := range []string{"HG002", "HG003", "HG004"} {
		require.NoError(t, layout.MakeSubjectDirs(outdir, subject))
		splits[subject] = sampleSplits(subject, regions...)
		for _, out := range splits[subject] {
			require.NoError(t, os.WriteFile(filepath.Join(outdir, out.BAM), []byte(subject+" bam"), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(outdir, out.BAI), []byte(subject+" bai"), 0o644))
		}
	}
	require.NoError(t, layout.MakeSubjectDirs(outdir, "HG002-trio"))
	return splits
}

func TestBuildTrioRows(t *testing.T) {
	trio := pedigree.Entry{
		FamilyID:     "fam1",
		IndividualID: "HG002",
		PaternalID:   "HG003",
		MaternalID:   "HG004",
		Sex:          pedigree.SexMale,
		Phenotype:    "2",
	}
	defs := map[string]region.Definition{
		"smn1": {RealignRegion: "chr5:70,900,000-70,960,000"},
		"rccx": {RealignRegion: "chr6:31,980,000-32,050,000"},
	}

	t.Run("copies slices and builds rows from proband calls", func(t *testing.T) {
		outdir := t.TempDir()
		splits := trioFixture(t, outdir, "smn1")
		res := writeCalls(t, t.TempDir(), "HG002", `{"smn1": {"smn2_cn": 3, "total_cn": 4}}`)

		rows, err := BuildTrioRows(trio, res, splits, defs, outdir, zap.NewNop())
		require.NoError(t, err)
		require.Len(t, rows, 1)

		row := rows[0]
		assert.Equal(t, "HG002-trio", row.Sample)
		assert.True(t, row.IsTrio())
		assert.Equal(t, []string{
			layout.SplitBAM("HG002-trio", "HG003", "smn1"),
			layout.SplitBAM("HG002-trio", "HG004", "smn1"),
			layout.SplitBAM("HG002-trio", "HG002", "smn1"),
		}, row.BAMs)
		for i, bam := range row.BAMs {
			assert.Equal(t, bam+".bai", row.BAIs[i])
		}
		assert.Equal(t, "4", row.CopyNumber)
		assert.Equal(t, "smn2_cn,3", row.SpecialInfo)
		assert.Equal(t, layout.Image("HG002-trio", "HG002-trio", "smn1"), row.Image)
		assert.Equal(t, layout.Session("HG002-trio", "smn1"), row.IGVSession)
		assert.Equal(t, "fam1", row.FamilyID)
		assert.Equal(t, pedigree.SexMale, row.Sex)

		// the copies carry each member's payload; originals stay put
		got, err := os.ReadFile(filepath.Join(outdir, row.BAMs[0]))
		require.NoError(t, err)
		assert.Equal(t, []byte("HG003 bam"), got)
		got, err = os.ReadFile(filepath.Join(outdir, row.BAMs[2]))
		require.NoError(t, err)
		assert.Equal(t, []byte("HG002 bam"), got)
		_, err = os.Stat(filepath.Join(outdir, splits["HG003"]["smn1"].BAM))
		assert.NoError(t, err)
	})

	t.Run("region absent from a parent map is skipped", func(t *testing.T) {
		outdir := t.TempDir()
		splits := trioFixture(t, outdir, "smn1")
		res := writeCalls(t, t.TempDir(), "HG002", `{
			"smn1": {},
			"rccx": {}
		}`)
		// only the proband saw rccx
		probandRccx := sampleSplits("HG002", "rccx")
		splits["HG002"]["rccx"] = probandRccx["rccx"]

		rows, err := BuildTrioRows(trio, res, splits, defs, outdir, zap.NewNop())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "smn1", rows[0].Region)
	})

	t.Run("missing member yields no rows", func(t *testing.T) {
		outdir := t.TempDir()
		splits := trioFixture(t, outdir, "smn1")
		delete(splits, "HG004")
		res := writeCalls(t, t.TempDir(), "HG002", `{"smn1": {}}`)

		rows, err := BuildTrioRows(trio, res, splits, defs, outdir, zap.NewNop())
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestSortRows(t *testing.T) {
	rows := []Row{
		{Chrom: "chr6", Start: 100, End: 200},
		{Chrom: "chr5", Start: 900, End: 950},
		{Chrom: "chr5", Start: 100, End: 300},
		{Chrom: "chr5", Start: 100, End: 200},
	}
	Sort(rows)

	assert.Equal(t, []Row{
		{Chrom: "chr5", Start: 100, End: 200},
		{Chrom: "chr5", Start: 100, End: 300},
		{Chrom: "chr5", Start: 900, End: 950},
		{Chrom: "chr6", Start: 100, End: 200},
	}, rows)
}
