package igv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PacificBiosciences/Paraviewer/internal/layout"
	"github.com/PacificBiosciences/Paraviewer/internal/report"
)

func sampleRow(subject string) report.Row {
	bam := layout.SplitBAM(subject, subject, "smn1")
	return report.Row{
		Chrom:  "chr5",
		Start:  69000,
		End:    71000,
		Region: "smn1",
		Sample: subject,
		BAMs:   []string{bam},
		BAIs:   []string{bam + ".bai"},
	}
}

func trioRow(subject string) report.Row {
	row := report.Row{
		Chrom:      "chr5",
		Start:      69000,
		End:        71000,
		Region:     "smn1",
		Sample:     subject,
		PaternalID: "HG003",
		MaternalID: "HG004",
	}
	for _, member := range []string{"HG003", "HG004", "HG002"} {
		bam := layout.SplitBAM(subject, member, "smn1")
		row.BAMs = append(row.BAMs, bam)
		row.BAIs = append(row.BAIs, bam+".bai")
	}
	return row
}

func TestWriteSessions(t *testing.T) {
	t.Run("single sample", func(t *testing.T) {
		outdir := t.TempDir()
		require.NoError(t, layout.MakeSubjectDirs(outdir, "HG002"))

		entries, err := WriteSessions([]report.Row{sampleRow("HG002")}, outdir, "hg38")
		require.NoError(t, err)
		require.Len(t, entries, 1)

		durable := filepath.Join(outdir, layout.Session("HG002", "smn1"))
		transient := filepath.Join(outdir, layout.TransientSession("HG002", "smn1"))

		doc, err := os.ReadFile(durable)
		require.NoError(t, err)
		content := string(doc)
		assert.Contains(t, content, `<Session genome="hg38" locus="chr5:69000-71000" version="8">`)
		assert.Contains(t, content, `<Resource path="HG002_smn1.bam" type="bam"/>`)
		assert.Contains(t, content, "goldenPath/hg38/database")

		copied, err := os.ReadFile(transient)
		require.NoError(t, err)
		assert.Equal(t, doc, copied)

		want := fmt.Sprintf("\nnew\nload %s\nsnapshotDirectory %s\nsnapshot HG002_smn1.png\n",
			transient, filepath.Join(outdir, layout.RelImages("HG002")))
		assert.Equal(t, want, entries[0])
	})

	t.Run("trio resources in paternal, maternal, proband order", func(t *testing.T) {
		outdir := t.TempDir()
		require.NoError(t, layout.MakeSubjectDirs(outdir, "HG002-trio"))

		entries, err := WriteSessions([]report.Row{trioRow("HG002-trio")}, outdir, "hg38")
		require.NoError(t, err)
		require.Len(t, entries, 1)

		doc, err := os.ReadFile(filepath.Join(outdir, layout.Session("HG002-trio", "smn1")))
		require.NoError(t, err)
		content := string(doc)

		paternal := strings.Index(content, `<Resource path="HG003_smn1.bam"`)
		maternal := strings.Index(content, `<Resource path="HG004_smn1.bam"`)
		proband := strings.Index(content, `<Resource path="HG002_smn1.bam"`)
		require.True(t, paternal >= 0 && maternal >= 0 && proband >= 0)
		assert.Less(t, paternal, maternal)
		assert.Less(t, maternal, proband)

		assert.Contains(t, content, `name="Paternal BAM"`)
		assert.Contains(t, content, `name="Maternal BAM"`)
		assert.Contains(t, content, "snapshot HG002-trio_smn1.png\n")
	})

	t.Run("rejects unknown genome", func(t *testing.T) {
		outdir := t.TempDir()
		require.NoError(t, layout.MakeSubjectDirs(outdir, "HG002"))

		_, err := WriteSessions([]report.Row{sampleRow("HG002")}, outdir, "mm10")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid genome build")
	})

	t.Run("rejects unknown chromosome", func(t *testing.T) {
		outdir := t.TempDir()
		require.NoError(t, layout.MakeSubjectDirs(outdir, "HG002"))

		row := sampleRow("HG002")
		row.Chrom = "chrMT"
		_, err := WriteSessions([]report.Row{row}, outdir, "hg38")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid chromosome")
	})
}

func TestValidateFields(t *testing.T) {
	for _, chrom := range []string{"chr1", "chr22", "chrX", "chrY", "5", "X"} {
		assert.NoError(t, validateFields("hg38", chrom), chrom)
	}
	for _, chrom := range []string{"chrM", "chr23", "scaffold_1", ""} {
		assert.Error(t, validateFields("hg19", chrom), chrom)
	}
}
