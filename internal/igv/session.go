// Package igv writes IGV session descriptors and drives IGV in batch
// mode to render region snapshots.
package igv

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/PacificBiosciences/Paraviewer/internal/layout"
	"github.com/PacificBiosciences/Paraviewer/internal/region"
	"github.com/PacificBiosciences/Paraviewer/internal/report"
)

// sessionFields fills the single-sample session template. Resource
// paths are bare file names; the transient session copy sits next to
// the slices so they resolve during rendering.
type sessionFields struct {
	Genome string
	Chrom  string
	Start  int
	End    int
	BAM    string
	BAI    string
	Sample string
}

type trioSessionFields struct {
	Genome      string
	Chrom       string
	Start       int
	End         int
	BAM         string
	BAI         string
	PaternalBAM string
	PaternalBAI string
	MaternalBAM string
	MaternalBAI string
	Sample      string
	PaternalID  string
	MaternalID  string
}

var sessionTemplate = template.Must(template.New("session").Parse(`<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<Session genome="{{.Genome}}" locus="{{.Chrom}}:{{.Start}}-{{.End}}" version="8">
    <Resources>
        <Resource path="{{.BAM}}" type="bam"/>
    </Resources>

    <Panel height="3566" name="Panel1745015156681" width="2543">
        <Track attributeKey="{{.Sample}}.paraphase.bam Coverage" autoScale="true" clazz="org.broad.igv.sam.CoverageTrack" fontSize="12" id="{{.BAM}}_coverage" name="{{.BAM}} Coverage" snpThreshold="0.2" visible="true">
            <DataRange baseline="0.0" drawBaseline="true" flipAxis="false" maximum="54.0" minimum="0.0" type="LINEAR"/>
        </Track>
        <Track attributeKey="{{.BAM}}" clazz="org.broad.igv.sam.AlignmentTrack" color="185,185,185" displayMode="SQUISHED" experimentType="THIRD_GEN" fontSize="12" id="{{.BAM}}" name="{{.BAM}}" visible="true">
            <RenderOptions colorOption="YC_TAG" groupByOption="TAG" groupByTag="HP"/>
        </Track>
    </Panel>

    <Panel height="163" name="FeaturePanel" width="2543">
        <Track attributeKey="Reference sequence" clazz="org.broad.igv.track.SequenceTrack" fontSize="12" id="Reference sequence" name="Reference sequence" sequenceTranslationStrandValue="+" shouldShowTranslation="false" visible="true"/>
        <Track attributeKey="Refseq Genes" clazz="org.broad.igv.track.FeatureTrack" colorScale="ContinuousColorScale;0.0;836.0;255,255,255;0,0,178" fontSize="10" groupByStrand="false" id="https://hgdownload.soe.ucsc.edu/goldenPath/{{.Genome}}/database/ncbiRefSeq.txt.gz" name="Refseq Genes" visible="true"/>
    </Panel>

    <PanelLayout dividerFractions="0.005012531328320802,0.7794486215538847,0.9573934837092731"/>

    <HiddenAttributes>
        <Attribute name="DATA FILE"/>
        <Attribute name="DATA TYPE"/>
        <Attribute name="NAME"/>
    </HiddenAttributes>
</Session>
`))

var trioSessionTemplate = template.Must(template.New("trio_session").Parse(`<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<Session genome="{{.Genome}}" locus="{{.Chrom}}:{{.Start}}-{{.End}}" version="8">
    <Resources>
        <Resource path="{{.PaternalBAM}}" type="bam"/>
        <Resource path="{{.MaternalBAM}}" type="bam"/>
        <Resource path="{{.BAM}}" type="bam"/>
    </Resources>
    <Panel height="427" name="Panel1745015156681" width="2543">
        <Track attributeKey="{{.PaternalBAM}} Coverage" autoScale="true" clazz="org.broad.igv.sam.CoverageTrack" fontSize="12" id="{{.PaternalBAM}}_coverage" name="Paternal Coverage" snpThreshold="0.2" visible="true">
            <DataRange baseline="0.0" drawBaseline="true" flipAxis="false" maximum="87.0" minimum="0.0" type="LINEAR"/>
        </Track>
        <Track attributeKey="{{.PaternalBAM}}" clazz="org.broad.igv.sam.AlignmentTrack" color="185,185,185" displayMode="SQUISHED" experimentType="THIRD_GEN" fontSize="12" id="{{.PaternalBAM}}" name="Paternal BAM" visible="true">
            <RenderOptions colorOption="YC_TAG" groupByOption="TAG" groupByTag="HP"/>
        </Track>
    </Panel>
    <Panel height="382" name="Panel1748548125549" width="2543">
        <Track attributeKey="{{.MaternalBAM}} Coverage" autoScale="true" clazz="org.broad.igv.sam.CoverageTrack" fontSize="12" id="{{.MaternalBAM}}_coverage" name="Maternal Coverage" snpThreshold="0.2" visible="true">
            <DataRange baseline="0.0" drawBaseline="true" flipAxis="false" maximum="131.0" minimum="0.0" type="LINEAR"/>
        </Track>
        <Track attributeKey="{{.MaternalBAM}}" clazz="org.broad.igv.sam.AlignmentTrack" color="185,185,185" displayMode="SQUISHED" experimentType="THIRD_GEN" fontSize="12" id="{{.MaternalBAM}}" name="Maternal BAM" visible="true">
            <RenderOptions colorOption="YC_TAG" groupByOption="TAG" groupByTag="HP"/>
        </Track>
    </Panel>
    <Panel height="394" name="Panel1748548125582" width="2543">
        <Track attributeKey="{{.BAM}} Coverage" autoScale="true" clazz="org.broad.igv.sam.CoverageTrack" fontSize="12" id="{{.BAM}}_coverage" name="{{.Sample}} Coverage" snpThreshold="0.2" visible="true">
            <DataRange baseline="0.0" drawBaseline="true" flipAxis="false" maximum="144.0" minimum="0.0" type="LINEAR"/>
        </Track>
        <Track attributeKey="{{.BAM}}" clazz="org.broad.igv.sam.AlignmentTrack" color="185,185,185" displayMode="SQUISHED" experimentType="THIRD_GEN" fontSize="12" id="{{.BAM}}" name="{{.Sample}}" visible="true">
            <RenderOptions colorOption="YC_TAG" groupByOption="TAG" groupByTag="HP"/>
        </Track>
    </Panel>
    <Panel height="40" name="FeaturePanel" width="2543">
        <Track attributeKey="Reference sequence" clazz="org.broad.igv.track.SequenceTrack" fontSize="12" id="Reference sequence" name="Reference sequence" sequenceTranslationStrandValue="+" shouldShowTranslation="false" visible="true"/>
        <Track attributeKey="Refseq Genes" clazz="org.broad.igv.track.FeatureTrack" colorScale="ContinuousColorScale;0.0;836.0;255,255,255;0,0,178" fontSize="10" groupByStrand="false" id="https://hgdownload.soe.ucsc.edu/goldenPath/hg38/database/ncbiRefSeq.txt.gz" name="Refseq Genes" visible="true"/>
    </Panel>
    <PanelLayout dividerFractions="0.005012531328320802,0.34502923976608185,0.647451963241437,0.9649122807017544,0.9724310776942355"/>
    <HiddenAttributes>
        <Attribute name="DATA FILE"/>
        <Attribute name="DATA TYPE"/>
        <Attribute name="NAME"/>
    </HiddenAttributes>
</Session>
`))

// validateFields rejects session parameters IGV's hosted genomes
// cannot serve.
func validateFields(genome, chrom string) error {
	if genome != region.GenomeHG38 && genome != region.GenomeHG19 {
		return fmt.Errorf("invalid genome build %s", genome)
	}
	c := strings.TrimPrefix(chrom, "chr")
	switch c {
	case "X", "Y":
		return nil
	}
	for i := 1; i <= 22; i++ {
		if c == fmt.Sprint(i) {
			return nil
		}
	}
	return fmt.Errorf("invalid chromosome %s", chrom)
}

// WriteSessions renders one session document per row and writes it
// twice: a durable copy under the subject's session directory for
// later download, and a transient hidden copy next to the alignment
// slices for immediate rendering. It returns one batch-script stanza
// per row.
func WriteSessions(rows []report.Row, outdir, genome string) ([]string, error) {
	var batchEntries []string
	for _, row := range rows {
		if err := validateFields(genome, row.Chrom); err != nil {
			return nil, err
		}

		var doc bytes.Buffer
		switch len(row.BAMs) {
		case 1:
			err := sessionTemplate.Execute(&doc, sessionFields{
				Genome: genome,
				Chrom:  row.Chrom,
				Start:  row.Start,
				End:    row.End,
				BAM:    filepath.Base(row.BAMs[0]),
				BAI:    filepath.Base(row.BAIs[0]),
				Sample: row.Sample,
			})
			if err != nil {
				return nil, fmt.Errorf("render session for %s: %w", row.Region, err)
			}
		case 3:
			err := trioSessionTemplate.Execute(&doc, trioSessionFields{
				Genome:      genome,
				Chrom:       row.Chrom,
				Start:       row.Start,
				End:         row.End,
				PaternalBAM: filepath.Base(row.BAMs[0]),
				PaternalBAI: filepath.Base(row.BAIs[0]),
				MaternalBAM: filepath.Base(row.BAMs[1]),
				MaternalBAI: filepath.Base(row.BAIs[1]),
				BAM:         filepath.Base(row.BAMs[2]),
				BAI:         filepath.Base(row.BAIs[2]),
				Sample:      row.Sample,
				PaternalID:  row.PaternalID,
				MaternalID:  row.MaternalID,
			})
			if err != nil {
				return nil, fmt.Errorf("render session for %s: %w", row.Region, err)
			}
		default:
			return nil, fmt.Errorf("row for %s references %d alignment files, want 1 or 3", row.Region, len(row.BAMs))
		}

		durable := filepath.Join(outdir, layout.Session(row.Sample, row.Region))
		if err := os.WriteFile(durable, doc.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("write session: %w", err)
		}
		transient := filepath.Join(outdir, layout.TransientSession(row.Sample, row.Region))
		if err := os.WriteFile(transient, doc.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("write session: %w", err)
		}

		batchEntries = append(batchEntries, fmt.Sprintf("\nnew\nload %s\nsnapshotDirectory %s\nsnapshot %s_%s.png\n",
			transient,
			filepath.Join(outdir, layout.RelImages(row.Sample)),
			row.Sample, row.Region))
	}
	return batchEntries, nil
}
