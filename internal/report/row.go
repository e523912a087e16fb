// Package report builds the canonical row model the review page and
// session generation are driven from, merging partition output with
// call metadata and pedigree relationships.
package report

import "sort"

// Row is one subject's entry for one region. Rows are value objects:
// built once, never mutated, and finally sorted for presentation.
// BAMs and BAIs hold one path for an individual and exactly three
// (paternal, maternal, proband) for a trio, all relative to the output
// root.
type Row struct {
	Chrom  string
	Start  int
	End    int
	Region string
	Sample string

	BAMs []string
	BAIs []string

	CopyNumber  string
	SpecialInfo string
	Image       string
	IGVSession  string

	FamilyID   string
	PaternalID string
	MaternalID string
	Sex        string
	Phenotype  string
}

// IsTrio reports whether the row references a family's three slices.
func (r Row) IsTrio() bool {
	return len(r.BAMs) == 3
}

// Sort orders rows by chromosome, then start, then end.
func Sort(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Chrom != rows[j].Chrom {
			return rows[i].Chrom < rows[j].Chrom
		}
		if rows[i].Start != rows[j].Start {
			return rows[i].Start < rows[j].Start
		}
		return rows[i].End < rows[j].End
	})
}
