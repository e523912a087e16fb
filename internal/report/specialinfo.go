package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PacificBiosciences/Paraviewer/internal/results"
)

// specialFields names the call-metadata keys surfaced as special info
// for known complex medically relevant gene regions. The gene names
// organize the table only: the union of all field names is matched
// against every region's metadata.
var specialFields = map[string][]string{
	"CFH":         {"fusions_called"},
	"F8":          {"sv_called"},
	"GBA":         {"fusions_called"},
	"HBA":         {"genotype", "sv_called", "alleles_final"},
	"IKBKG":       {"deletion_haplotypes"},
	"NEB":         {"alleles_final"},
	"OPN1LW":      {"annotated_haplotypes", "alleles_final", "annotated_alleles"},
	"RCCX":        {"alleles_final", "ending_hap", "annotated_alleles"},
	"SMN1":        {"smn1_cn", "smn2_cn", "smn2_del78_cn"},
	"all_regions": {},
}

// fieldUnion returns the sorted, de-duplicated field names from
// specialFields.
func fieldUnion() []string {
	seen := make(map[string]bool)
	var names []string
	for _, fields := range specialFields {
		for _, name := range fields {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// CopyNumber extracts a region's copy number, preferring the
// gene-level call, then the total, then the highest total seen across
// candidate haplotypes. Nothing present yields the empty string.
func CopyNumber(data map[string]any) string {
	for _, key := range []string{"gene_cn", "total_cn", "highest_total_cn"} {
		if v, ok := data[key]; ok && v != nil {
			return formatValue(v)
		}
	}
	return ""
}

// SpecialInfo renders a region's allow-listed metadata fields as one
// semicolon-joined string in alphabetical field order. Regions of the
// inversion-prone F8 gene discard the generic fields and show only the
// inversion call; other regions append any per-haplotype annotation
// text known for them.
func SpecialInfo(regionName string, data map[string]any, res results.Results) string {
	isF8 := strings.Contains(strings.ToLower(regionName), "f8")

	var parts []string
	if !isF8 {
		parts = genericInfo(data)
	}

	if res.F8Inversion != "" {
		parts = append(parts, res.F8Inversion)
	} else if !isF8 {
		if note, ok := res.HaplotypeNotes[regionName]; ok {
			parts = append(parts, note)
		}
	}

	return strings.Trim(strings.Join(parts, ";"), ", ")
}

func genericInfo(data map[string]any) []string {
	var parts []string
	for _, name := range fieldUnion() {
		v, ok := data[name]
		if !ok || v == nil || v == "NA" {
			continue
		}

		switch val := v.(type) {
		case []any:
			if len(val) == 0 {
				continue
			}
			items := make([]string, 0, len(val))
			for _, elem := range val {
				if inner, ok := elem.([]any); ok {
					joined := make([]string, 0, len(inner))
					for _, x := range inner {
						joined = append(joined, formatValue(x))
					}
					items = append(items, strings.Join(joined, " | "))
				} else {
					items = append(items, formatValue(elem))
				}
			}
			parts = append(parts, name+": "+strings.Join(items, ", "))
		case map[string]any:
			if len(val) == 0 {
				continue
			}
			keys := make([]string, 0, len(val))
			for k := range val {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			parts = append(parts, name+","+strings.Join(keys, ", "))
		default:
			parts = append(parts, name+","+formatValue(val))
		}
	}
	return parts
}

// formatValue renders a decoded JSON value as display text. Integral
// numbers render without a decimal point.
func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
