package schema

import "strings"

// DropPolicy maps a dataset-type key to the column names safe to omit from
// ingest. Loaded once at startup from configuration, immutable thereafter.
// Geometry and bbox columns are retained even when listed.
type DropPolicy map[string][]string

// Project computes the ingest column list for a dataset type. A nil result
// is the "all columns" sentinel: no projection.
//
// Rules:
//   - No policy entry, or an empty drop set, means all columns.
//   - The geometry column and any column named or prefixed by the bbox
//     column survive the drop set unconditionally.
//   - A projection that would remove every column falls back to all columns
//     rather than emitting an unselectable query.
//
// Pure function; malformed input degrades to "all columns".
func Project(policy DropPolicy, typeKey string, desc *Descriptor, geometryColumn, bboxColumn string) []string {
	if desc == nil || desc.Len() == 0 {
		return nil
	}

	drops := policy[typeKey]
	if len(drops) == 0 {
		return nil
	}

	dropSet := make(map[string]struct{}, len(drops))
	for _, name := range drops {
		dropSet[strings.ToLower(name)] = struct{}{}
	}

	geomLower := strings.ToLower(geometryColumn)
	bboxLower := strings.ToLower(bboxColumn)

	var kept []string
	for _, col := range desc.Columns() {
		lower := strings.ToLower(col.Name)

		protected := lower == geomLower ||
			(bboxLower != "" && strings.HasPrefix(lower, bboxLower))
		if protected {
			kept = append(kept, col.Name)
			continue
		}

		if _, dropped := dropSet[lower]; dropped {
			continue
		}
		kept = append(kept, col.Name)
	}

	if len(kept) == 0 || len(kept) == desc.Len() {
		return nil
	}
	return kept
}
