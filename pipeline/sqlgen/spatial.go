package sqlgen

import (
	"fmt"
	"strings"

	"github.com/gear6io/terrapipe/pipeline/geo"
)

// Filter is the two-stage spatial filter for one extent: a cheap bbox
// pushdown predicate followed by an exact intersection test, plus the
// optional clip expression that truncates geometries to the extent.
type Filter struct {
	// Predicate is the WHERE-clause text. Empty means no spatial filter.
	Predicate string
	// Clip is the SELECT-expression replacing the geometry column when the
	// caller wants geometries truncated to the extent. Empty when no extent.
	Clip string
}

// ExtentEnvelope renders the extent as an engine envelope polygon.
func ExtentEnvelope(e *geo.Extent) string {
	return fmt.Sprintf("ST_MakeEnvelope(%s, %s, %s, %s)",
		FormatFloat(e.XMin), FormatFloat(e.YMin), FormatFloat(e.XMax), FormatFloat(e.YMax))
}

// BBoxOverlap renders the numeric overlap test against a bbox struct column.
// This prunes on pre-computed bounds without evaluating geometry, and is a
// strict superset of the exact intersection test: any geometry intersecting
// the extent also passes here.
func BBoxOverlap(bboxColumn string, e *geo.Extent) string {
	col := QuoteIdentifier(bboxColumn)
	return fmt.Sprintf("(%s.xmin <= %s AND %s.xmax >= %s AND %s.ymin <= %s AND %s.ymax >= %s)",
		col, FormatFloat(e.XMax),
		col, FormatFloat(e.XMin),
		col, FormatFloat(e.YMax),
		col, FormatFloat(e.YMin))
}

// Intersects renders the exact geometry-intersection test. BBox overlap
// alone yields false positives for non-rectangular features extending past
// the query window, so this always follows the pushdown stage.
func Intersects(geomExpr string, e *geo.Extent) string {
	return fmt.Sprintf("ST_Intersects(%s, %s)", geomExpr, ExtentEnvelope(e))
}

// ClipExpression renders the expression that intersects the geometry with
// the extent polygon, yielding NULL for geometries outside it.
func ClipExpression(geomExpr string, e *geo.Extent) string {
	env := ExtentEnvelope(e)
	return fmt.Sprintf("CASE WHEN ST_Intersects(%s, %s) THEN ST_Intersection(%s, %s) ELSE NULL END",
		geomExpr, env, geomExpr, env)
}

// BuildFilter builds the spatial filter for one extent. A nil extent
// produces an empty filter: the whole dataset loads (the degraded path —
// callers log it). When the schema carries a bbox struct column the
// predicate is two-stage: bbox overlap first, exact intersection second.
// geometryExpr is the rendered expression the exact stages evaluate;
// callers repairing geometry pass the repaired expression here so the
// intersection test never runs on invalid input.
func BuildFilter(extent *geo.Extent, geometryExpr, bboxColumn string, hasBBox bool) Filter {
	if extent == nil {
		return Filter{}
	}

	var stages []string
	if hasBBox && bboxColumn != "" {
		stages = append(stages, BBoxOverlap(bboxColumn, extent))
	}
	stages = append(stages, Intersects(geometryExpr, extent))

	return Filter{
		Predicate: strings.Join(stages, " AND "),
		Clip:      ClipExpression(geometryExpr, extent),
	}
}

// RepairExpression wraps a geometry expression in validity repair.
// Intersection and area predicates on invalid geometry are undefined, so
// repair runs before the filter when requested.
func RepairExpression(geomExpr string) string {
	return fmt.Sprintf("ST_MakeValid(%s)", geomExpr)
}

// BBoxStruct recomputes a bbox struct from a geometry expression. After a
// clip or repair the stored bbox must derive from the new geometry, never
// carry over from the source row.
func BBoxStruct(geomExpr string) string {
	return fmt.Sprintf("{'xmin': ST_XMin(%s), 'ymin': ST_YMin(%s), 'xmax': ST_XMax(%s), 'ymax': ST_YMax(%s)}",
		geomExpr, geomExpr, geomExpr, geomExpr)
}

// GeometryTypeExpr renders the geometry-type tag of an expression.
func GeometryTypeExpr(geomExpr string) string {
	return fmt.Sprintf("ST_GeometryType(%s)", geomExpr)
}
