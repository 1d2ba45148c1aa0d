package geo

import "strings"

// GeometryType is the tag reported by the engine's geometry-type function
// (uppercase, e.g. "POLYGON", "MULTILINESTRING").
type GeometryType string

const (
	Point           GeometryType = "POINT"
	MultiPoint      GeometryType = "MULTIPOINT"
	LineString      GeometryType = "LINESTRING"
	MultiLineString GeometryType = "MULTILINESTRING"
	Polygon         GeometryType = "POLYGON"
	MultiPolygon    GeometryType = "MULTIPOLYGON"
)

// Stacking priorities control default draw order: lower values render first
// (bottom), so polygons sit under lines sit under points.
const (
	PriorityPolygon = 1
	PriorityLine    = 2
	PriorityPoint   = 3
	PriorityUnknown = 99
)

// NormalizeGeometryType canonicalizes an engine-reported geometry type tag.
func NormalizeGeometryType(tag string) GeometryType {
	return GeometryType(strings.ToUpper(strings.TrimSpace(tag)))
}

// StackingPriority returns the draw-order priority for a geometry type.
// Unknown types sort last.
func (t GeometryType) StackingPriority() int {
	switch t {
	case Polygon, MultiPolygon:
		return PriorityPolygon
	case LineString, MultiLineString:
		return PriorityLine
	case Point, MultiPoint:
		return PriorityPoint
	default:
		return PriorityUnknown
	}
}

// IsKnown reports whether the type maps to one of the three layer classes.
func (t GeometryType) IsKnown() bool {
	return t.StackingPriority() != PriorityUnknown
}
