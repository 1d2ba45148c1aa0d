package geo

import (
	"math"
	"testing"

	"github.com/gear6io/terrapipe/pkg/errors"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtentValidate(t *testing.T) {
	tests := []struct {
		name        string
		extent      Extent
		expectError bool
	}{
		{"Valid", Extent{XMin: -10, YMin: -10, XMax: 10, YMax: 10}, false},
		{"Degenerate", Extent{XMin: 5, YMin: 5, XMax: 5, YMax: 5}, false},
		{"XMinGreaterThanXMax", Extent{XMin: 10, YMin: 0, XMax: -10, YMax: 10}, true},
		{"YMinGreaterThanYMax", Extent{XMin: 0, YMin: 10, XMax: 10, YMax: -10}, true},
		{"NaN", Extent{XMin: math.NaN(), YMin: 0, XMax: 1, YMax: 1}, true},
		{"Inf", Extent{XMin: 0, YMin: 0, XMax: math.Inf(1), YMax: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.extent.Validate()
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, InvalidExtent))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExtentBoundRoundTrip(t *testing.T) {
	e := &Extent{XMin: -122.5, YMin: 37.7, XMax: -122.3, YMax: 37.9}
	b := e.Bound()

	assert.Equal(t, orb.Point{-122.5, 37.7}, b.Min)
	assert.Equal(t, orb.Point{-122.3, 37.9}, b.Max)
	assert.Equal(t, e, FromBound(b))
}

func TestExtentIntersects(t *testing.T) {
	base := &Extent{XMin: 0, YMin: 0, XMax: 10, YMax: 10}

	tests := []struct {
		name  string
		other *Extent
		want  bool
	}{
		{"Overlapping", &Extent{XMin: 5, YMin: 5, XMax: 15, YMax: 15}, true},
		{"Contained", &Extent{XMin: 2, YMin: 2, XMax: 8, YMax: 8}, true},
		{"EdgeContact", &Extent{XMin: 10, YMin: 0, XMax: 20, YMax: 10}, true},
		{"Disjoint", &Extent{XMin: 11, YMin: 11, XMax: 20, YMax: 20}, false},
		{"Nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Intersects(tt.other))
		})
	}
}

func TestNormalizeGeometryType(t *testing.T) {
	assert.Equal(t, Polygon, NormalizeGeometryType(" polygon "))
	assert.Equal(t, MultiLineString, NormalizeGeometryType("MultiLineString"))
	assert.Equal(t, GeometryType("GEOMETRYCOLLECTION"), NormalizeGeometryType("GeometryCollection"))
}

func TestStackingPriority(t *testing.T) {
	tests := []struct {
		geomType GeometryType
		priority int
	}{
		{Polygon, PriorityPolygon},
		{MultiPolygon, PriorityPolygon},
		{LineString, PriorityLine},
		{MultiLineString, PriorityLine},
		{Point, PriorityPoint},
		{MultiPoint, PriorityPoint},
		{GeometryType("GEOMETRYCOLLECTION"), PriorityUnknown},
		{GeometryType("CURVEPOLYGON"), PriorityUnknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.geomType), func(t *testing.T) {
			assert.Equal(t, tt.priority, tt.geomType.StackingPriority())
		})
	}

	assert.False(t, GeometryType("GEOMETRYCOLLECTION").IsKnown())
	assert.True(t, Point.IsKnown())
}
