// Package geo holds the concrete geometry value types shared across the
// pipeline. Coordinates are always EPSG:4326.
package geo

import (
	"fmt"
	"math"

	"github.com/gear6io/terrapipe/pkg/errors"
	"github.com/paulmach/orb"
)

// Package-specific error codes for geometry values
var (
	InvalidExtent = errors.MustNewCode("geo.invalid_extent")
)

// Extent is an axis-aligned rectangular region in geographic coordinates.
// A nil *Extent means "no spatial filter": the whole dataset.
type Extent struct {
	XMin float64 `yaml:"xmin"`
	YMin float64 `yaml:"ymin"`
	XMax float64 `yaml:"xmax"`
	YMax float64 `yaml:"ymax"`
}

// Validate checks the extent invariants: finite coordinates and
// xmin <= xmax, ymin <= ymax.
func (e *Extent) Validate() error {
	for _, v := range []float64{e.XMin, e.YMin, e.XMax, e.YMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New(InvalidExtent, "extent coordinates must be finite", nil).
				AddContext("extent", e.String())
		}
	}
	if e.XMin > e.XMax || e.YMin > e.YMax {
		return errors.New(InvalidExtent, "extent min must not exceed max", nil).
			AddContext("extent", e.String())
	}
	return nil
}

// Bound converts the extent to an orb bound.
func (e *Extent) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{e.XMin, e.YMin},
		Max: orb.Point{e.XMax, e.YMax},
	}
}

// FromBound builds an extent from an orb bound.
func FromBound(b orb.Bound) *Extent {
	return &Extent{
		XMin: b.Min[0],
		YMin: b.Min[1],
		XMax: b.Max[0],
		YMax: b.Max[1],
	}
}

// Intersects reports whether the extent overlaps another extent. Edge
// contact counts as an intersection, matching the bbox pushdown filter.
func (e *Extent) Intersects(other *Extent) bool {
	if other == nil {
		return false
	}
	return e.XMin <= other.XMax && e.XMax >= other.XMin &&
		e.YMin <= other.YMax && e.YMax >= other.YMin
}

func (e *Extent) String() string {
	return fmt.Sprintf("[%v %v %v %v]", e.XMin, e.YMin, e.XMax, e.YMax)
}
