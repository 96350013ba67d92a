// Package geometry computes volume and surface area for the four solid
// primitives the tutor teaches. The engine is pure: no state, no side
// effects, full precision. Rounding for display happens at the transport
// boundary via Round2.
package geometry

import (
	"fmt"
	"math"

	"geolearn-service/internal/domain"
)

// Shape is a sealed variant over the supported primitives. Each variant
// carries only its required dimensions.
type Shape interface {
	kind() domain.ShapeKind
}

// Cube has a single edge length.
type Cube struct {
	Edge float64
}

// Sphere is described by its diameter (the client's "width").
type Sphere struct {
	Diameter float64
}

// Cylinder is described by diameter and height.
type Cylinder struct {
	Diameter float64
	Height   float64
}

// Cone is described by diameter and height.
type Cone struct {
	Diameter float64
	Height   float64
}

func (Cube) kind() domain.ShapeKind     { return domain.KindCube }
func (Sphere) kind() domain.ShapeKind   { return domain.KindSphere }
func (Cylinder) kind() domain.ShapeKind { return domain.KindCylinder }
func (Cone) kind() domain.ShapeKind     { return domain.KindCone }

// FromSpec maps a wire ShapeSpec onto a variant, validating that every
// required dimension is present, numeric, and positive. Invalid input
// yields domain.ErrInvalidDimension, never a panic.
func FromSpec(spec domain.ShapeSpec) (Shape, error) {
	switch spec.Type {
	case domain.KindCube:
		w, err := dim(spec, "width")
		if err != nil {
			return nil, err
		}
		return Cube{Edge: w}, nil
	case domain.KindSphere:
		w, err := dim(spec, "width")
		if err != nil {
			return nil, err
		}
		return Sphere{Diameter: w}, nil
	case domain.KindCylinder:
		w, err := dim(spec, "width")
		if err != nil {
			return nil, err
		}
		h, err := dim(spec, "height")
		if err != nil {
			return nil, err
		}
		return Cylinder{Diameter: w, Height: h}, nil
	case domain.KindCone:
		w, err := dim(spec, "width")
		if err != nil {
			return nil, err
		}
		h, err := dim(spec, "height")
		if err != nil {
			return nil, err
		}
		return Cone{Diameter: w, Height: h}, nil
	default:
		return nil, fmt.Errorf("%w: unknown shape type %q", domain.ErrInvalidDimension, spec.Type)
	}
}

func dim(spec domain.ShapeSpec, name string) (float64, error) {
	v, ok := spec.Dimensions[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s missing %s", domain.ErrInvalidDimension, spec.Type, name)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("%w: %s %s=%v", domain.ErrInvalidDimension, spec.Type, name, v)
	}
	return v, nil
}

// Volume returns the exact volume of the shape.
func Volume(s Shape) float64 {
	switch v := s.(type) {
	case Cube:
		return v.Edge * v.Edge * v.Edge
	case Sphere:
		r := v.Diameter / 2
		return 4.0 / 3.0 * math.Pi * r * r * r
	case Cylinder:
		r := v.Diameter / 2
		return math.Pi * r * r * v.Height
	case Cone:
		r := v.Diameter / 2
		return math.Pi * r * r * v.Height / 3.0
	default:
		panic(fmt.Sprintf("geometry: unhandled shape %T", s))
	}
}

// SurfaceArea returns the exact surface area of the shape.
func SurfaceArea(s Shape) float64 {
	switch v := s.(type) {
	case Cube:
		return 6 * v.Edge * v.Edge
	case Sphere:
		r := v.Diameter / 2
		return 4 * math.Pi * r * r
	case Cylinder:
		r := v.Diameter / 2
		return 2 * math.Pi * r * (r + v.Height)
	case Cone:
		r := v.Diameter / 2
		slant := math.Sqrt(r*r + v.Height*v.Height)
		return math.Pi * r * (r + slant)
	default:
		panic(fmt.Sprintf("geometry: unhandled shape %T", s))
	}
}

// Measure resolves a spec and returns (volume, surfaceArea) in one call.
func Measure(spec domain.ShapeSpec) (float64, float64, error) {
	shape, err := FromSpec(spec)
	if err != nil {
		return 0, 0, err
	}
	return Volume(shape), SurfaceArea(shape), nil
}

// Round2 rounds to two decimal places for presentation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
