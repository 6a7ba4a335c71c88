package core

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestVectorArithmetic(t *testing.T) {
	a := NewVector(1, 2, 3)
	b := NewVector(4, -5, 6)

	if got := a.Add(b); got != NewVector(5, -3, 9) {
		t.Errorf("Add = %+v", got)
	}
	if got := a.Sub(b); got != NewVector(-3, 7, -3) {
		t.Errorf("Sub = %+v", got)
	}
	if got := a.Scale(2); got != NewVector(2, 4, 6) {
		t.Errorf("Scale = %+v", got)
	}
	if got := a.Div(2); got != NewVector(0.5, 1, 1.5) {
		t.Errorf("Div = %+v", got)
	}
	if got := a.Dot(b); got != 4-10+18 {
		t.Errorf("Dot = %v", got)
	}
	if got := a.Cross(b); got != NewVector(12+15, 12-6, -5-8) {
		t.Errorf("Cross = %+v", got)
	}
}

func TestCompleteCoordinates(t *testing.T) {
	cases := []struct {
		name  string
		v     Vector
		r     float64
		theta float64
		phi   float64
	}{
		{"+x", NewVector(1, 0, 0), 1, math.Pi / 2, 0},
		{"+z", NewVector(0, 0, 2), 2, 0, 0},
		{"-y", NewVector(0, -1, 0), 1, math.Pi / 2, 3 * math.Pi / 2},
		{"diagonal", NewVector(1, 1, 0), math.Sqrt2, math.Pi / 2, math.Pi / 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := tc.v
			v.CompleteCoordinates()
			if !scalar.EqualWithinAbs(v.R, tc.r, 1e-12) {
				t.Errorf("R = %v, want %v", v.R, tc.r)
			}
			if !scalar.EqualWithinAbs(v.Theta, tc.theta, 1e-12) {
				t.Errorf("Theta = %v, want %v", v.Theta, tc.theta)
			}
			if !scalar.EqualWithinAbs(v.Phi, tc.phi, 1e-12) {
				t.Errorf("Phi = %v, want %v", v.Phi, tc.phi)
			}
		})
	}
}

func TestSphericalFieldsAreACache(t *testing.T) {
	v := NewVector(3, 4, 0)
	if v.R != 0 {
		t.Fatalf("R populated before CompleteCoordinates: %v", v.R)
	}
	v.CompleteCoordinates()
	if v.R != 5 {
		t.Fatalf("R = %v, want 5", v.R)
	}
	// Arithmetic does not refresh the cache.
	doubled := v.Scale(2)
	if doubled.R != 0 {
		t.Errorf("Scale carried stale cache: R = %v", doubled.R)
	}
}

func TestUnitAndAngleBetween(t *testing.T) {
	v := NewVector(0, 3, 0)
	unit := v.Unit()
	if !scalar.EqualWithinAbs(unit.Norm(), 1, 1e-12) {
		t.Errorf("Unit norm = %v", unit.Norm())
	}
	angle := NewVector(1, 0, 0).AngleBetween(NewVector(0, 5, 0))
	if !scalar.EqualWithinAbs(angle, math.Pi/2, 1e-12) {
		t.Errorf("AngleBetween = %v", angle)
	}
	// Rounding past |cos| = 1 must not produce NaN.
	same := NewVector(1e-8, 1e-8, 1e-8)
	if got := same.AngleBetween(same); math.IsNaN(got) {
		t.Error("AngleBetween of identical vectors is NaN")
	}
}

func TestOrthoNormal(t *testing.T) {
	x := NewVector(1, 0, 0)
	projected := x.OrthoNormal(NewVector(1, 1, 0))
	if !scalar.EqualWithinAbs(projected.Dot(x), 0, 1e-12) {
		t.Errorf("OrthoNormal not orthogonal: dot = %v", projected.Dot(x))
	}
	if !scalar.EqualWithinAbs(projected.Norm(), 1, 1e-12) {
		t.Errorf("OrthoNormal not unit: norm = %v", projected.Norm())
	}
}
