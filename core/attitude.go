package core

import "math"

// AttitudeMatrix is a 3x3 rotation matrix with a cached inverse. The inverse
// is computed once at construction; if the determinant is zero the cached
// inverse is the zero matrix and InvertVector degenerates to the zero map.
type AttitudeMatrix struct {
	m [3][3]float64
	i [3][3]float64
}

// NewAttitudeMatrix constructs a matrix from nine scalars in row-major
// order.
func NewAttitudeMatrix(r0c0, r0c1, r0c2, r1c0, r1c1, r1c2, r2c0, r2c1, r2c2 float64) AttitudeMatrix {
	a := AttitudeMatrix{m: [3][3]float64{
		{r0c0, r0c1, r0c2},
		{r1c0, r1c1, r1c2},
		{r2c0, r2c1, r2c2},
	}}
	a.i = a.inverse()
	return a
}

// AttitudeMatrixFromAxes constructs a matrix from three basis axes by
// recovering the (roll, pitch, yaw) angles they encode.
func AttitudeMatrixFromAxes(xAxis, yAxis, zAxis Vector) AttitudeMatrix {
	roll := math.Mod(math.Asin(-yAxis.Z), math.Pi)
	pitch := math.Mod(math.Atan2(xAxis.Z, zAxis.Z), 2*math.Pi)
	yaw := math.Mod(math.Atan2(yAxis.X, yAxis.Y), 2*math.Pi)
	return AttitudeMatrixFromAngles(roll, pitch, yaw)
}

// AttitudeMatrixFromAngles constructs a matrix from (roll, pitch, yaw)
// angles in radians. Entries within machine epsilon of zero are clamped to
// exactly zero.
func AttitudeMatrixFromAngles(rollRad, pitchRad, yawRad float64) AttitudeMatrix {
	sr, cr := math.Sincos(rollRad)
	sp, cp := math.Sincos(pitchRad)
	sy, cy := math.Sincos(yawRad)
	m := [3][3]float64{
		{(cy * cp) + (sy * sr * sp), sy * cr, (-cy * sp) + (sy * sr * cp)},
		{(-sy * cp) + (cy * sr * sp), cy * cr, (sy * sp) + (cy * sr * cp)},
		{cr * sp, -sr, cr * cp},
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(m[i][j]) <= epsilonFloat {
				m[i][j] = 0
			}
		}
	}
	a := AttitudeMatrix{m: m}
	a.i = a.inverse()
	return a
}

const epsilonFloat = 2.220446049250313e-16

// TransformVector applies the forward rotation to a vector.
func (a AttitudeMatrix) TransformVector(v Vector) Vector {
	return NewVector(
		a.m[0][0]*v.X+a.m[0][1]*v.Y+a.m[0][2]*v.Z,
		a.m[1][0]*v.X+a.m[1][1]*v.Y+a.m[1][2]*v.Z,
		a.m[2][0]*v.X+a.m[2][1]*v.Y+a.m[2][2]*v.Z,
	)
}

// InvertVector applies the cached inverse rotation to a vector. For a
// singular matrix this returns the zero vector.
func (a AttitudeMatrix) InvertVector(v Vector) Vector {
	return NewVector(
		a.i[0][0]*v.X+a.i[0][1]*v.Y+a.i[0][2]*v.Z,
		a.i[1][0]*v.X+a.i[1][1]*v.Y+a.i[1][2]*v.Z,
		a.i[2][0]*v.X+a.i[2][1]*v.Y+a.i[2][2]*v.Z,
	)
}

// Determinant returns the determinant of the forward matrix.
func (a AttitudeMatrix) Determinant() float64 {
	m := a.m
	return m[0][0]*((m[1][1]*m[2][2])-(m[1][2]*m[2][1])) -
		m[0][1]*((m[1][0]*m[2][2])-(m[2][0]*m[1][2])) +
		m[0][2]*((m[1][0]*m[2][1])-(m[1][1]*m[2][0]))
}

func (a AttitudeMatrix) inverse() [3][3]float64 {
	det := a.Determinant()
	if det == 0 {
		return [3][3]float64{}
	}
	m := a.m
	return [3][3]float64{
		{((m[1][1] * m[2][2]) - (m[1][2] * m[2][1])) / det,
			((m[0][2] * m[2][1]) - (m[0][1] * m[2][2])) / det,
			((m[0][1] * m[1][2]) - (m[0][2] * m[1][1])) / det},
		{((m[1][2] * m[2][0]) - (m[1][0] * m[2][2])) / det,
			((m[0][0] * m[2][2]) - (m[0][2] * m[2][0])) / det,
			((m[0][2] * m[1][0]) - (m[0][0] * m[1][2])) / det},
		{((m[1][0] * m[2][1]) - (m[1][1] * m[2][0])) / det,
			((m[0][1] * m[2][0]) - (m[0][0] * m[2][1])) / det,
			((m[0][0] * m[1][1]) - (m[0][1] * m[1][0])) / det},
	}
}

// ReferenceFrame is three orthonormal axes plus the attitude matrix that
// produced them. Frames nest: a frame constructed relative to parents is
// re-derived with Update when the parents move.
type ReferenceFrame struct {
	attitude AttitudeMatrix
	xAxis    Vector
	yAxis    Vector
	zAxis    Vector
}

// NewReferenceFrameFromAxes constructs a frame directly from three axes.
func NewReferenceFrameFromAxes(xAxis, yAxis, zAxis Vector) ReferenceFrame {
	return ReferenceFrame{
		attitude: AttitudeMatrixFromAxes(xAxis, yAxis, zAxis),
		xAxis:    xAxis,
		yAxis:    yAxis,
		zAxis:    zAxis,
	}
}

// NewReferenceFrame constructs a frame from (roll, pitch, yaw) with the
// identity axes.
func NewReferenceFrame(rollRad, pitchRad, yawRad float64) ReferenceFrame {
	return ReferenceFrame{
		attitude: AttitudeMatrixFromAngles(rollRad, pitchRad, yawRad),
		xAxis:    NewVector(1, 0, 0),
		yAxis:    NewVector(0, 1, 0),
		zAxis:    NewVector(0, 0, 1),
	}
}

// NewNestedReferenceFrame constructs a frame from angles expressed relative
// to a parent frame.
func NewNestedReferenceFrame(parent ReferenceFrame, rollRad, pitchRad, yawRad float64) ReferenceFrame {
	frame := NewReferenceFrame(rollRad, pitchRad, yawRad)
	frame.Update(parent)
	return frame
}

// NewNestedReferenceFrame2 constructs a frame from angles expressed
// relative to two parent frames, innermost second.
func NewNestedReferenceFrame2(parent1, parent2 ReferenceFrame, rollRad, pitchRad, yawRad float64) ReferenceFrame {
	frame := NewReferenceFrame(rollRad, pitchRad, yawRad)
	frame.Update2(parent1, parent2)
	return frame
}

// Attitude returns the frame's own attitude matrix.
func (f ReferenceFrame) Attitude() AttitudeMatrix { return f.attitude }

// XAxis returns the frame's x axis in the outermost parent's coordinates.
func (f ReferenceFrame) XAxis() Vector { return f.xAxis }

// YAxis returns the frame's y axis in the outermost parent's coordinates.
func (f ReferenceFrame) YAxis() Vector { return f.yAxis }

// ZAxis returns the frame's z axis in the outermost parent's coordinates.
func (f ReferenceFrame) ZAxis() Vector { return f.zAxis }

// Update re-derives the axes through one parent frame.
func (f *ReferenceFrame) Update(parent ReferenceFrame) {
	f.xAxis = parent.attitude.TransformVector(f.attitude.TransformVector(NewVector(1, 0, 0)))
	f.yAxis = parent.attitude.TransformVector(f.attitude.TransformVector(NewVector(0, 1, 0)))
	f.zAxis = parent.attitude.TransformVector(f.attitude.TransformVector(NewVector(0, 0, 1)))
}

// Update2 re-derives the axes through two parent frames, innermost second.
func (f *ReferenceFrame) Update2(parent1, parent2 ReferenceFrame) {
	f.xAxis = parent1.attitude.TransformVector(parent2.attitude.TransformVector(f.attitude.TransformVector(NewVector(1, 0, 0))))
	f.yAxis = parent1.attitude.TransformVector(parent2.attitude.TransformVector(f.attitude.TransformVector(NewVector(0, 1, 0))))
	f.zAxis = parent1.attitude.TransformVector(parent2.attitude.TransformVector(f.attitude.TransformVector(NewVector(0, 0, 1))))
}
