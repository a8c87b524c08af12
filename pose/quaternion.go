package pose

import (
	"math"

	"github.com/EliCDavis/vector/vector3"
	"gonum.org/v1/gonum/num/quat"
)

// Quaternion is a rotation quaternion with W as the scalar part.
type Quaternion struct {
	W, X, Y, Z float64
}

func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

func (q Quaternion) number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

func fromNumber(n quat.Number) Quaternion {
	return Quaternion{W: n.Real, X: n.Imag, Y: n.Jmag, Z: n.Kmag}
}

func (q Quaternion) Norm() float64 {
	return quat.Abs(q.number())
}

// Normalized returns q scaled to unit length. A zero quaternion becomes the
// identity.
func (q Quaternion) Normalized() Quaternion {
	n := q.Norm()
	if n == 0 {
		return IdentityQuaternion()
	}
	return fromNumber(quat.Scale(1/n, q.number()))
}

// Conjugate is the inverse of a unit quaternion.
func (q Quaternion) Conjugate() Quaternion {
	return fromNumber(quat.Conj(q.number()))
}

func (q Quaternion) mul(other Quaternion) Quaternion {
	return fromNumber(quat.Mul(q.number(), other.number()))
}

// Rotate applies q to v as q·v·q*. q is expected to be normalized.
func (q Quaternion) Rotate(v vector3.Float64) vector3.Float64 {
	r := q.mul(Quaternion{X: v.X(), Y: v.Y(), Z: v.Z()}).mul(q.Conjugate())
	return vector3.New(r.X, r.Y, r.Z)
}

// QuaternionFromRotationMatrix converts the row-major 3x3 rotation m into a
// quaternion. The branch is picked from the trace and the dominant diagonal
// element so the divisor never approaches zero, including near 180 degree
// rotations. m must be a pure (unscaled) rotation.
func QuaternionFromRotationMatrix(m [9]float64) Quaternion {
	m11, m12, m13 := m[0], m[1], m[2]
	m21, m22, m23 := m[3], m[4], m[5]
	m31, m32, m33 := m[6], m[7], m[8]

	trace := m11 + m22 + m33

	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		return Quaternion{
			W: 0.25 / s,
			X: (m32 - m23) * s,
			Y: (m13 - m31) * s,
			Z: (m21 - m12) * s,
		}
	case m11 > m22 && m11 > m33:
		s := 2 * math.Sqrt(1+m11-m22-m33)
		return Quaternion{
			W: (m32 - m23) / s,
			X: 0.25 * s,
			Y: (m12 + m21) / s,
			Z: (m13 + m31) / s,
		}
	case m22 > m33:
		s := 2 * math.Sqrt(1+m22-m11-m33)
		return Quaternion{
			W: (m13 - m31) / s,
			X: (m12 + m21) / s,
			Y: 0.25 * s,
			Z: (m23 + m32) / s,
		}
	default:
		s := 2 * math.Sqrt(1+m33-m11-m22)
		return Quaternion{
			W: (m21 - m12) / s,
			X: (m13 + m31) / s,
			Y: (m23 + m32) / s,
			Z: 0.25 * s,
		}
	}
}

// EulerZXYDegrees returns the rotation as Euler angles in degrees, applied in
// Z, X, Y order (Unity's convention).
func (q Quaternion) EulerZXYDegrees() vector3.Float64 {
	q = q.Normalized()
	sinX := 2 * (q.W*q.X - q.Y*q.Z)
	sinX = math.Max(-1, math.Min(1, sinX))

	x := math.Asin(sinX)
	y := math.Atan2(2*(q.W*q.Y+q.X*q.Z), 1-2*(q.X*q.X+q.Y*q.Y))
	z := math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.X*q.X+q.Z*q.Z))

	toDeg := 180. / math.Pi
	return vector3.New(x*toDeg, y*toDeg, z*toDeg)
}
