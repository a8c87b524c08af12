package pose

import (
	"fmt"

	"github.com/EliCDavis/vector/vector3"
)

// Convention names the coordinate system a Pose is expressed in.
type Convention int

const (
	// Canonical is the internal left-handed, camera-to-world frame every
	// Pose is stored in. It is the device frame with the handedness
	// correction applied.
	Canonical Convention = iota

	// DeviceCapture is the right-handed, camera-to-world frame the scanning
	// application (ARKit) reports.
	DeviceCapture

	// ReconstructionTool is COLMAP's world-to-camera frame.
	ReconstructionTool
)

func (c Convention) String() string {
	switch c {
	case Canonical:
		return "canonical"
	case DeviceCapture:
		return "device-capture"
	case ReconstructionTool:
		return "reconstruction-tool"
	}
	return fmt.Sprintf("Convention(%d)", int(c))
}

// Pose is a position and unit rotation tagged with the convention the values
// are expressed in. Pose is a value type; none of its methods mutate.
type Pose struct {
	Position   vector3.Float64
	Rotation   Quaternion
	Convention Convention
}

// flipHandedness mirrors the Z axis. It is its own inverse, exactly.
func flipHandedness(position vector3.Float64, rotation Quaternion) (vector3.Float64, Quaternion) {
	return vector3.New(position.X(), position.Y(), -position.Z()),
		Quaternion{W: -rotation.W, X: rotation.X, Y: rotation.Y, Z: -rotation.Z}
}

// FromDeviceCapture builds a canonical Pose from a camera-to-world position and
// rotation in the device's right-handed frame.
func FromDeviceCapture(position vector3.Float64, rotation Quaternion) Pose {
	p, q := flipHandedness(position, rotation)
	return Pose{Position: p, Rotation: q.Normalized(), Convention: Canonical}
}

// FromReconstructionTool builds a canonical Pose from a COLMAP world-to-camera
// translation and rotation. It is the inverse of Pose.ReconstructionTool.
func FromReconstructionTool(translation vector3.Float64, rotation Quaternion) Pose {
	q := rotation.Normalized().Conjugate()

	p := q.Rotate(vector3.New(-translation.X(), -translation.Y(), -translation.Z()))
	p = vector3.New(p.X(), -p.Y(), p.Z())

	q = Quaternion{W: q.W, X: -q.X, Y: q.Y, Z: -q.Z}
	return Pose{Position: p, Rotation: q.Normalized(), Convention: Canonical}
}

// Canonical returns p expressed in the Canonical convention.
func (p Pose) Canonical() Pose {
	switch p.Convention {
	case DeviceCapture:
		return FromDeviceCapture(p.Position, p.Rotation)
	case ReconstructionTool:
		return FromReconstructionTool(p.Position, p.Rotation)
	}
	return p
}

// DeviceCapture renders p in the device's right-handed convention.
func (p Pose) DeviceCapture() Pose {
	c := p.Canonical()
	position, rotation := flipHandedness(c.Position, c.Rotation)
	return Pose{Position: position, Rotation: rotation.Normalized(), Convention: DeviceCapture}
}

// ReconstructionTool renders p as a COLMAP world-to-camera pose. The Y axis
// and the X/Z rotation components are mirrored, the rotation is inverted and
// the translation is re-derived as R·(-position).
func (p Pose) ReconstructionTool() Pose {
	c := p.Canonical()

	position := vector3.New(c.Position.X(), -c.Position.Y(), c.Position.Z())

	rotation := Quaternion{W: c.Rotation.W, X: -c.Rotation.X, Y: c.Rotation.Y, Z: -c.Rotation.Z}
	rotation = rotation.Normalized().Conjugate()

	position = rotation.Rotate(vector3.New(-position.X(), -position.Y(), -position.Z()))

	return Pose{Position: position, Rotation: rotation.Normalized(), Convention: ReconstructionTool}
}

// Convert renders p in the target convention.
func Convert(p Pose, target Convention) Pose {
	switch target {
	case DeviceCapture:
		return p.DeviceCapture()
	case ReconstructionTool:
		return p.ReconstructionTool()
	}
	return p.Canonical()
}

// Translate returns p in the Canonical convention, moved by offset.
func (p Pose) Translate(offset vector3.Float64) Pose {
	c := p.Canonical()
	c.Position = c.Position.Add(offset)
	return c
}

func (p Pose) EulerZXYDegrees() vector3.Float64 {
	return p.Canonical().Rotation.EulerZXYDegrees()
}
