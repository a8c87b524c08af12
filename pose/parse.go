package pose

import (
	"encoding/json"

	"github.com/EliCDavis/vector/vector3"
	"github.com/pkg/errors"
)

// ErrMalformedRecord is returned for pose JSON that is not an object, or is
// missing a field, or has an array field of the wrong length.
var ErrMalformedRecord = errors.New("malformed pose record")

const (
	transformLength  = 16
	intrinsicsLength = 9
)

// Intrinsics is the row-major 3x3 camera matrix as written by the scanning
// app: (fx·s, 0, cx·s, 0, fy·s, cy·s, 0, 0, s).
type Intrinsics [intrinsicsLength]float64

func (in Intrinsics) Scale() float64 { return in[8] }

// FocalX and friends divide out the trailing scale element.
func (in Intrinsics) FocalX() float64  { return in[0] / in.Scale() }
func (in Intrinsics) FocalY() float64  { return in[4] / in.Scale() }
func (in Intrinsics) OffsetX() float64 { return in[2] / in.Scale() }
func (in Intrinsics) OffsetY() float64 { return in[5] / in.Scale() }

// RecordSchema mirrors a frame_*.json file from the scanner's optimized_poses
// folder. Unknown fields are ignored.
type RecordSchema struct {
	CameraPoseARFrame []*float64 `json:"cameraPoseARFrame"`
	Intrinsics        []*float64 `json:"intrinsics"`
	Time              float64    `json:"time"`
}

// Record is a validated pose record.
type Record struct {
	// Transform is the row-major 4x4 camera-to-world matrix.
	Transform  [transformLength]float64
	Intrinsics Intrinsics
	Time       float64
}

func ParseRecord(data []byte) (Record, error) {
	var schema *RecordSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return Record{}, errors.Wrapf(ErrMalformedRecord, "decoding json: %s", err)
	}
	if schema == nil {
		return Record{}, errors.Wrap(ErrMalformedRecord, "record is null")
	}

	record := Record{Time: schema.Time}
	if err := copyElements("cameraPoseARFrame", schema.CameraPoseARFrame, record.Transform[:]); err != nil {
		return Record{}, err
	}
	if err := copyElements("intrinsics", schema.Intrinsics, record.Intrinsics[:]); err != nil {
		return Record{}, err
	}
	return record, nil
}

// copyElements fills dst from a decoded array, rejecting a wrong length or a
// null element.
func copyElements(field string, values []*float64, dst []float64) error {
	if len(values) != len(dst) {
		return errors.Wrapf(ErrMalformedRecord, "%s has %d elements, expected %d", field, len(values), len(dst))
	}
	for i, v := range values {
		if v == nil {
			return errors.Wrapf(ErrMalformedRecord, "%s[%d] is null", field, i)
		}
		dst[i] = *v
	}
	return nil
}

// Translation is the matrix entries (0,3), (1,3), (2,3).
func (r Record) Translation() vector3.Float64 {
	return vector3.New(r.Transform[3], r.Transform[7], r.Transform[11])
}

func (r Record) Rotation() Quaternion {
	m := r.Transform
	return QuaternionFromRotationMatrix([9]float64{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
	})
}

// Pose returns the record's camera pose in the Canonical convention.
func (r Record) Pose() Pose {
	return FromDeviceCapture(r.Translation(), r.Rotation())
}

// Parse decodes one pose record into its canonical pose and raw intrinsics.
func Parse(data []byte) (Pose, Intrinsics, error) {
	record, err := ParseRecord(data)
	if err != nil {
		return Pose{}, Intrinsics{}, err
	}
	return record.Pose(), record.Intrinsics, nil
}
