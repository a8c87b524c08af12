package recording

import (
	"bytes"

	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/EliCDavis/polyform/modeling"
	"github.com/EliCDavis/vector/vector3"
	"github.com/pkg/errors"
	rapio "github.com/recolude/rap/format/io"
	"github.com/recolude/rap/format/metadata"

	"github.com/recolude/scan-colmap/pose"
)

const cameraCloudName = "cameras.ply"

// cameraCloud places one point per camera, shaded from blue (first frame)
// to red (last frame).
func cameraCloud(poses []pose.Pose) modeling.Mesh {
	positionData := make([]vector3.Float64, 0, len(poses))
	colorData := make([]vector3.Float64, 0, len(poses))

	for i, p := range poses {
		c := p.Canonical().Position
		positionData = append(positionData, vector3.New(c.X(), c.Y(), c.Z()))

		progress := 0.
		if len(poses) > 1 {
			progress = float64(i) / float64(len(poses)-1)
		}
		colorData = append(colorData, vector3.New(255*progress, 0, 255*(1-progress)).DivByConstant(255.))
	}

	return modeling.NewPointCloud(
		map[string][]vector3.Vector[float64]{
			modeling.PositionAttribute: positionData,
			modeling.ColorAttribute:    colorData,
		},
		nil,
		nil,
		nil,
	)
}

// CameraCloudBinary encodes the camera positions as a binary PLY point cloud.
func CameraCloudBinary(poses []pose.Pose) (rapio.Binary, error) {
	buf := bytes.Buffer{}
	if err := ply.WriteBinary(&buf, cameraCloud(poses)); err != nil {
		return rapio.Binary{}, errors.Wrap(err, "encoding camera cloud")
	}

	return rapio.NewBinary(cameraCloudName, buf.Bytes(), metadata.NewBlock(map[string]metadata.Property{
		"points": metadata.NewIntProperty(len(poses)),
	})), nil
}
