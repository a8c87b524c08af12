package recording

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/EliCDavis/polyform/modeling"
	"github.com/EliCDavis/vector/vector3"
	"github.com/pkg/errors"
	rapio "github.com/recolude/rap/format/io"
	"github.com/recolude/rap/format/metadata"
)

// PlyToBinary loads a point cloud or triangle mesh, e.g. a fused or meshed
// reconstruction, scales it and re-encodes it for attaching to a recording.
// Triangle winding is flipped to match the left-handed frame.
func PlyToBinary(plyFile string, scale vector3.Float64) (rapio.Binary, error) {
	f, err := os.Open(plyFile)
	if err != nil {
		return rapio.Binary{}, errors.Wrapf(err, "opening %s", plyFile)
	}
	defer f.Close()

	mesh, err := ply.ReadMesh(f)
	if err != nil {
		return rapio.Binary{}, errors.Wrapf(err, "reading %s", plyFile)
	}

	scaled, err := scaleMesh(*mesh, scale)
	if err != nil {
		return rapio.Binary{}, errors.Wrapf(err, "converting %s", plyFile)
	}

	buf := bytes.Buffer{}
	if err := ply.WriteBinary(&buf, scaled); err != nil {
		return rapio.Binary{}, errors.Wrapf(err, "encoding %s", plyFile)
	}

	return rapio.NewBinary(filepath.Base(plyFile), buf.Bytes(), metadata.NewBlock(map[string]metadata.Property{
		"points": metadata.NewIntProperty(len(mesh.View().Indices)),
	})), nil
}

func scaleMesh(mesh modeling.Mesh, scale vector3.Float64) (modeling.Mesh, error) {
	switch mesh.Topology() {
	case modeling.PointTopology:
		view := mesh.View()
		return modeling.NewPointCloud(map[string][]vector3.Vector[float64]{
			modeling.PositionAttribute: view.Float3Data[modeling.PositionAttribute],
			modeling.ColorAttribute:    view.Float3Data[modeling.ColorAttribute],
		}, nil, nil, nil).
			Scale(vector3.Zero[float64](), scale), nil

	case modeling.TriangleTopology:
		return mesh.
			CopyFloat3Attribute(mesh, modeling.PositionAttribute).
			CopyFloat3Attribute(mesh, modeling.NormalAttribute).
			Scale(vector3.Zero[float64](), scale).
			FlipTriWinding(), nil
	}
	return modeling.Mesh{}, errors.Errorf("unimplemented topology: %d", mesh.Topology())
}
