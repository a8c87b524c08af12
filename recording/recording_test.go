package recording

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/EliCDavis/polyform/modeling"
	"github.com/EliCDavis/vector/vector3"
	"github.com/pkg/errors"
	"github.com/recolude/rap/format"
	"github.com/recolude/rap/format/encoding"
	eulEnc "github.com/recolude/rap/format/encoding/euler"
	eventEnc "github.com/recolude/rap/format/encoding/event"
	posEnc "github.com/recolude/rap/format/encoding/position"
	rapio "github.com/recolude/rap/format/io"
	"github.com/recolude/rap/format/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recolude/scan-colmap/pose"
	"github.com/recolude/scan-colmap/scan"
)

func frameAt(stem string, x, y, z, time float64) scan.Frame {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return scan.Frame{
		Stem:      stem,
		ImagePath: "/scan/images_resized/" + stem + ".jpg",
		PosePath:  "/scan/optimized_poses/" + stem + ".json",
		PoseRaw: []byte(`{
			"cameraPoseARFrame": [1,0,0,` + f(x) + `, 0,1,0,` + f(y) + `, 0,0,1,` + f(z) + `, 0,0,0,1],
			"intrinsics": [1500,0,960,0,1500,720,0,0,3],
			"time": ` + f(time) + `
		}`),
	}
}

func fixedProbe(string) (int, int, error) { return 640, 480, nil }

func TestCaptureTimes(t *testing.T) {
	assert.Equal(t, []float64{0, 1, 2}, captureTimes(make([]pose.Record, 3)))

	records := []pose.Record{{Time: 105.5}, {Time: 100}, {Time: 101}}
	assert.Equal(t, []float64{5.5, 0, 1}, captureTimes(records))

	assert.Empty(t, captureTimes(nil))
}

func TestFromFrames(t *testing.T) {
	frames := scan.FrameSet{
		frameAt("frame_00000", 0, 0, 0, 10),
		frameAt("frame_00001", 1, 0, 0, 10.5),
		frameAt("frame_00002", 1, 1, 0, 11),
	}

	rec, err := FromFrames("scan", frames, Options{Probe: fixedProbe})
	require.NoError(t, err)

	assert.Equal(t, "scan", rec.ID())
	assert.Equal(t, "scan", rec.Name())
	assert.Len(t, rec.Binaries(), 1)
	require.Len(t, rec.Recordings(), 1)

	camera := rec.Recordings()[0]
	assert.Equal(t, "camera", camera.ID())
	require.Len(t, camera.CaptureCollections(), 3)
	assert.Equal(t, "Position", camera.CaptureCollections()[0].Name())
	assert.Equal(t, "Rotation", camera.CaptureCollections()[1].Name())
	assert.Equal(t, "Custom Event", camera.CaptureCollections()[2].Name())
	assert.Equal(t, 3, camera.CaptureCollections()[0].Length())

	out := bytes.Buffer{}
	writer := rapio.NewWriter(
		[]encoding.Encoder{
			posEnc.NewEncoder(posEnc.Oct24),
			eulEnc.NewEncoder(eulEnc.Raw16),
			eventEnc.NewEncoder(),
		},
		true,
		&out,
		rapio.BST16,
	)
	n, err := writer.Write(rec)
	require.NoError(t, err)
	assert.NotZero(t, n)
}

func TestFromFrames_Attachments(t *testing.T) {
	extra := rapio.NewBinary("extra.bin", []byte{1, 2, 3}, metadata.NewBlock(map[string]metadata.Property{}))
	rec, err := FromFrames("scan", scan.FrameSet{frameAt("a", 0, 0, 0, 0)}, Options{
		Probe:       fixedProbe,
		Attachments: []format.Binary{extra},
	})
	require.NoError(t, err)
	require.Len(t, rec.Binaries(), 2)
	assert.Equal(t, "cameras.ply", rec.Binaries()[0].Name())
	assert.Equal(t, "extra.bin", rec.Binaries()[1].Name())
}

func TestFromFrames_Empty(t *testing.T) {
	rec, err := FromFrames("empty", nil, Options{Probe: func(string) (int, int, error) {
		return 0, 0, errors.New("probe must not be called")
	}})
	require.NoError(t, err)
	require.Len(t, rec.Recordings(), 1)
	assert.Equal(t, 0, rec.Recordings()[0].CaptureCollections()[0].Length())
}

func TestFromFrames_Errors(t *testing.T) {
	bad := frameAt("bad", 0, 0, 0, 0)
	bad.PoseRaw = []byte(`{}`)
	_, err := FromFrames("scan", scan.FrameSet{bad}, Options{Probe: fixedProbe})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pose.ErrMalformedRecord))

	_, err = FromFrames("scan", scan.FrameSet{frameAt("a", 0, 0, 0, 0)}, Options{Probe: func(string) (int, int, error) {
		return 0, 0, errors.New("unreadable")
	}})
	require.EqualError(t, err, "unreadable")
}

func TestCameraCloud(t *testing.T) {
	poses := []pose.Pose{
		pose.FromDeviceCapture(vector3.New(1., 2., 3.), pose.IdentityQuaternion()),
		pose.FromDeviceCapture(vector3.New(4., 5., 6.), pose.IdentityQuaternion()),
	}

	buf := bytes.Buffer{}
	require.NoError(t, ply.WriteBinary(&buf, cameraCloud(poses)))

	mesh, err := ply.ReadMesh(&buf)
	require.NoError(t, err)
	assert.Equal(t, modeling.PointTopology, mesh.Topology())

	positions := mesh.View().Float3Data[modeling.PositionAttribute]
	require.Len(t, positions, 2)
	assert.InDelta(t, -3., positions[0].Z(), 1e-6)
	assert.InDelta(t, 4., positions[1].X(), 1e-6)

	colors := mesh.View().Float3Data[modeling.ColorAttribute]
	require.Len(t, colors, 2)
	assert.InDelta(t, 1., colors[0].Z(), 1e-2)
	assert.InDelta(t, 1., colors[1].X(), 1e-2)

	binary, err := CameraCloudBinary(poses)
	require.NoError(t, err)
	assert.Equal(t, "cameras.ply", binary.Name())
}

func TestPlyToBinary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fused.ply")

	cloud := modeling.NewPointCloud(map[string][]vector3.Vector[float64]{
		modeling.PositionAttribute: {vector3.New(1., 1., 1.), vector3.New(2., 2., 2.)},
		modeling.ColorAttribute:    {vector3.New(1., 0., 0.), vector3.New(0., 1., 0.)},
	}, nil, nil, nil)

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, ply.WriteBinary(f, cloud))
	require.NoError(t, f.Close())

	binary, err := PlyToBinary(path, vector3.New(2., 2., 2.))
	require.NoError(t, err)
	assert.Equal(t, "fused.ply", binary.Name())

	_, err = PlyToBinary(filepath.Join(dir, "missing.ply"), vector3.New(1., 1., 1.))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.ply")
}
