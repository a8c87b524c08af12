package colmap

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/EliCDavis/vector/vector3"
	"github.com/pkg/errors"

	"github.com/recolude/scan-colmap/pose"
	"github.com/recolude/scan-colmap/scan"
)

// ErrNoFrames is returned when an operation needs at least one frame.
var ErrNoFrames = errors.New("frame set is empty")

type Options struct {
	// Recenter subtracts the mean camera position before conversion.
	Recenter bool

	// Probe defaults to scan.ImageDimensions.
	Probe scan.DimensionProbe
}

// Image is one entry of images.txt.
type Image struct {
	ID       int
	Pose     pose.Pose
	CameraID int
	Name     string
}

func (img Image) line() string {
	q, t := img.Pose.Rotation, img.Pose.Position
	return strings.Join([]string{
		fmt.Sprint(img.ID),
		formatFloat(q.W), formatFloat(q.X), formatFloat(q.Y), formatFloat(q.Z),
		formatFloat(t.X()), formatFloat(t.Y()), formatFloat(t.Z()),
		fmt.Sprint(img.CameraID),
		img.Name,
	}, " ")
}

// Model is a COLMAP sparse text model without 3D points.
type Model struct {
	// Camera is nil for an empty frame set.
	Camera *Camera
	Images []Image

	// ImagePaths are the source images in image ID order, for the caller to
	// copy next to the model.
	ImagePaths []string
}

func (m Model) CamerasText() string {
	lines := []string{
		"# Camera list with one line of data per camera:",
		"#   CAMERA_ID, MODEL, WIDTH, HEIGHT, PARAMS[]",
	}
	if m.Camera == nil {
		lines = append(lines, "# Number of cameras: 0")
		return strings.Join(lines, "\n")
	}
	lines = append(lines, "# Number of cameras: 1", m.Camera.line())
	return strings.Join(lines, "\n")
}

func (m Model) ImagesText() string {
	lines := []string{
		"# Image list with two lines of data per image:",
		"#   IMAGE_ID, QW, QX, QY, QZ, TX, TY, TZ, CAMERA_ID, NAME",
		"#   <EMPTY LINE>",
		fmt.Sprintf("# Number of images: %d", len(m.Images)),
	}
	for _, img := range m.Images {
		lines = append(lines, img.line(), "")
	}
	return strings.Join(lines, "\n")
}

// PointsText is always empty; COLMAP triangulates the points itself.
func (m Model) PointsText() string {
	return ""
}

// Export converts a frame set into a COLMAP model. It reads image headers
// through the probe but never writes.
func Export(frames scan.FrameSet, opts Options) (Model, error) {
	probe := opts.Probe
	if probe == nil {
		probe = scan.ImageDimensions
	}

	model := Model{
		Images:     make([]Image, 0, len(frames)),
		ImagePaths: frames.ImagePaths(),
	}
	if len(frames) == 0 {
		return model, nil
	}

	records := make([]pose.Record, len(frames))
	poses := make([]pose.Pose, len(frames))
	for i, frame := range frames {
		record, err := frame.Record()
		if err != nil {
			return Model{}, err
		}
		records[i] = record
		poses[i] = record.Pose()
	}

	if opts.Recenter {
		poses = Recenter(poses)
	}

	width, height, err := probe(frames[0].ImagePath)
	if err != nil {
		return Model{}, err
	}
	camera := CameraFromIntrinsics(records[0].Intrinsics, width, height)
	model.Camera = &camera

	for i, p := range poses {
		model.Images = append(model.Images, Image{
			ID:       i + 1,
			Pose:     p.ReconstructionTool(),
			CameraID: camera.ID,
			Name:     filepath.Base(frames[i].ImagePath),
		})
	}
	return model, nil
}

// Centroid is the mean canonical position of poses.
func Centroid(poses []pose.Pose) (vector3.Float64, error) {
	if len(poses) == 0 {
		return vector3.Zero[float64](), ErrNoFrames
	}
	sum := vector3.Zero[float64]()
	for _, p := range poses {
		sum = sum.Add(p.Canonical().Position)
	}
	return sum.DivByConstant(float64(len(poses))), nil
}

// Recenter returns copies of poses shifted so their centroid is the origin.
func Recenter(poses []pose.Pose) []pose.Pose {
	mean, err := Centroid(poses)
	if err != nil {
		return poses
	}
	offset := vector3.New(-mean.X(), -mean.Y(), -mean.Z())

	out := make([]pose.Pose, len(poses))
	for i, p := range poses {
		out[i] = p.Translate(offset)
	}
	return out
}
