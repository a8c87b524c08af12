package recording

import (
	"path/filepath"
	"sort"

	"github.com/recolude/rap/format"
	"github.com/recolude/rap/format/collection/euler"
	"github.com/recolude/rap/format/collection/event"
	"github.com/recolude/rap/format/collection/position"
	"github.com/recolude/rap/format/metadata"

	"github.com/recolude/scan-colmap/pose"
	"github.com/recolude/scan-colmap/scan"
)

const cameraSubjectID = "camera"

type Options struct {
	// Probe reads the first image's size for the camera metadata. Defaults
	// to scan.ImageDimensions.
	Probe scan.DimensionProbe

	// Attachments are extra binaries stored on the root recording, e.g. a
	// mesh from PlyToBinary.
	Attachments []format.Binary
}

type SortPositionByTime []position.Capture

func (a SortPositionByTime) Len() int           { return len(a) }
func (a SortPositionByTime) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a SortPositionByTime) Less(i, j int) bool { return a[i].Time() < a[j].Time() }

type SortRotationByTime []euler.Capture

func (a SortRotationByTime) Len() int           { return len(a) }
func (a SortRotationByTime) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a SortRotationByTime) Less(i, j int) bool { return a[i].Time() < a[j].Time() }

type SortEventByTime []event.Capture

func (a SortEventByTime) Len() int           { return len(a) }
func (a SortEventByTime) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a SortEventByTime) Less(i, j int) bool { return a[i].Time() < a[j].Time() }

func framesHaveTimestamp(records []pose.Record) bool {
	for _, r := range records {
		if r.Time != 0 {
			return true
		}
	}
	return false
}

// captureTimes are relative to the earliest frame. Without any recorded time
// the frame index is used.
func captureTimes(records []pose.Record) []float64 {
	times := make([]float64, len(records))
	if !framesHaveTimestamp(records) {
		for i := range records {
			times[i] = float64(i)
		}
		return times
	}

	start := records[0].Time
	for _, r := range records {
		if r.Time < start {
			start = r.Time
		}
	}
	for i, r := range records {
		times[i] = r.Time - start
	}
	return times
}

// FromFrames builds a RAP recording of the scanning camera's path. Poses are
// written in the canonical left-handed frame.
func FromFrames(name string, frames scan.FrameSet, opts Options) (format.Recording, error) {
	probe := opts.Probe
	if probe == nil {
		probe = scan.ImageDimensions
	}

	records := make([]pose.Record, len(frames))
	poses := make([]pose.Pose, len(frames))
	for i, frame := range frames {
		record, err := frame.Record()
		if err != nil {
			return nil, err
		}
		records[i] = record
		poses[i] = record.Pose()
	}

	cameraMetadata := map[string]metadata.Property{
		"Projection Type": metadata.NewStringProperty("PINHOLE"),
	}
	if len(frames) > 0 {
		width, height, err := probe(frames[0].ImagePath)
		if err != nil {
			return nil, err
		}
		intrinsics := records[0].Intrinsics
		cameraMetadata["Width"] = metadata.NewIntProperty(width)
		cameraMetadata["Height"] = metadata.NewIntProperty(height)
		cameraMetadata["Focal X"] = metadata.NewFloat32Property(float32(intrinsics.FocalX()))
		cameraMetadata["Focal Y"] = metadata.NewFloat32Property(float32(intrinsics.FocalY()))
		cameraMetadata["Offset X"] = metadata.NewFloat32Property(float32(intrinsics.OffsetX()))
		cameraMetadata["Offset Y"] = metadata.NewFloat32Property(float32(intrinsics.OffsetY()))
	}

	cloud, err := CameraCloudBinary(poses)
	if err != nil {
		return nil, err
	}
	binaries := append([]format.Binary{cloud}, opts.Attachments...)

	return format.NewRecording(
		name,
		name,
		[]format.CaptureCollection{},
		[]format.Recording{cameraSubject(frames, records, poses, cameraMetadata)},
		metadata.NewBlock(map[string]metadata.Property{
			"frames": metadata.NewIntProperty(len(frames)),
		}),
		binaries,
		[]format.BinaryReference{},
	), nil
}

func cameraSubject(frames scan.FrameSet, records []pose.Record, poses []pose.Pose, cameraMetadata map[string]metadata.Property) format.Recording {
	times := captureTimes(records)

	positionCaptures := make([]position.Capture, 0, len(poses))
	rotationCaptures := make([]euler.Capture, 0, len(poses))
	eventCaptures := make([]event.Capture, 0, len(poses))

	for i, p := range poses {
		t := times[i]
		rot := p.EulerZXYDegrees()

		positionCaptures = append(positionCaptures, position.NewCapture(t, p.Position.X(), p.Position.Y(), p.Position.Z()))
		rotationCaptures = append(rotationCaptures, euler.NewEulerZXYCapture(t, rot.X(), rot.Y(), rot.Z()))
		eventCaptures = append(eventCaptures, event.NewCapture(t, frames[i].Stem, metadata.NewBlock(map[string]metadata.Property{
			"Image": metadata.NewStringProperty(filepath.Base(frames[i].ImagePath)),
			"Index": metadata.NewIntProperty(i),
		})))
	}

	sort.Sort(SortPositionByTime(positionCaptures))
	sort.Sort(SortRotationByTime(rotationCaptures))
	sort.Sort(SortEventByTime(eventCaptures))

	return format.NewRecording(
		cameraSubjectID,
		"Camera",
		[]format.CaptureCollection{
			position.NewCollection("Position", positionCaptures),
			euler.NewCollection("Rotation", rotationCaptures),
			event.NewCollection("Custom Event", eventCaptures),
		},
		nil,
		metadata.NewBlock(cameraMetadata),
		[]format.Binary{},
		[]format.BinaryReference{},
	)
}
