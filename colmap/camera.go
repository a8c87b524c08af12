package colmap

import (
	"fmt"

	"github.com/recolude/scan-colmap/pose"
)

// PinholeModel is the only camera model written. Every image shares a single
// camera with ID 1.
const (
	PinholeModel = "PINHOLE"
	CameraID     = 1
)

// Camera is a COLMAP PINHOLE camera.
type Camera struct {
	ID      int
	Model   string
	Width   int
	Height  int
	FocalX  float64
	FocalY  float64
	OffsetX float64
	OffsetY float64
}

func CameraFromIntrinsics(intrinsics pose.Intrinsics, width, height int) Camera {
	return Camera{
		ID:      CameraID,
		Model:   PinholeModel,
		Width:   width,
		Height:  height,
		FocalX:  intrinsics.FocalX(),
		FocalY:  intrinsics.FocalY(),
		OffsetX: intrinsics.OffsetX(),
		OffsetY: intrinsics.OffsetY(),
	}
}

func (c Camera) line() string {
	return fmt.Sprintf("%d %s %d %d %s %s %s %s",
		c.ID, c.Model, c.Width, c.Height,
		formatFloat(c.FocalX), formatFloat(c.FocalY),
		formatFloat(c.OffsetX), formatFloat(c.OffsetY),
	)
}
