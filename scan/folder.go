package scan

import "path/filepath"

const (
	DefaultImagesDir = "images_resized"
	DefaultPosesDir  = "optimized_poses"
)

// Folder points at the image and pose directories of one scan.
type Folder struct {
	ImagesDir string
	PosesDir  string
}

// NewFolder joins the image and pose directory names onto root. Empty names
// fall back to the scanner's export layout.
func NewFolder(root, imagesDir, posesDir string) Folder {
	if imagesDir == "" {
		imagesDir = DefaultImagesDir
	}
	if posesDir == "" {
		posesDir = DefaultPosesDir
	}
	return Folder{
		ImagesDir: filepath.Join(root, imagesDir),
		PosesDir:  filepath.Join(root, posesDir),
	}
}
