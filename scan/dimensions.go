package scan

import (
	"bufio"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DimensionProbe returns the pixel size of an image file.
type DimensionProbe func(path string) (width, height int, err error)

var _ DimensionProbe = ImageDimensions

// ImageDimensions reads the pixel width and height from the image header
// without decoding the pixel data.
func ImageDimensions(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "opening image %s", path)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return 0, 0, errors.Wrapf(err, "reading dimensions of %s", path)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, errors.Errorf("%s image %s has invalid dimensions %dx%d", format, path, cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}
