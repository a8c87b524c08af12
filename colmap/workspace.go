package colmap

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	camerasFile = "cameras.txt"
	imagesFile  = "images.txt"
	pointsFile  = "points3D.txt"
)

// Workspace is the directory layout COLMAP's point_triangulator expects:
// images next to a sparse text model.
type Workspace struct {
	Root   string
	Logger *zap.Logger
}

func (w Workspace) SparseDir() string { return filepath.Join(w.Root, "sparse") }
func (w Workspace) ImagesDir() string { return filepath.Join(w.Root, "images") }

func (w Workspace) logger() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}

// Reset deletes anything at Root and recreates the empty layout.
func (w Workspace) Reset() error {
	if err := os.RemoveAll(w.Root); err != nil {
		return errors.Wrapf(err, "removing %s", w.Root)
	}
	for _, dir := range []string{w.Root, w.SparseDir(), w.ImagesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	return nil
}

// WriteModel writes cameras.txt, images.txt and points3D.txt into the sparse
// directory.
func (w Workspace) WriteModel(m Model) error {
	files := []struct {
		name    string
		content string
	}{
		{camerasFile, m.CamerasText()},
		{imagesFile, m.ImagesText()},
		{pointsFile, m.PointsText()},
	}
	for _, f := range files {
		path := filepath.Join(w.SparseDir(), f.name)
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
		w.logger().Debug("wrote model file", zap.String("path", path), zap.Int("bytes", len(f.content)))
	}
	return nil
}

// CopyImages copies each source image into the images directory under its
// base name.
func (w Workspace) CopyImages(ctx context.Context, paths []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, src := range paths {
		dst := filepath.Join(w.ImagesDir(), filepath.Base(src))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return copyFile(src, dst)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	w.logger().Info("copied images", zap.Int("count", len(paths)), zap.String("dir", w.ImagesDir()))
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "opening %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "creating %s", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copying %s to %s", src, dst)
	}
	return errors.Wrapf(out.Close(), "closing %s", dst)
}
