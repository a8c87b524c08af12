package scan

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/recolude/scan-colmap/pose"
)

// ErrDuplicateStem is returned when two files in the same directory share a
// stem, e.g. frame_00001.jpg and frame_00001.png.
var ErrDuplicateStem = errors.New("duplicate file stem")

// Frame pairs an image with the raw content of its pose file.
type Frame struct {
	Stem      string
	ImagePath string
	PosePath  string
	PoseRaw   []byte
}

// Record parses the frame's pose file.
func (f Frame) Record() (pose.Record, error) {
	record, err := pose.ParseRecord(f.PoseRaw)
	if err != nil {
		return pose.Record{}, errors.Wrapf(err, "parsing %s", f.PosePath)
	}
	return record, nil
}

// FrameSet is ordered lexicographically by stem. A frame's position in the
// set is its 0-based image index.
type FrameSet []Frame

func (fs FrameSet) ImagePaths() []string {
	paths := make([]string, len(fs))
	for i, f := range fs {
		paths[i] = f.ImagePath
	}
	return paths
}

type LoaderOption func(*Loader)

func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithConcurrency bounds the number of pose files read at once.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		l.concurrency = n
	}
}

// Loader discovers the frames of one scan folder. The first successful Load
// is memoized; later calls return it without touching the filesystem.
type Loader struct {
	folder      Folder
	logger      *zap.Logger
	concurrency int

	mu     sync.Mutex
	frames FrameSet
	loaded bool
}

func NewLoader(folder Folder, opts ...LoaderOption) *Loader {
	l := &Loader{
		folder:      folder,
		logger:      zap.NewNop(),
		concurrency: 16,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load pairs images with pose files by stem. Any listing or read failure
// fails the whole load. An empty intersection is not an error.
func (l *Loader) Load(ctx context.Context) (FrameSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return l.frames, nil
	}

	frames, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	l.frames = frames
	l.loaded = true
	return frames, nil
}

func (l *Loader) load(ctx context.Context) (FrameSet, error) {
	var images, poses map[string]string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		images, err = listStems(gctx, l.folder.ImagesDir)
		return err
	})
	g.Go(func() (err error) {
		poses, err = listStems(gctx, l.folder.PosesDir)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stems := make([]string, 0, len(images))
	for stem := range images {
		if _, ok := poses[stem]; ok {
			stems = append(stems, stem)
		}
	}
	sort.Strings(stems)

	l.logger.Debug("matched frames",
		zap.Int("images", len(images)),
		zap.Int("poses", len(poses)),
		zap.Int("frames", len(stems)),
	)

	frames := make(FrameSet, len(stems))
	g, gctx = errgroup.WithContext(ctx)
	if l.concurrency > 0 {
		g.SetLimit(l.concurrency)
	}
	for i, stem := range stems {
		frame := Frame{
			Stem:      stem,
			ImagePath: images[stem],
			PosePath:  poses[stem],
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(frame.PosePath)
			if err != nil {
				return errors.Wrapf(err, "reading pose file %s", frame.PosePath)
			}
			frame.PoseRaw = data
			frames[i] = frame
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return frames, nil
}

// listStems maps each file stem in dir to the file's absolute path. Hidden
// files and sub-directories are skipped.
func listStems(ctx context.Context, dir string) (map[string]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", dir)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", abs)
	}

	stems := make(map[string]string, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if existing, ok := stems[stem]; ok {
			return nil, errors.Wrapf(ErrDuplicateStem, "%s and %s in %s", filepath.Base(existing), name, abs)
		}
		stems[stem] = filepath.Join(abs, name)
	}
	return stems, nil
}
