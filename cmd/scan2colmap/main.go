package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/EliCDavis/vector/vector3"
	"github.com/pkg/errors"
	"github.com/recolude/rap/format"
	"github.com/recolude/rap/format/encoding"
	eulEnc "github.com/recolude/rap/format/encoding/euler"
	eventEnc "github.com/recolude/rap/format/encoding/event"
	posEnc "github.com/recolude/rap/format/encoding/position"
	rapio "github.com/recolude/rap/format/io"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/recolude/scan-colmap/colmap"
	"github.com/recolude/scan-colmap/recording"
	"github.com/recolude/scan-colmap/scan"
)

const envPrefix = "SCAN2COLMAP_"

func scanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Usage:    "path to the scan folder exported by the scanner app",
			EnvVars:  []string{envPrefix + "INPUT"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "images-dir",
			Usage:   "image directory, relative to the scan folder",
			Value:   scan.DefaultImagesDir,
			EnvVars: []string{envPrefix + "IMAGES_DIR"},
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Usage:   "maximum number of pose files read at once",
			Value:   16,
			EnvVars: []string{envPrefix + "CONCURRENCY"},
		},
		&cli.StringFlag{
			Name:    "poses-dir",
			Usage:   "pose JSON directory, relative to the scan folder",
			Value:   scan.DefaultPosesDir,
			EnvVars: []string{envPrefix + "POSES_DIR"},
		},
	}
}

type runner struct {
	logger *zap.Logger
}

func (r *runner) loadFrames(c *cli.Context) (scan.FrameSet, error) {
	logger := r.logger
	input := c.String("input")
	folder := scan.NewFolder(input, c.String("images-dir"), c.String("poses-dir"))

	loader := scan.NewLoader(folder,
		scan.WithLogger(logger),
		scan.WithConcurrency(c.Int("concurrency")),
	)
	frames, err := loader.Load(c.Context)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded scan", zap.String("input", input), zap.Int("frames", len(frames)))
	return frames, nil
}

// checkOutput refuses an output directory that is, or contains, the scan
// folder, since the workspace is deleted before writing.
func checkOutput(input, output string) error {
	absInput, err := filepath.Abs(input)
	if err != nil {
		return errors.Wrapf(err, "resolving %s", input)
	}
	absOutput, err := filepath.Abs(output)
	if err != nil {
		return errors.Wrapf(err, "resolving %s", output)
	}

	rel, err := filepath.Rel(absOutput, absInput)
	if err != nil {
		return nil
	}
	if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
		return errors.Errorf("output %s must not contain the scan folder %s", output, input)
	}
	return nil
}

func (r *runner) colmapModel(c *cli.Context) error {
	frames, err := r.loadFrames(c)
	if err != nil {
		return err
	}

	model, err := colmap.Export(frames, colmap.Options{Recenter: c.Bool("recenter")})
	if err != nil {
		return err
	}

	ws := colmap.Workspace{Root: c.String("output"), Logger: r.logger}
	if err := checkOutput(c.String("input"), ws.Root); err != nil {
		return err
	}
	if err := ws.Reset(); err != nil {
		return err
	}
	if err := ws.CopyImages(c.Context, model.ImagePaths); err != nil {
		return err
	}
	if err := ws.WriteModel(model); err != nil {
		return err
	}

	r.logger.Info("wrote colmap model", zap.String("dir", ws.SparseDir()), zap.Int("images", len(model.Images)))
	return nil
}

func (r *runner) rap(c *cli.Context) error {
	frames, err := r.loadFrames(c)
	if err != nil {
		return err
	}

	var attachments []format.Binary
	for _, plyFile := range c.StringSlice("ply") {
		scale := c.Float64("ply-scale")
		binary, err := recording.PlyToBinary(plyFile, vector3.New(scale, scale, scale))
		if err != nil {
			return err
		}
		attachments = append(attachments, binary)
	}

	name := filepath.Base(filepath.Clean(c.String("input")))
	rec, err := recording.FromFrames(name, frames, recording.Options{Attachments: attachments})
	if err != nil {
		return err
	}

	f, err := os.Create(c.String("out"))
	if err != nil {
		return err
	}
	defer f.Close()

	rapWriter := rapio.NewWriter(
		[]encoding.Encoder{
			posEnc.NewEncoder(posEnc.Oct24),
			eulEnc.NewEncoder(eulEnc.Raw16),
			eventEnc.NewEncoder(),
		},
		true,
		f,
		rapio.BST16,
	)

	if _, err = rapWriter.Write(rec); err != nil {
		return errors.Wrapf(err, "writing %s", c.String("out"))
	}
	r.logger.Info("wrote recording", zap.String("out", c.String("out")), zap.Int("attachments", len(attachments)))
	return nil
}

func (r *runner) app() *cli.App {
	return &cli.App{
		Name:  "scan2colmap",
		Usage: "Converts 3D Scanner App captures into COLMAP models and RAP recordings",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "enable debug logging",
				EnvVars: []string{envPrefix + "VERBOSE"},
			},
		},
		Before: func(c *cli.Context) error {
			if !c.Bool("verbose") {
				return nil
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			r.logger = logger
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "colmap-model",
				Usage: "writes a sparse COLMAP text model and copies the scan's images",
				Flags: append(scanFlags(),
					&cli.StringFlag{
						Name:     "output",
						Usage:    "COLMAP workspace directory; replaced if it exists",
						EnvVars:  []string{envPrefix + "OUTPUT"},
						Required: true,
					},
					&cli.BoolFlag{
						Name:    "recenter",
						Usage:   "move the mean camera position to the origin",
						EnvVars: []string{envPrefix + "RECENTER"},
					},
				),
				Action: r.colmapModel,
			},
			{
				Name:  "rap",
				Usage: "writes the camera trajectory as a RAP recording",
				Flags: append(scanFlags(),
					&cli.StringFlag{
						Name:     "out",
						Usage:    "path to rap file",
						EnvVars:  []string{envPrefix + "OUT"},
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "ply",
						Usage: "PLY point cloud or mesh to attach, e.g. a fused reconstruction",
					},
					&cli.Float64Flag{
						Name:  "ply-scale",
						Usage: "uniform scale applied to attached PLY files",
						Value: 1,
					},
				),
				Action: r.rap,
			},
		},
	}
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	r := &runner{logger: logger}

	if err := r.app().Run(os.Args); err != nil {
		r.logger.Fatal("command failed", zap.Error(err))
	}
	_ = r.logger.Sync()
}
