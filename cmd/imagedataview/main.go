package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"

	"imagedataview/pkg/config"
	"imagedataview/pkg/orientation"
	"imagedataview/pkg/roi"
	"imagedataview/pkg/slicesel"
	"imagedataview/pkg/visualization"
	"imagedataview/pkg/volume"
	"imagedataview/pkg/voxel"
)

// The imagedataview version number. Set at build.
var version = "v0.1.0"

type options struct {
	Config      string `cli:"" env:"IMAGEDATAVIEW_CONFIG"      help:"YAML configuration file."`
	InitConfig  bool   `cli:"" env:"-"                         help:"Write the default configuration to the config file and exit."`
	Input       string `cli:"" env:"IMAGEDATAVIEW_INPUT"       help:"Directory containing numbered 2D slices. A phantom is generated when empty."`
	Output      string `cli:"" env:"IMAGEDATAVIEW_OUTPUT"      help:"Directory to save rendered images."`
	Orientation string `cli:"" env:"IMAGEDATAVIEW_ORIENTATION" help:"Target orientation (axial|sagittal|coronal)."`
	LogLevel    string `cli:"" env:"IMAGEDATAVIEW_LOG_LEVEL"   help:"Log level (debug|info|warning|error)."`
	LogIndent   bool   `cli:"" env:"IMAGEDATAVIEW_LOG_INDENT"  help:"Indent logs."`
	Version     bool   `cli:"" env:"-"                         help:"Show version."`
	Help        bool   `cli:"" env:"-"                         help:"Show help."`
}

func main() {
	opts := options{
		Config: "config.yaml",
	}

	cli.Register().
		Help("Renders 4D volumes as 2D slices and builds ROI masks.").
		Options(&opts)
	cli.Load()

	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if opts.InitConfig {
		if err := config.CreateDefaultConfigFile(opts.Config); err != nil {
			logs.Fatal(errors.New("creating default config failed").Wrap(err))
		}
		fmt.Printf("Default configuration written to: %s\n", opts.Config)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(opts.Config)
	if err != nil {
		logs.Fatal(errors.New("loading config failed").Wrap(err))
	}
	applyOptions(cfg, opts)
	if err := cfg.Validate(); err != nil {
		logs.Fatal(errors.New("invalid configuration").Wrap(err))
	}

	logs.SetLevel(logs.ParseLevel(cfg.Logging.Level))
	logs.Encoder = json.Marshal
	if cfg.Logging.Indent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}
	errors.Encoder = json.Marshal

	fmt.Println("================================")
	fmt.Println("IMAGE DATA VIEW")
	fmt.Println("Slice rendering and ROI selection for 4D volumes")
	fmt.Println("================================")

	startTime := time.Now()
	if err := run(cfg); err != nil {
		logs.Fatal(err)
	}
	fmt.Printf("\nCompleted successfully in %.2f seconds!\n", time.Since(startTime).Seconds())
}

// applyOptions lets command line options override the configuration file.
func applyOptions(cfg *config.Config, opts options) {
	if opts.Input != "" {
		cfg.Input.Dir = opts.Input
	}
	if opts.Output != "" {
		cfg.Output.Dir = opts.Output
	}
	if opts.Orientation != "" {
		cfg.Render.Orientation = opts.Orientation
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogIndent {
		cfg.Logging.Indent = true
	}
}

func run(cfg *config.Config) error {
	// Step 1: Load or synthesise the volume
	vol, err := loadVolume(cfg)
	if err != nil {
		return err
	}
	ext := vol.Extents()
	fmt.Printf("Volume: %d x %d x %d, %d timestep(s), %s\n",
		ext.Columns, ext.Rows, ext.Slices, ext.Timesteps, vol.MainOrientation())

	// Step 2: Set up the viewer
	target, _ := orientation.Parse(cfg.Render.Orientation)
	selector, _ := slicesel.ByName(cfg.Render.Selector)

	viewer := newViewer(cfg, selector)
	viewer.SetData(vol)
	viewer.SetTargetOrientation(target)
	viewer.SetGridSize(cfg.Render.GridWidth, cfg.Render.GridHeight)
	viewer.SetTimestep(cfg.Render.Timestep)
	viewer.SetSlice(cfg.Render.Slice)
	viewer.Background().SetAlpha(cfg.Render.Alpha)

	// Step 3: Select the ROI from the seed, if any
	if len(cfg.ROI.Seed) > 0 {
		if err := selectROI(cfg, viewer, vol); err != nil {
			return err
		}
	}

	// Step 4: Save the composed view
	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return errors.New("creating output directory failed").
			WithTag("dir", cfg.Output.Dir).
			Wrap(err)
	}
	viewPath := filepath.Join(cfg.Output.Dir, fmt.Sprintf("view_%s.png", target))
	if err := viewer.SavePNG(viewPath); err != nil {
		return errors.New("saving view failed").
			WithTag("file", viewPath).
			Wrap(err)
	}
	fmt.Printf("View saved to: %s (slices %v)\n", viewPath, viewer.Background().RelevantSlices())

	// Step 5: Export slice sequences for every orientation
	if cfg.Output.SaveSequences {
		fmt.Println("\nSaving slice sequences for all orientations...")
		exportSequences(cfg, vol, selector)
		fmt.Println("Slice export completed!")
	}
	return nil
}

func loadVolume(cfg *config.Config) (*volume.Memory, error) {
	if cfg.Input.Dir == "" {
		n := cfg.Input.PhantomSize
		fmt.Printf("No input directory given, generating a %d^3 phantom\n", n)
		return volume.NewPhantom(volume.Extents{
			Columns:   n,
			Rows:      n,
			Slices:    n,
			Timesteps: cfg.Input.PhantomTimesteps,
		}), nil
	}

	acquired, _ := orientation.Parse(cfg.Input.Orientation)
	fmt.Printf("Loading %s slices from: %s\n", acquired, cfg.Input.Dir)
	return volume.LoadSliceDir(cfg.Input.Dir, acquired)
}

func newViewer(cfg *config.Config, selector slicesel.Selector) *visualization.Viewer {
	return visualization.NewViewer(visualization.Config{
		Selector:       selector,
		PlaneCacheSize: cfg.Render.PlaneCacheSize,
		Labels:         cfg.Output.Labels,
		JPEGQuality:    cfg.Output.JPEGQuality,
		Background:     cfg.Output.Colortable,
	})
}

func selectROI(cfg *config.Config, viewer *visualization.Viewer, vol *volume.Memory) error {
	mode, _ := roi.ParseMode(cfg.ROI.Mode)
	seed := voxel.New(cfg.ROI.Seed[0], cfg.ROI.Seed[1], cfg.ROI.Seed[2], 0)
	if len(cfg.ROI.Seed) == 4 {
		seed.Timestep = cfg.ROI.Seed[3]
	}
	if !seed.Within(vol.Extents()) {
		return errors.New("ROI seed outside of volume").
			WithTag("seed", seed.String())
	}

	controller := roi.NewController(viewer.Selection())
	if err := controller.AddROI(cfg.ROI.Label); err != nil {
		return err
	}
	controller.SetMode(mode)
	controller.SetThreshold(cfg.ROI.Threshold)
	if err := controller.ClickOn(vol, seed); err != nil {
		return errors.New("ROI selection failed").Wrap(err)
	}

	mask, _ := controller.BinaryMask(cfg.ROI.Label)
	selected := mask.Count(1)
	logs.WithTag("roi", cfg.ROI.Label).
		WithTag("seed", seed.String()).
		WithTag("threshold", cfg.ROI.Threshold).
		WithTag("voxels", selected).
		Info("ROI selected")
	fmt.Printf("ROI %q: %d voxel(s) selected from seed %s\n", cfg.ROI.Label, selected, seed)
	return nil
}

// exportSequences saves every slice of every orientation. Orientations are
// processed in parallel, each with its own viewer.
func exportSequences(cfg *config.Config, vol *volume.Memory, selector slicesel.Selector) {
	// The range is cached lazily; compute it before vol is shared.
	vol.MinMax()

	var wg sync.WaitGroup
	sem := make(chan struct{}, max(cfg.Render.NumCores, 1))

	for _, o := range orientation.All {
		wg.Add(1)
		go func(o orientation.Orientation) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			viewer := newViewer(cfg, selector)
			viewer.SetData(vol)
			viewer.SetTargetOrientation(o)
			viewer.SetTimestep(cfg.Render.Timestep)

			dir := filepath.Join(cfg.Output.Dir, o.String())
			if err := viewer.SaveSliceSequence(dir); err != nil {
				logs.Warn(errors.New("saving slice sequence failed").
					WithTag("orientation", o.String()).
					Wrap(err))
				return
			}
			fmt.Printf("Saved %s slices to: %s\n", o, dir)
		}(o)
	}
	wg.Wait()
}
