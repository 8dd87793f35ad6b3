// Command resize runs one batch resize from the command line and prints the
// report as JSON. With -watch it keeps re-running the batch whenever the
// input folder changes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"imageResizer/api/explorer"
	"imageResizer/worker/config"
	"imageResizer/worker/converter"
	"imageResizer/worker/logging"
	"imageResizer/worker/models"
	"imageResizer/worker/service"
	"imageResizer/worker/watch"
)

// optionalUint is a flag that records whether it was set at all.
type optionalUint struct {
	value **uint
}

func (o optionalUint) String() string {
	if o.value == nil || *o.value == nil {
		return ""
	}
	return strconv.FormatUint(uint64(**o.value), 10)
}

func (o optionalUint) Set(s string) error {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return fmt.Errorf("must be a non-negative integer")
	}
	u := uint(v)
	*o.value = &u
	return nil
}

type options struct {
	request    models.Request
	configPath string
	open       bool
	watch      bool
}

func parseFlags(args []string) (*options, error) {
	var opts options
	fs := flag.NewFlagSet("resize", flag.ContinueOnError)

	fs.StringVar(&opts.request.InputDir, "in", "", "Input folder (required)")
	fs.StringVar(&opts.request.OutputDir, "out", "", "Output folder (required)")
	fs.Var(optionalUint{&opts.request.Width}, "width", "Target width in pixels")
	fs.Var(optionalUint{&opts.request.Height}, "height", "Target height in pixels")
	fs.BoolVar(&opts.request.KeepAspectRatio, "keep-aspect", false, "Derive the missing dimension from the original aspect ratio")
	fs.BoolVar(&opts.request.Overwrite, "overwrite", false, "Replace existing files in the output folder")
	fs.StringVar(&opts.configPath, "config", "", "Optional YAML config file")
	fs.BoolVar(&opts.open, "open", false, "Open the output folder when done")
	fs.BoolVar(&opts.watch, "watch", false, "Re-run whenever the input folder changes")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.request.InputDir == "" || opts.request.OutputDir == "" {
		return nil, errors.New("-in and -out are required")
	}
	return &opts, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Load()
		if os.Getenv("LOG_FORMAT") == "" {
			cfg.LogFormat = logging.FormatConsole
		}
		return cfg, cfg.Validate()
	}
	return config.LoadFile(path)
}

func main() {
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "resize: %v\n", err)
		os.Exit(2)
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resize: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resize: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	conv := converter.NewConverter(logger, converter.Options{
		JPEGQuality: cfg.JPEGQuality,
		WebPQuality: cfg.WebPQuality,
	})
	coordinator := service.NewCoordinator(conv, service.NewLogObserver(logger), logger, cfg.MaxInFlight)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := runOnce(ctx, coordinator, opts.request); err != nil {
		logger.Error("Batch failed", zap.Error(err))
		os.Exit(1)
	}

	if opts.open {
		if err := explorer.NewOpener().Open(opts.request.OutputDir); err != nil {
			logger.Warn("Cannot open output folder", zap.Error(err))
		}
	}

	if !opts.watch {
		return
	}

	w, err := watch.NewWatcher(opts.request.InputDir, watch.DefaultDebounce, logger)
	if err != nil {
		logger.Fatal("Cannot watch input folder", zap.Error(err))
	}
	if sameFolder(opts.request.InputDir, opts.request.OutputDir) && opts.request.Overwrite {
		logger.Warn("Input and output folders are the same with -overwrite; each change resizes earlier outputs again")
	}
	err = w.Run(ctx, func(ctx context.Context) []string {
		report, err := runOnce(ctx, coordinator, opts.request)
		if err != nil {
			logger.Error("Batch failed", zap.Error(err))
			return nil
		}
		return writtenPaths(report)
	})
	if err != nil {
		logger.Error("Watcher stopped", zap.Error(err))
	}
}

func runOnce(ctx context.Context, coordinator *service.Coordinator, req models.Request) (*models.BatchReport, error) {
	report, err := coordinator.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return report, enc.Encode(models.NewReportView(report))
}

// writtenPaths lists the files a run created or replaced.
func writtenPaths(report *models.BatchReport) []string {
	var paths []string
	for _, o := range report.Outcomes {
		if s, ok := o.(models.Success); ok {
			paths = append(paths, s.DestinationPath)
		}
	}
	return paths
}

func sameFolder(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
