package converter

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"imageResizer/worker/planner"
)

var (
	ErrDecode           = errors.New("error opening image")
	ErrEncode           = errors.New("error saving image")
	ErrInvalidDimension = errors.New("invalid target dimension")
)

type Options struct {
	JPEGQuality int
	WebPQuality int
}

func DefaultOptions() Options {
	return Options{JPEGQuality: 85, WebPQuality: 80}
}

type Converter struct {
	logger *zap.Logger
	opts   Options
}

func NewConverter(logger *zap.Logger, opts Options) *Converter {
	return &Converter{logger: logger, opts: opts}
}

// Decode opens and decodes the image at inputPath. Any failure, including a
// missing file, is reported as ErrDecode.
func (c *Converter) Decode(inputPath string) (image.Image, error) {
	src, err := imaging.Open(inputPath)
	if err != nil {
		c.logger.Debug("Failed to open image",
			zap.String("path", inputPath),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return src, nil
}

// Transcode resizes src to dims with a Lanczos filter and writes it to
// outputPath in the format implied by its extension. A zero dimension is
// rejected with ErrInvalidDimension.
func (c *Converter) Transcode(src image.Image, dims planner.Dimensions, outputPath string) error {
	if dims.Width <= 0 || dims.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimension, dims.Width, dims.Height)
	}

	c.logger.Debug("Resizing image",
		zap.String("output", outputPath),
		zap.Int("width", dims.Width),
		zap.Int("height", dims.Height),
	)

	resized := imaging.Resize(src, dims.Width, dims.Height, imaging.Lanczos)

	if err := c.save(resized, outputPath); err != nil {
		c.logger.Debug("Failed to save image",
			zap.String("path", outputPath),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	return nil
}

// Convert decodes, plans and transcodes in one call.
func (c *Converter) Convert(inputPath, outputPath string, constraints planner.Constraints) (planner.Dimensions, error) {
	src, err := c.Decode(inputPath)
	if err != nil {
		return planner.Dimensions{}, err
	}

	bounds := src.Bounds()
	dims, err := planner.Plan(bounds.Dx(), bounds.Dy(), constraints)
	if err != nil {
		return planner.Dimensions{}, err
	}

	if err := c.Transcode(src, dims, outputPath); err != nil {
		return planner.Dimensions{}, err
	}
	return dims, nil
}

// save writes into a temporary file next to outputPath and renames it into
// place, so a failed encode never leaves a partial file behind.
func (c *Converter) save(img image.Image, outputPath string) error {
	encode, err := c.encoderFor(outputPath)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), "."+filepath.Base(outputPath)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

type encodeFunc func(w io.Writer, img image.Image) error

func (c *Converter) encoderFor(outputPath string) (encodeFunc, error) {
	ext := strings.ToLower(filepath.Ext(outputPath))

	if ext == ".webp" {
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(c.opts.WebPQuality))
		if err != nil {
			return nil, err
		}
		return func(w io.Writer, img image.Image) error {
			return webp.Encode(w, img, options)
		}, nil
	}

	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, fmt.Errorf("unsupported format: %s", strings.TrimPrefix(ext, "."))
	}

	switch format {
	case imaging.JPEG:
		return func(w io.Writer, img image.Image) error {
			return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(c.opts.JPEGQuality))
		}, nil
	case imaging.PNG, imaging.GIF:
		return func(w io.Writer, img image.Image) error {
			return imaging.Encode(w, img, format)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", strings.TrimPrefix(ext, "."))
	}
}
