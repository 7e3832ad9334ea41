package convert

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/filewarp/filewarp/internal/format"
)

// imageEncoder writes img to path in one specific format.
type imageEncoder func(img image.Image, path string, opts format.Options) error

// nativeEncoders covers the formats the imaging library encodes itself.
// webp, avif and pdf targets go through ImageMagick instead.
var nativeEncoders = map[string]imageEncoder{
	"jpg":  encodeJPEG,
	"jpeg": encodeJPEG,
	"png":  encodePNG,
	"gif":  encodePlain,
	"bmp":  encodePlain,
	"tiff": encodePlain,
}

// magickTargets are encoded by the external magick binary.
var magickTargets = map[string]bool{
	"webp": true,
	"avif": true,
	"pdf":  true, // image to pdf composition
}

// magickSources cannot be decoded natively and force the magick path
// regardless of target.
var magickSources = map[string]bool{
	"webp": true,
	"avif": true,
}

// ImageAdapter converts still images. Formats the imaging library can
// encode are handled in-process; the rest shell out to ImageMagick.
type ImageAdapter struct {
	catalog    *format.Catalog
	magickPath string
}

func NewImageAdapter(catalog *format.Catalog, magickPath string) *ImageAdapter {
	return &ImageAdapter{catalog: catalog, magickPath: magickPath}
}

func (a *ImageAdapter) Name() string { return "image" }

// EncoderFor reports whether a target format has an encode path. Used by
// the registry's boot validation.
func (a *ImageAdapter) EncoderFor(target string) bool {
	return nativeEncoders[target] != nil || magickTargets[target]
}

func (a *ImageAdapter) Convert(ctx context.Context, inputPath, outputPath, target string, opts format.Options) (*Outcome, error) {
	start := time.Now()
	target = format.Normalize(target)

	merged := a.catalog.DefaultOptions(format.Image, target).Merge(opts)
	meta := sourceImageMeta(inputPath)

	if !a.EncoderFor(target) {
		return nil, Errf(KindUnsupportedFormat, "Unsupported image format: %s", target)
	}

	sourceExt := format.Normalize(extOf(inputPath))
	if magickTargets[target] || magickSources[sourceExt] {
		if err := a.encodeMagick(ctx, inputPath, outputPath, merged); err != nil {
			return nil, err
		}
	} else {
		if err := a.encodeNative(ctx, nativeEncoders[target], inputPath, outputPath, merged); err != nil {
			return nil, err
		}
	}

	fi, err := os.Stat(outputPath)
	if err != nil {
		return nil, &Error{Kind: KindImageFailed, Reason: "Image conversion produced no output", Detail: err.Error()}
	}

	return &Outcome{
		OutputPath: outputPath,
		OutputSize: fi.Size(),
		Elapsed:    time.Since(start),
		Options:    merged,
		SourceMeta: meta,
	}, nil
}

// encodeNative decodes and re-encodes with the imaging library. The
// imaging encoder picks its format from the output extension, so the
// file is written in place and any partial output is removed on failure.
func (a *ImageAdapter) encodeNative(ctx context.Context, enc imageEncoder, inputPath, outputPath string, opts format.Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := imaging.Open(inputPath)
	if err != nil {
		return &Error{Kind: KindImageFailed, Reason: "Failed to decode image", Detail: err.Error()}
	}
	if err := enc(img, outputPath, opts); err != nil {
		_ = os.Remove(outputPath)
		return &Error{Kind: KindImageFailed, Reason: "Failed to encode image", Detail: err.Error()}
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(outputPath)
		return err
	}
	return nil
}

func (a *ImageAdapter) encodeMagick(ctx context.Context, inputPath, outputPath string, opts format.Options) error {
	args := []string{inputPath}
	if opts.Quality > 0 {
		args = append(args, "-quality", strconv.Itoa(opts.Quality))
	}
	args = append(args, outputPath)

	cmd := exec.CommandContext(ctx, a.magickPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(outputPath)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &Error{
			Kind:   KindImageFailed,
			Reason: "Image conversion failed",
			Detail: fmt.Sprintf("magick: %v: %s", err, out),
		}
	}
	return nil
}

func encodeJPEG(img image.Image, path string, opts format.Options) error {
	q := opts.Quality
	if q <= 0 || q > 100 {
		q = 80
	}
	return imaging.Save(img, path, imaging.JPEGQuality(q))
}

func encodePNG(img image.Image, path string, opts format.Options) error {
	level := png.DefaultCompression
	if opts.CompressionLevel >= 6 {
		level = png.BestCompression
	}
	return imaging.Save(img, path, imaging.PNGCompressionLevel(level))
}

func encodePlain(img image.Image, path string, opts format.Options) error {
	return imaging.Save(img, path)
}

// sourceImageMeta collects dimensions and EXIF timestamps. Failures are
// swallowed: metadata is diagnostic only.
func sourceImageMeta(path string) map[string]string {
	meta := map[string]string{}

	if f, err := os.Open(path); err == nil {
		if cfg, _, err := image.DecodeConfig(f); err == nil {
			meta["width"] = strconv.Itoa(cfg.Width)
			meta["height"] = strconv.Itoa(cfg.Height)
		}
		f.Close()
	}

	if f, err := os.Open(path); err == nil {
		if x, err := exif.Decode(f); err == nil {
			if dt, err := x.DateTime(); err == nil {
				meta["dateTimeOriginal"] = dt.Format("2006:01:02 15:04:05")
			}
		}
		f.Close()
	}

	if len(meta) == 0 {
		return nil
	}
	return meta
}
