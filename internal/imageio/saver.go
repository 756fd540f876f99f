package imageio

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"backdrop-remover/internal/apperrors"
	"backdrop-remover/internal/raster"

	"github.com/disintegration/imaging"
)

// Container is the on-disk encoding of an output file.
type Container string

const (
	PNG  Container = "png"
	JPEG Container = "jpeg"
)

// FormatFromPath guesses the container from the file extension, defaulting to PNG.
func FormatFromPath(path string) Container {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return JPEG
	default:
		return PNG
	}
}

// Encode writes buf to path. JPEG output of a buffer with alpha is flattened
// onto white first. The file appears at path only once it is fully written.
func Encode(buf *raster.Buffer, path string, container Container, quality int) error {
	if err := buf.Validate(); err != nil {
		return apperrors.Wrap(apperrors.UnwritableOutput, err, "invalid image buffer")
	}

	var (
		format imaging.Format
		opts   []imaging.EncodeOption
		img    image.Image
	)

	switch container {
	case PNG:
		format = imaging.PNG
		img = buf.ToImage()
	case JPEG:
		if quality < 1 || quality > 100 {
			return apperrors.New(apperrors.InvalidOptions, fmt.Sprintf("jpeg quality %d out of range 1-100", quality))
		}
		format = imaging.JPEG
		opts = append(opts, imaging.JPEGQuality(quality))
		img = Flatten(buf, color.NRGBA{R: 255, G: 255, B: 255, A: 255}).ToImage()
	default:
		return apperrors.New(apperrors.UnwritableOutput, fmt.Sprintf("unsupported output container %q", container))
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.Wrapf(apperrors.UnwritableOutput, err, "cannot write to %s", dir)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(outputMode(path)); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperrors.Wrapf(apperrors.UnwritableOutput, err, "cannot set permissions on %s", filepath.Base(path))
	}

	if err := imaging.Encode(tmp, img, format, opts...); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperrors.Wrapf(apperrors.UnwritableOutput, err, "failed to encode %s", filepath.Base(path))
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperrors.Wrapf(apperrors.UnwritableOutput, err, "failed to flush %s", filepath.Base(path))
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return apperrors.Wrapf(apperrors.UnwritableOutput, err, "failed to move output into place at %s", path)
	}

	return nil
}

// outputMode keeps the permissions of a file being replaced. New files get
// the usual 0644 instead of the 0600 of a temp file.
func outputMode(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return info.Mode().Perm()
	}
	return 0o644
}

// Flatten composites an RGBA buffer over a solid colour and returns an RGB
// buffer. RGB input is returned as a copy.
func Flatten(buf *raster.Buffer, bg color.NRGBA) *raster.Buffer {
	if !buf.HasAlpha() {
		return buf.Clone()
	}

	out := &raster.Buffer{Width: buf.Width, Height: buf.Height, Channels: raster.RGB, Pix: make([]uint8, buf.Width*buf.Height*raster.RGB)}
	bgc := [3]float64{float64(bg.R), float64(bg.G), float64(bg.B)}

	for i := 0; i < buf.Width*buf.Height; i++ {
		src := i * raster.RGBA
		dst := i * raster.RGB
		a := float64(buf.Pix[src+3]) / 255.0
		for c := 0; c < 3; c++ {
			v := float64(buf.Pix[src+c])*a + bgc[c]*(1-a)
			out.Pix[dst+c] = uint8(v + 0.5)
		}
	}
	return out
}
