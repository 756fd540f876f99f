// Package imageio decodes input files into raster buffers and writes
// composited results back to disk.
package imageio

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"

	"backdrop-remover/internal/apperrors"
	"backdrop-remover/internal/raster"

	"github.com/disintegration/imaging"
)

// Decode reads the image at path. The returned format is the container name
// reported by the decoder ("jpeg", "png", "bmp", "gif", "tiff").
func Decode(path string) (*raster.Buffer, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", apperrors.Wrapf(apperrors.UnreadableImage, err, "failed to read %s", filepath.Base(path))
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperrors.Wrapf(apperrors.UnreadableImage, err, "unsupported or corrupt image %s", filepath.Base(path))
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", apperrors.Wrapf(apperrors.UnreadableImage, err, "failed to decode %s", filepath.Base(path))
	}

	buf, err := raster.FromImage(img)
	if err != nil {
		return nil, "", apperrors.Wrapf(apperrors.UnreadableImage, err, "failed to convert %s", filepath.Base(path))
	}

	return buf, format, nil
}

// SuggestOutputPath proposes "<stem>_sf.png" next to the input.
func SuggestOutputPath(inputPath string) string {
	dir := filepath.Dir(inputPath)
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(dir, stem+"_sf.png")
}
