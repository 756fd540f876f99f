package pipeline

import (
	"fmt"
	"image/color"

	"backdrop-remover/internal/imageio"
	"backdrop-remover/internal/raster"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

// Composite prepares a segmented RGBA image for the requested format.
// Flat formats blend over a solid background and return RGB.
func Composite(img *raster.Buffer, format Format) (*raster.Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}

	switch format {
	case FormatTransparentPNG:
		if img.HasAlpha() {
			return img.Clone(), nil
		}
		mask, err := raster.NewOpaqueMask(img.Width, img.Height)
		if err != nil {
			return nil, err
		}
		return raster.ApplyMask(img, mask)
	case FormatPNGWhite, FormatJPEG:
		return imageio.Flatten(img, white), nil
	case FormatPNGBlack:
		return imageio.Flatten(img, black), nil
	default:
		return nil, fmt.Errorf("composite: unknown format %q", format)
	}
}
