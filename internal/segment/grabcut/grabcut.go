// Package grabcut is the last-resort backend. It runs OpenCV GrabCut with the
// whole image as the foreground rectangle and never reports a failure: when
// segmentation cannot run it keeps every pixel.
package grabcut

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"backdrop-remover/internal/logger"
	"backdrop-remover/internal/opencv/bridge"
	"backdrop-remover/internal/opencv/safe"
	"backdrop-remover/internal/raster"
	"backdrop-remover/internal/segment"

	"gocv.io/x/gocv"
)

const (
	DefaultPadding    = 20
	DefaultIterations = 5

	closeIterations = 2
	kernelSize      = 5

	// GrabCut fits five colour components per model and needs at least that
	// many foreground samples.
	minPixels = 25

	labelForeground         = 1
	labelProbableForeground = 3
)

// grabCutFunc matches gocv.GrabCut.
type grabCutFunc func(img gocv.Mat, mask *gocv.Mat, r image.Rectangle, bgdModel, fgdModel *gocv.Mat, iterCount int, mode gocv.GrabCutMode) error

type Backend struct {
	padding    int
	iterations int
	logger     logger.Logger
	grabCut    grabCutFunc
}

func New(padding, iterations int, log logger.Logger) *Backend {
	if padding < 0 {
		padding = DefaultPadding
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Backend{padding: padding, iterations: iterations, logger: log, grabCut: gocv.GrabCut}
}

func (b *Backend) Name() string  { return segment.NameGrabCut }
func (b *Backend) Label() string { return "classical grabcut" }

func (b *Backend) Segment(ctx context.Context, img *raster.Buffer) segment.Result {
	rgb := img.ToRGB()

	mask, err := b.safeMask(ctx, rgb)
	if err != nil {
		b.logger.Warning("GrabCutBackend", "segmentation failed, keeping all pixels", map[string]interface{}{
			"error":  err.Error(),
			"width":  rgb.Width,
			"height": rgb.Height,
		})

		mask, err = raster.NewOpaqueMask(rgb.Width, rgb.Height)
		if err != nil {
			return segment.RuntimeError(b.Name(), err)
		}
	}

	return segment.Succeeded(b.Name(), rgb, mask)
}

func (b *Backend) safeMask(ctx context.Context, rgb *raster.Buffer) (mask *raster.Mask, err error) {
	defer func() {
		if r := recover(); r != nil {
			mask, err = nil, fmt.Errorf("grabcut panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if rgb.Width*rgb.Height < minPixels || uniform(rgb) {
		b.logger.Debug("GrabCutBackend", "image has no separable content", map[string]interface{}{
			"width":  rgb.Width,
			"height": rgb.Height,
		})
		return raster.NewOpaqueMask(rgb.Width, rgb.Height)
	}

	return b.computeMask(rgb)
}

func (b *Backend) computeMask(rgb *raster.Buffer) (*raster.Mask, error) {
	scope := safe.NewScope()
	defer scope.Close()

	w, h, p := rgb.Width, rgb.Height, b.padding
	pw, ph := w+2*p, h+2*p

	src, err := bridge.BufferToBGR(rgb)
	bgr := scope.Track(src)
	if err != nil {
		return nil, err
	}

	// Replicated borders keep GrabCut from treating the image edge as
	// definite background.
	padded := scope.NewMat()
	if err := gocv.CopyMakeBorder(*bgr, padded, p, p, p, p, gocv.BorderReplicate, color.RGBA{}); err != nil {
		return nil, fmt.Errorf("pad image: %w", err)
	}
	if err := safe.ValidateShape(padded, ph, pw, 3, "CopyMakeBorder"); err != nil {
		return nil, err
	}

	labels := scope.Track(gocv.NewMatWithSize(ph, pw, gocv.MatTypeCV8UC1))
	bgdModel := scope.NewMat()
	fgdModel := scope.NewMat()
	if err := b.grabCut(*padded, labels, image.Rect(p, p, p+w, p+h), bgdModel, fgdModel, b.iterations, gocv.GCInitWithRect); err != nil {
		return nil, fmt.Errorf("grabcut: %w", err)
	}
	if err := safe.ValidateShape(labels, ph, pw, 1, "GrabCut"); err != nil {
		return nil, err
	}

	binary, err := cropForeground(labels.ToBytes(), pw, p, w, h)
	if err != nil {
		return nil, err
	}

	fg, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, binary)
	current := scope.Track(fg)
	if err != nil {
		return nil, fmt.Errorf("create foreground Mat: %w", err)
	}

	// Morphological close: dilate then erode, each repeated.
	kernel := scope.Track(gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(kernelSize, kernelSize)))
	for i := 0; i < closeIterations; i++ {
		next := scope.NewMat()
		if err := gocv.MorphologyEx(*current, next, gocv.MorphDilate, *kernel); err != nil {
			return nil, fmt.Errorf("dilate mask: %w", err)
		}
		current = next
	}
	for i := 0; i < closeIterations; i++ {
		next := scope.NewMat()
		if err := gocv.MorphologyEx(*current, next, gocv.MorphErode, *kernel); err != nil {
			return nil, fmt.Errorf("erode mask: %w", err)
		}
		current = next
	}
	if err := safe.ValidateShape(current, h, w, 1, "MorphologyClose"); err != nil {
		return nil, err
	}

	// Blur as float so the 0/1 mask gains soft edges instead of rounding away.
	coverage := scope.NewMat()
	if err := current.ConvertTo(coverage, gocv.MatTypeCV32F); err != nil {
		return nil, fmt.Errorf("convert mask to float: %w", err)
	}
	blurred := scope.NewMat()
	if err := gocv.GaussianBlur(*coverage, blurred, image.Pt(kernelSize, kernelSize), 0, 0, gocv.BorderDefault); err != nil {
		return nil, fmt.Errorf("blur mask: %w", err)
	}
	if err := safe.ValidateShape(blurred, h, w, 1, "GaussianBlur"); err != nil {
		return nil, err
	}

	return bridge.MatToMask(blurred)
}

// cropForeground maps GrabCut labels inside the unpadded area to 1 for
// foreground and probable foreground, 0 otherwise.
func cropForeground(labels []byte, stride, pad, width, height int) ([]byte, error) {
	if len(labels) < (height+2*pad)*stride {
		return nil, fmt.Errorf("label data length %d too short for %dx%d", len(labels), stride, height+2*pad)
	}

	out := make([]byte, width*height)
	for y := 0; y < height; y++ {
		row := labels[(y+pad)*stride+pad:]
		for x := 0; x < width; x++ {
			if l := row[x]; l == labelForeground || l == labelProbableForeground {
				out[y*width+x] = 1
			}
		}
	}
	return out, nil
}

func uniform(rgb *raster.Buffer) bool {
	r, g, b := rgb.Pix[0], rgb.Pix[1], rgb.Pix[2]
	for i := rgb.Channels; i < len(rgb.Pix); i += rgb.Channels {
		if rgb.Pix[i] != r || rgb.Pix[i+1] != g || rgb.Pix[i+2] != b {
			return false
		}
	}
	return true
}
