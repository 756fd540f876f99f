// Package matting removes backgrounds with a general-purpose salient-object
// matting model from the U²-Net family served through ONNX Runtime.
package matting

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"backdrop-remover/internal/logger"
	"backdrop-remover/internal/raster"
	"backdrop-remover/internal/segment"
	"backdrop-remover/internal/segment/onnx"

	"github.com/nfnt/resize"
)

const defaultInputSize = 320

var (
	mean = [3]float32{0.485, 0.456, 0.406}
	std  = [3]float32{0.229, 0.224, 0.225}
)

type sessionOpener interface {
	Open(modelPath string, spatial int) (*onnx.Session, error)
}

type Backend struct {
	modelPath string
	runtime   sessionOpener
	installed func(modelPath string) error
	logger    logger.Logger

	mu      sync.Mutex
	session *onnx.Session
	layout  onnx.ImageLayout
	out     onnx.ImageLayout
	loadErr error
}

func New(runtime *onnx.Runtime, modelPath string, log logger.Logger) *Backend {
	b := &Backend{modelPath: modelPath, logger: log}
	if runtime != nil {
		b.runtime = runtime
		b.installed = runtime.Installed
	}
	return b
}

func (b *Backend) Name() string  { return segment.NameMatting }
func (b *Backend) Label() string { return "neural matting" }

// Probe checks that the runtime and model file are present without loading
// them.
func (b *Backend) Probe() error {
	if b.runtime == nil {
		return fmt.Errorf("onnx runtime not configured")
	}
	if b.installed == nil {
		return nil
	}
	if err := b.installed(b.modelPath); err != nil {
		return fmt.Errorf("matting: %w", err)
	}
	return nil
}

func (b *Backend) Segment(ctx context.Context, img *raster.Buffer) segment.Result {
	return segment.Guard(b.Name(), func() segment.Result {
		if err := b.load(); err != nil {
			return segment.Unavailable(b.Name(), err)
		}

		// The model only accepts three channels; any input alpha is discarded.
		rgb := img.ToRGB()

		matte, err := b.infer(rgb)
		if err != nil {
			return segment.RuntimeError(b.Name(), err)
		}

		return segment.Succeeded(b.Name(), rgb, matte)
	})
}

// load opens the model once; a failure is remembered for later jobs.
func (b *Backend) load() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session != nil || b.loadErr != nil {
		return b.loadErr
	}
	if b.runtime == nil {
		b.loadErr = fmt.Errorf("onnx runtime not configured")
		return b.loadErr
	}

	session, err := b.runtime.Open(b.modelPath, defaultInputSize)
	if err != nil {
		b.loadErr = fmt.Errorf("load matting model: %w", err)
		b.logger.Warning("MattingBackend", "model unavailable", map[string]interface{}{
			"model": b.modelPath,
			"error": err.Error(),
		})
		return b.loadErr
	}

	in, err := onnx.LayoutOf(session.InputShape)
	if err == nil && in.Channels != 3 {
		err = fmt.Errorf("model expects %d input channels, want 3", in.Channels)
	}
	out, outErr := onnx.LayoutOf(session.OutputShape)
	if err == nil {
		err = outErr
	}
	if err != nil {
		session.Close()
		b.loadErr = fmt.Errorf("unsupported matting model: %w", err)
		return b.loadErr
	}

	b.session = session
	b.layout = in
	b.out = out
	return nil
}

func (b *Backend) infer(rgb *raster.Buffer) (*raster.Mask, error) {
	b.mu.Lock()
	session, in, out := b.session, b.layout, b.out
	b.mu.Unlock()

	resized := resize.Resize(uint(in.Width), uint(in.Height), rgb.ToImage(), resize.Lanczos3)

	pred, err := session.Run(func(data []float32) {
		fillNormalized(data, resized, in)
	})
	if err != nil {
		return nil, err
	}

	gray := normalizeMatte(pred, out)
	restored := resize.Resize(uint(rgb.Width), uint(rgb.Height), gray, resize.Lanczos3)

	return raster.MaskFromImage(restored, rgb.Width, rgb.Height)
}

// fillNormalized writes img into data with ImageNet mean/std normalisation,
// scaling by the brightest sample first.
func fillNormalized(data []float32, img image.Image, layout onnx.ImageLayout) {
	bounds := img.Bounds()
	maxVal := float32(1)
	for y := 0; y < layout.Height; y++ {
		for x := 0; x < layout.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			for _, v := range [3]uint32{r, g, b} {
				if f := float32(v >> 8); f > maxVal {
					maxVal = f
				}
			}
		}
	}

	for y := 0; y < layout.Height; y++ {
		for x := 0; x < layout.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			px := [3]float32{float32(r >> 8), float32(g >> 8), float32(b >> 8)}
			for c := 0; c < 3; c++ {
				data[layout.Index(y, x, c)] = (px[c]/maxVal - mean[c]) / std[c]
			}
		}
	}
}

// normalizeMatte min-max scales the first output channel into a soft matte.
func normalizeMatte(pred []float32, layout onnx.ImageLayout) *image.Gray {
	n := layout.Height * layout.Width
	lo, hi := pred[layout.Index(0, 0, 0)], pred[layout.Index(0, 0, 0)]
	for y := 0; y < layout.Height; y++ {
		for x := 0; x < layout.Width; x++ {
			v := pred[layout.Index(y, x, 0)]
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}

	span := hi - lo
	gray := image.NewGray(image.Rect(0, 0, layout.Width, layout.Height))
	for i := 0; i < n; i++ {
		y, x := i/layout.Width, i%layout.Width
		v := float32(0)
		if span > 0 {
			v = (pred[layout.Index(y, x, 0)] - lo) / span
		}
		gray.SetGray(x, y, color.Gray{Y: uint8(v*255 + 0.5)})
	}
	return gray
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	err := b.session.Close()
	b.session = nil
	return err
}
