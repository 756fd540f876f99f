// Package selfie segments people with the MediaPipe selfie segmentation model
// exported to ONNX. It keeps the model's raw confidence as alpha so hair and
// other soft edges survive.
package selfie

import (
	"context"
	"fmt"
	"image"
	"sync"

	"backdrop-remover/internal/logger"
	"backdrop-remover/internal/raster"
	"backdrop-remover/internal/segment"
	"backdrop-remover/internal/segment/onnx"

	"github.com/nfnt/resize"
)

// Landscape variant input edge; used only when the model leaves it dynamic.
const defaultInputSize = 256

type Backend struct {
	modelPath string
	runtime   *onnx.Runtime
	logger    logger.Logger

	probeOnce sync.Once
	probeErr  error

	mu      sync.Mutex
	session *onnx.Session
	in      onnx.ImageLayout
	out     onnx.ImageLayout
	openErr error
}

func New(runtime *onnx.Runtime, modelPath string, log logger.Logger) *Backend {
	return &Backend{modelPath: modelPath, runtime: runtime, logger: log}
}

func (b *Backend) Name() string  { return segment.NameSelfie }
func (b *Backend) Label() string { return "selfie segmentation" }

// Probe reports whether the runtime library and model file are on disk.
// It runs once and never loads anything.
func (b *Backend) Probe() error {
	b.probeOnce.Do(func() {
		if b.runtime == nil {
			b.probeErr = onnx.ErrLibraryMissing
		} else if err := b.runtime.Installed(b.modelPath); err != nil {
			b.probeErr = fmt.Errorf("selfie: %w", err)
		}

		if b.probeErr != nil {
			b.logger.Debug("SelfieBackend", "not installed", map[string]interface{}{
				"model":  b.modelPath,
				"reason": b.probeErr.Error(),
			})
		}
	})
	return b.probeErr
}

func (b *Backend) Segment(ctx context.Context, img *raster.Buffer) segment.Result {
	if err := b.Probe(); err != nil {
		return segment.Unavailable(b.Name(), err)
	}

	return segment.Guard(b.Name(), func() segment.Result {
		if err := b.open(); err != nil {
			if onnx.IsUnavailable(err) {
				return segment.Unavailable(b.Name(), err)
			}
			return segment.RuntimeError(b.Name(), err)
		}

		rgb := img.ToRGB()
		mask, err := b.infer(rgb)
		if err != nil {
			return segment.RuntimeError(b.Name(), err)
		}

		return segment.Succeeded(b.Name(), rgb, mask)
	})
}

func (b *Backend) open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session != nil || b.openErr != nil {
		return b.openErr
	}

	session, err := b.runtime.Open(b.modelPath, defaultInputSize)
	if err != nil {
		b.openErr = fmt.Errorf("load selfie model: %w", err)
		return b.openErr
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
		b.openErr = fmt.Errorf("unsupported selfie model: %w", err)
		return b.openErr
	}

	b.session, b.in, b.out = session, in, out
	return nil
}

func (b *Backend) infer(rgb *raster.Buffer) (*raster.Mask, error) {
	b.mu.Lock()
	session, in, out := b.session, b.in, b.out
	b.mu.Unlock()

	resized := resize.Resize(uint(in.Width), uint(in.Height), rgb.ToImage(), resize.Bilinear)

	pred, err := session.Run(func(data []float32) {
		fillUnit(data, resized, in)
	})
	if err != nil {
		return nil, err
	}

	confidence, err := confidenceMask(pred, out)
	if err != nil {
		return nil, err
	}

	restored := resize.Resize(uint(rgb.Width), uint(rgb.Height), confidence.ToGray(), resize.Bilinear)
	return raster.MaskFromImage(restored, rgb.Width, rgb.Height)
}

// fillUnit writes img into data as RGB floats in [0,1].
func fillUnit(data []float32, img image.Image, layout onnx.ImageLayout) {
	bounds := img.Bounds()
	for y := 0; y < layout.Height; y++ {
		for x := 0; x < layout.Width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			data[layout.Index(y, x, 0)] = float32(r>>8) / 255
			data[layout.Index(y, x, 1)] = float32(g>>8) / 255
			data[layout.Index(y, x, 2)] = float32(b>>8) / 255
		}
	}
}

// confidenceMask scales the raw person confidence to [0,255] without any
// threshold.
func confidenceMask(pred []float32, layout onnx.ImageLayout) (*raster.Mask, error) {
	values := make([]float32, layout.Height*layout.Width)
	for y := 0; y < layout.Height; y++ {
		for x := 0; x < layout.Width; x++ {
			values[y*layout.Width+x] = pred[layout.Index(y, x, 0)]
		}
	}
	return raster.MaskFromFloats(layout.Width, layout.Height, values)
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
