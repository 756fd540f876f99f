package selfie

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"backdrop-remover/internal/apperrors"
	"backdrop-remover/internal/logger"
	"backdrop-remover/internal/raster"
	"backdrop-remover/internal/segment/onnx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentUnavailableWhenModelMissing(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "libonnxruntime.so")
	require.NoError(t, os.WriteFile(lib, nil, 0o644))

	b := New(onnx.NewRuntime(lib, logger.NewNop()), filepath.Join(dir, "selfie.onnx"), logger.NewNop())
	img, err := raster.NewBuffer(4, 4, raster.RGB)
	require.NoError(t, err)

	res := b.Segment(context.Background(), img)

	require.NotNil(t, res.Failure)
	assert.Equal(t, apperrors.BackendUnavailable, res.Failure.Kind)
}

func TestProbeIsCheckedOnce(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "selfie.onnx")
	b := New(onnx.NewRuntime("libonnxruntime.so", logger.NewNop()), model, logger.NewNop())

	require.Error(t, b.Probe())

	// Installing the model later does not change the cached answer.
	require.NoError(t, os.WriteFile(model, []byte("x"), 0o644))
	assert.Error(t, b.Probe())
}

func TestSegmentUnavailableWhenRuntimeCannotLoad(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "libonnxruntime.so")
	model := filepath.Join(dir, "selfie.onnx")
	require.NoError(t, os.WriteFile(lib, []byte("not a shared library"), 0o644))
	require.NoError(t, os.WriteFile(model, []byte("x"), 0o644))

	b := New(onnx.NewRuntime(lib, logger.NewNop()), model, logger.NewNop())
	require.NoError(t, b.Probe())

	img, err := raster.NewBuffer(4, 4, raster.RGB)
	require.NoError(t, err)
	res := b.Segment(context.Background(), img)

	require.NotNil(t, res.Failure)
	assert.Equal(t, apperrors.BackendUnavailable, res.Failure.Kind)
}

func TestSegmentUnavailableWithoutRuntime(t *testing.T) {
	b := New(nil, "selfie.onnx", logger.NewNop())
	img, err := raster.NewBuffer(2, 2, raster.RGBA)
	require.NoError(t, err)

	assert.True(t, b.Segment(context.Background(), img).Unavailable())
}

func TestConfidenceMaskKeepsSoftEdges(t *testing.T) {
	layout := onnx.ImageLayout{ChannelsLast: true, Channels: 1, Height: 1, Width: 4}

	mask, err := confidenceMask([]float32{0, 0.2, 0.55, 1}, layout)
	require.NoError(t, err)

	assert.Equal(t, []uint8{0, 51, 140, 255}, mask.Pix)
}

func TestFillUnitNHWC(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, G: 51, B: 0, A: 255})
	layout := onnx.ImageLayout{ChannelsLast: true, Channels: 3, Height: 1, Width: 1}
	data := make([]float32, 3)

	fillUnit(data, img, layout)

	assert.InDeltaSlice(t, []float32{1, 0.2, 0}, data, 1e-6)
}
