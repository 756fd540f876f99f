package matting

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

func testImage(t *testing.T) *raster.Buffer {
	t.Helper()
	buf, err := raster.NewBuffer(6, 4, raster.RGBA)
	require.NoError(t, err)
	for i := range buf.Pix {
		buf.Pix[i] = uint8(i)
	}
	return buf
}

func TestSegmentUnavailableWithoutRuntime(t *testing.T) {
	b := New(nil, "u2net.onnx", logger.NewNop())

	res := b.Segment(context.Background(), testImage(t))

	require.NotNil(t, res.Failure)
	assert.Equal(t, apperrors.BackendUnavailable, res.Failure.Kind)
	assert.Equal(t, "matting", res.Backend)
}

func TestSegmentUnavailableWhenLibraryMissing(t *testing.T) {
	dir := t.TempDir()
	rt := onnx.NewRuntime(filepath.Join(dir, "libonnxruntime.so"), logger.NewNop())
	b := New(rt, filepath.Join(dir, "u2net.onnx"), logger.NewNop())
	img := testImage(t)
	before := append([]uint8(nil), img.Pix...)

	first := b.Segment(context.Background(), img)
	second := b.Segment(context.Background(), img)

	assert.True(t, first.Unavailable())
	assert.True(t, second.Unavailable())
	assert.Equal(t, before, img.Pix)
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "u2net.onnx")
	b := New(onnx.NewRuntime("libonnxruntime.so", logger.NewNop()), model, logger.NewNop())

	require.Error(t, b.Probe())
	require.NoError(t, os.WriteFile(model, []byte("x"), 0o644))
	assert.NoError(t, b.Probe())

	assert.Error(t, New(nil, model, logger.NewNop()).Probe())
}

func TestFillNormalizedNCHW(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, G: 0, B: 0, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 0, G: 255, B: 255, A: 255})
	layout := onnx.ImageLayout{Channels: 3, Height: 1, Width: 2}
	data := make([]float32, 6)

	fillNormalized(data, img, layout)

	assert.InDelta(t, (1-mean[0])/std[0], data[layout.Index(0, 0, 0)], 1e-5)
	assert.InDelta(t, (0-mean[1])/std[1], data[layout.Index(0, 0, 1)], 1e-5)
	assert.InDelta(t, (1-mean[2])/std[2], data[layout.Index(0, 1, 2)], 1e-5)
}

func TestNormalizeMatteIsSoft(t *testing.T) {
	layout := onnx.ImageLayout{Channels: 1, Height: 1, Width: 3}

	gray := normalizeMatte([]float32{-2, 0, 2}, layout)

	assert.Equal(t, []uint8{0, 128, 255}, gray.Pix)
}

func TestNormalizeMatteFlatPrediction(t *testing.T) {
	layout := onnx.ImageLayout{Channels: 1, Height: 1, Width: 2}

	gray := normalizeMatte([]float32{0.3, 0.3}, layout)

	assert.Equal(t, []uint8{0, 0}, gray.Pix)
}
