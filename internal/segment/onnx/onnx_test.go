package onnx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"backdrop-remover/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

func TestLayoutOf(t *testing.T) {
	tests := []struct {
		name  string
		shape ort.Shape
		want  ImageLayout
		err   bool
	}{
		{"u2net input", ort.NewShape(1, 3, 320, 320), ImageLayout{Channels: 3, Height: 320, Width: 320}, false},
		{"u2net output", ort.NewShape(1, 1, 320, 320), ImageLayout{Channels: 1, Height: 320, Width: 320}, false},
		{"selfie input", ort.NewShape(1, 144, 256, 3), ImageLayout{ChannelsLast: true, Height: 144, Width: 256, Channels: 3}, false},
		{"selfie output", ort.NewShape(1, 144, 256, 1), ImageLayout{ChannelsLast: true, Height: 144, Width: 256, Channels: 1}, false},
		{"flat", ort.NewShape(1, 1000), ImageLayout{}, true},
		{"ambiguous", ort.NewShape(1, 5, 7, 9), ImageLayout{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LayoutOf(tt.shape)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLayoutIndex(t *testing.T) {
	nchw := ImageLayout{Channels: 3, Height: 2, Width: 4}
	nhwc := ImageLayout{ChannelsLast: true, Channels: 3, Height: 2, Width: 4}

	assert.Equal(t, 2*8+1*4+3, nchw.Index(1, 3, 2))
	assert.Equal(t, (1*4+3)*3+2, nhwc.Index(1, 3, 2))
}

func TestPinShape(t *testing.T) {
	assert.Equal(t, ort.NewShape(1, 3, 320, 320), pinShape(ort.NewShape(-1, 3, -1, -1), 320))
	assert.Equal(t, ort.NewShape(1, 144, 256, 3), pinShape(ort.NewShape(1, 144, 256, 3), 320))
}

func TestRuntimeMissingLibrary(t *testing.T) {
	rt := NewRuntime(filepath.Join(t.TempDir(), "libonnxruntime.so"), logger.NewNop())

	assert.False(t, rt.LibraryPresent())

	err := rt.Init()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLibraryMissing))

	_, err = rt.Open("model.onnx", 320)
	assert.ErrorIs(t, err, ErrLibraryMissing)
}

func TestRuntimeInstalled(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.onnx")

	missingLib := NewRuntime(filepath.Join(dir, "libonnxruntime.so"), logger.NewNop())
	assert.ErrorIs(t, missingLib.Installed(model), ErrLibraryMissing)

	rt := NewRuntime("libonnxruntime.so", logger.NewNop())
	assert.Error(t, rt.Installed(""))
	assert.Error(t, rt.Installed(model))

	require.NoError(t, os.WriteFile(model, []byte("x"), 0o644))
	assert.NoError(t, rt.Installed(model))
}

func TestRuntimeInitFailureIsUnavailable(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")
	require.NoError(t, os.WriteFile(lib, []byte("not a shared library"), 0o644))

	err := NewRuntime(lib, logger.NewNop()).Init()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInitFailed)
	assert.True(t, IsUnavailable(err))
	assert.True(t, IsUnavailable(ErrLibraryMissing))
	assert.False(t, IsUnavailable(errors.New("inference failed")))
}

func TestRuntimeBareLibraryNameIsAssumedPresent(t *testing.T) {
	assert.True(t, NewRuntime("libonnxruntime.so", logger.NewNop()).LibraryPresent())
	assert.False(t, NewRuntime("", logger.NewNop()).LibraryPresent())
}
