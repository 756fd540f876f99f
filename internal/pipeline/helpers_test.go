package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"sync/atomic"
	"testing"

	"backdrop-remover/internal/raster"
	"backdrop-remover/internal/segment"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name    string
	calls   int32
	segment func(img *raster.Buffer) segment.Result
}

func (f *fakeBackend) Name() string  { return f.name }
func (f *fakeBackend) Label() string { return "fake " + f.name }

func (f *fakeBackend) Segment(_ context.Context, img *raster.Buffer) segment.Result {
	atomic.AddInt32(&f.calls, 1)
	return f.segment(img)
}

func (f *fakeBackend) Calls() int {
	return int(atomic.LoadInt32(&f.calls))
}

func unavailableBackend(name string) *fakeBackend {
	return &fakeBackend{name: name, segment: func(*raster.Buffer) segment.Result {
		return segment.Unavailable(name, errors.New("not installed"))
	}}
}

// probedBackend reports probeErr from Probe before any Segment call.
type probedBackend struct {
	*fakeBackend
	probes   int32
	probeErr error
}

func (p *probedBackend) Probe() error {
	atomic.AddInt32(&p.probes, 1)
	return p.probeErr
}

func notInstalledBackend(name string) *probedBackend {
	return &probedBackend{fakeBackend: halfAlphaBackend(name), probeErr: errors.New("model file missing")}
}

func brokenBackend(name string) *fakeBackend {
	return &fakeBackend{name: name, segment: func(*raster.Buffer) segment.Result {
		return segment.RuntimeError(name, errors.New("inference exploded"))
	}}
}

// halfAlphaBackend keeps every pixel at alpha 128.
func halfAlphaBackend(name string) *fakeBackend {
	return &fakeBackend{name: name, segment: func(img *raster.Buffer) segment.Result {
		mask, err := raster.NewMask(img.Width, img.Height)
		if err != nil {
			return segment.RuntimeError(name, err)
		}
		for i := range mask.Pix {
			mask.Pix[i] = 128
		}
		return segment.Succeeded(name, img.ToRGB(), mask)
	}}
}

func solidBuffer(t *testing.T, w, h int, c color.NRGBA) *raster.Buffer {
	t.Helper()
	buf, err := raster.NewBuffer(w, h, raster.RGB)
	require.NoError(t, err)
	for i := 0; i < len(buf.Pix); i += 3 {
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = c.R, c.G, c.B
	}
	return buf
}

func writeSolidImage(t *testing.T, dir, name string, w, h int, c color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

type panickingProcessor struct{}

func (panickingProcessor) ProcessObserved(context.Context, *raster.Buffer, Observer) (*raster.Buffer, string, error) {
	panic("model crashed")
}

func (panickingProcessor) Backends() []segment.Backend { return nil }
