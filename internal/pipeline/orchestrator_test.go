package pipeline

import (
	"context"
	"image/color"
	"sync/atomic"
	"testing"

	"backdrop-remover/internal/apperrors"
	"backdrop-remover/internal/logger"
	"backdrop-remover/internal/raster"
	"backdrop-remover/internal/segment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var red = color.NRGBA{R: 255, A: 255}

func TestProcessStopsAtFirstSuccess(t *testing.T) {
	first := halfAlphaBackend("matting")
	second := halfAlphaBackend("selfie")
	o := NewOrchestrator([]segment.Backend{first, second}, logger.NewNop())

	out, name, err := o.Process(context.Background(), solidBuffer(t, 7, 5, red))

	require.NoError(t, err)
	assert.Equal(t, "matting", name)
	assert.Equal(t, 7, out.Width)
	assert.Equal(t, 5, out.Height)
	assert.Equal(t, raster.RGBA, out.Channels)
	assert.Equal(t, 1, first.Calls())
	assert.Equal(t, 0, second.Calls())
}

func TestProcessRemembersUnavailableBackends(t *testing.T) {
	missing := unavailableBackend("matting")
	last := halfAlphaBackend("grabcut")
	o := NewOrchestrator([]segment.Backend{missing, last}, logger.NewNop())

	for i := 0; i < 3; i++ {
		_, name, err := o.Process(context.Background(), solidBuffer(t, 4, 4, red))
		require.NoError(t, err)
		assert.Equal(t, "grabcut", name)
	}

	assert.Equal(t, 1, missing.Calls())
	assert.Equal(t, 3, last.Calls())
	assert.Equal(t, []string{"matting"}, o.Unavailable())
}

func TestProcessRetriesRuntimeErrorsOnLaterJobsOnly(t *testing.T) {
	broken := brokenBackend("selfie")
	last := halfAlphaBackend("grabcut")
	o := NewOrchestrator([]segment.Backend{broken, last}, logger.NewNop())

	for i := 0; i < 2; i++ {
		_, name, err := o.Process(context.Background(), solidBuffer(t, 4, 4, red))
		require.NoError(t, err)
		assert.Equal(t, "grabcut", name)
	}

	assert.Equal(t, 2, broken.Calls())
	assert.Empty(t, o.Unavailable())
}

func TestProcessAllBackendsFailed(t *testing.T) {
	a := brokenBackend("matting")
	b := unavailableBackend("selfie")
	o := NewOrchestrator([]segment.Backend{a, b}, logger.NewNop())

	_, _, err := o.Process(context.Background(), solidBuffer(t, 4, 4, red))

	require.Error(t, err)
	assert.Equal(t, apperrors.AllBackendsFailed, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "inference exploded")
	assert.Equal(t, 1, a.Calls())
	assert.Equal(t, 1, b.Calls())
}

func TestProcessTreatsWrongSizeAsRuntimeError(t *testing.T) {
	shrinking := &fakeBackend{name: "matting", segment: func(img *raster.Buffer) segment.Result {
		small, _ := raster.NewBuffer(img.Width/2, img.Height/2, raster.RGB)
		mask, _ := raster.NewOpaqueMask(small.Width, small.Height)
		return segment.Succeeded("matting", small, mask)
	}}
	last := halfAlphaBackend("grabcut")
	o := NewOrchestrator([]segment.Backend{shrinking, last}, logger.NewNop())

	out, name, err := o.Process(context.Background(), solidBuffer(t, 10, 8, red))

	require.NoError(t, err)
	assert.Equal(t, "grabcut", name)
	assert.Equal(t, 10, out.Width)
	assert.Equal(t, 8, out.Height)
}

func TestProcessObservedReportsAttempts(t *testing.T) {
	o := NewOrchestrator([]segment.Backend{
		unavailableBackend("matting"),
		brokenBackend("selfie"),
		halfAlphaBackend("grabcut"),
	}, logger.NewNop())

	var seen []string
	observe := func(b segment.Backend) { seen = append(seen, b.Name()) }

	_, _, err := o.ProcessObserved(context.Background(), solidBuffer(t, 3, 3, red), observe)
	require.NoError(t, err)
	assert.Equal(t, []string{"matting", "selfie", "grabcut"}, seen)

	seen = nil
	_, _, err = o.ProcessObserved(context.Background(), solidBuffer(t, 3, 3, red), observe)
	require.NoError(t, err)
	assert.Equal(t, []string{"selfie", "grabcut"}, seen)
}

func TestProcessSkipsBackendsThatAreNotInstalled(t *testing.T) {
	matting := notInstalledBackend("matting")
	o := NewOrchestrator([]segment.Backend{matting, halfAlphaBackend("grabcut")}, logger.NewNop())

	var seen []string
	observe := func(b segment.Backend) { seen = append(seen, b.Name()) }

	for i := 0; i < 2; i++ {
		_, name, err := o.ProcessObserved(context.Background(), solidBuffer(t, 3, 3, red), observe)
		require.NoError(t, err)
		assert.Equal(t, "grabcut", name)
	}

	assert.Equal(t, []string{"grabcut", "grabcut"}, seen)
	assert.Equal(t, 0, matting.Calls())
	assert.Equal(t, int32(1), atomic.LoadInt32(&matting.probes))
	assert.Equal(t, []string{"matting"}, o.Unavailable())
}

func TestProcessDoesNotMutateInput(t *testing.T) {
	o := NewOrchestrator([]segment.Backend{halfAlphaBackend("grabcut")}, logger.NewNop())
	in := solidBuffer(t, 3, 3, red)
	before := in.Clone()

	_, _, err := o.Process(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, before, in)
}

func TestOrderBackends(t *testing.T) {
	m, s, g := halfAlphaBackend("matting"), halfAlphaBackend("selfie"), halfAlphaBackend("grabcut")
	all := []segment.Backend{g, s, m}

	ordered, err := OrderBackends(all, nil)
	require.NoError(t, err)
	assert.Equal(t, []segment.Backend{m, s, g}, ordered)

	ordered, err = OrderBackends(all, []string{"selfie", "grabcut"})
	require.NoError(t, err)
	assert.Equal(t, []segment.Backend{s, g}, ordered)

	_, err = OrderBackends(all, []string{"rembg"})
	assert.True(t, apperrors.IsKind(err, apperrors.InvalidOptions))

	_, err = OrderBackends(all, []string{"selfie", "selfie"})
	assert.Error(t, err)
}
