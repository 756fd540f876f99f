package pipeline

import (
	"testing"

	"backdrop-remover/internal/apperrors"
	"backdrop-remover/internal/imageio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, FormatTransparentPNG, opts.Format)
	assert.Equal(t, 95, opts.Quality)
	assert.True(t, opts.Backup)
	assert.NoError(t, opts.Validate())
}

func TestOptionsValidate(t *testing.T) {
	cases := []struct {
		name string
		opts Options
	}{
		{"quality zero", Options{Format: FormatJPEG, Quality: 0}},
		{"quality too high", Options{Format: FormatJPEG, Quality: 101}},
		{"unknown format", Options{Format: "webp", Quality: 90}},
		{"missing format", Options{Quality: 90}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			require.Error(t, err)
			assert.Equal(t, apperrors.InvalidOptions, apperrors.KindOf(err))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JPG")
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, f)

	f, err = ParseFormat("png-black")
	require.NoError(t, err)
	assert.Equal(t, FormatPNGBlack, f)

	_, err = ParseFormat("tiff")
	assert.True(t, apperrors.IsKind(err, apperrors.InvalidOptions))
}

func TestFormatContainer(t *testing.T) {
	assert.Equal(t, imageio.JPEG, FormatJPEG.Container())
	assert.Equal(t, imageio.PNG, FormatPNGWhite.Container())
	assert.Equal(t, ".jpg", FormatJPEG.Extension())
	assert.Equal(t, ".png", FormatTransparentPNG.Extension())
}
