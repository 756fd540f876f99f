package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsParseDocumentedForms(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"long", []string{"--in", "in.jpg", "--out", "out.jpg", "--format", "jpeg", "--quality", "90", "--backup=false"}},
		{"short", []string{"-i", "in.jpg", "-o", "out.jpg", "-f", "jpeg", "-q", "90", "--backup=false"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := newFlags(pflag.ContinueOnError)
			require.NoError(t, cli.set.Parse(tt.args))

			assert.Equal(t, "in.jpg", *cli.input)
			assert.Equal(t, "out.jpg", *cli.output)

			format, err := cli.set.GetString("format")
			require.NoError(t, err)
			assert.Equal(t, "jpeg", format)

			quality, err := cli.set.GetInt("quality")
			require.NoError(t, err)
			assert.Equal(t, 90, quality)

			backup, err := cli.set.GetBool("backup")
			require.NoError(t, err)
			assert.False(t, backup)
		})
	}
}

func TestFlagsDefaults(t *testing.T) {
	cli := newFlags(pflag.ContinueOnError)
	require.NoError(t, cli.set.Parse(nil))

	assert.Empty(t, *cli.input)
	quality, err := cli.set.GetInt("quality")
	require.NoError(t, err)
	assert.Equal(t, 95, quality)
	backup, err := cli.set.GetBool("backup")
	require.NoError(t, err)
	assert.True(t, backup)
}
