// Package raster holds the pixel buffers that flow between the decoder, the
// segmentation backends and the compositor.
package raster

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

const (
	RGB  = 3
	RGBA = 4
)

// Buffer is an interleaved 8-bit image with straight alpha when Channels is 4.
type Buffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

func NewBuffer(width, height, channels int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", width, height)
	}
	if channels != RGB && channels != RGBA {
		return nil, fmt.Errorf("unsupported channel count: %d", channels)
	}

	return &Buffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}, nil
}

// Validate checks the buffer invariants.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("buffer is nil")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", b.Width, b.Height)
	}
	if b.Channels != RGB && b.Channels != RGBA {
		return fmt.Errorf("unsupported channel count: %d", b.Channels)
	}
	if len(b.Pix) != b.Width*b.Height*b.Channels {
		return fmt.Errorf("pixel data length %d does not match %dx%dx%d",
			len(b.Pix), b.Width, b.Height, b.Channels)
	}
	return nil
}

func (b *Buffer) HasAlpha() bool {
	return b.Channels == RGBA
}

func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Width: b.Width, Height: b.Height, Channels: b.Channels, Pix: pix}
}

// At returns the pixel at (x, y); alpha is 255 for RGB buffers.
func (b *Buffer) At(x, y int) color.NRGBA {
	i := (y*b.Width + x) * b.Channels
	c := color.NRGBA{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: 255}
	if b.Channels == RGBA {
		c.A = b.Pix[i+3]
	}
	return c
}

// ToRGB returns a 3-channel copy, dropping any alpha channel as-is.
func (b *Buffer) ToRGB() *Buffer {
	if b.Channels == RGB {
		return b.Clone()
	}

	out := &Buffer{Width: b.Width, Height: b.Height, Channels: RGB, Pix: make([]uint8, b.Width*b.Height*RGB)}
	for src, dst := 0, 0; src < len(b.Pix); src, dst = src+RGBA, dst+RGB {
		out.Pix[dst] = b.Pix[src]
		out.Pix[dst+1] = b.Pix[src+1]
		out.Pix[dst+2] = b.Pix[src+2]
	}
	return out
}

// ToNRGBA converts the buffer to a standard library image.
func (b *Buffer) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	if b.Channels == RGBA {
		copy(img.Pix, b.Pix)
		return img
	}

	for src, dst := 0, 0; src < len(b.Pix); src, dst = src+RGB, dst+RGBA {
		img.Pix[dst] = b.Pix[src]
		img.Pix[dst+1] = b.Pix[src+1]
		img.Pix[dst+2] = b.Pix[src+2]
		img.Pix[dst+3] = 255
	}
	return img
}

// ToImage returns an image.Image suited to the buffer's layout: NRGBA for
// RGBA buffers and opaque RGBA for RGB buffers.
func (b *Buffer) ToImage() image.Image {
	if b.Channels == RGBA {
		return b.ToNRGBA()
	}

	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for src, dst := 0, 0; src < len(b.Pix); src, dst = src+RGB, dst+RGBA {
		img.Pix[dst] = b.Pix[src]
		img.Pix[dst+1] = b.Pix[src+1]
		img.Pix[dst+2] = b.Pix[src+2]
		img.Pix[dst+3] = 255
	}
	return img
}

type opaquer interface {
	Opaque() bool
}

// FromImage copies img into a new Buffer. Images that report themselves as
// opaque become RGB, everything else RGBA.
func FromImage(img image.Image) (*Buffer, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || bounds.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	}

	channels := RGBA
	if o, ok := img.(opaquer); ok && o.Opaque() {
		channels = RGB
	}

	buf, err := NewBuffer(bounds.Dx(), bounds.Dy(), channels)
	if err != nil {
		return nil, err
	}

	rowLen := bounds.Dx() * RGBA
	for y := 0; y < buf.Height; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+rowLen]
		if channels == RGBA {
			copy(buf.Pix[y*rowLen:], row)
			continue
		}
		dst := y * buf.Width * RGB
		for x := 0; x < rowLen; x += RGBA {
			buf.Pix[dst] = row[x]
			buf.Pix[dst+1] = row[x+1]
			buf.Pix[dst+2] = row[x+2]
			dst += RGB
		}
	}

	return buf, nil
}
