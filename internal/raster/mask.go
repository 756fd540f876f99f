package raster

import (
	"fmt"
	"image"
	"image/color"
)

// Mask is a single-channel foreground opacity map, 0 = background, 255 = foreground.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewMask(width, height int) (*Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid mask dimensions: %dx%d", width, height)
	}
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}, nil
}

// NewOpaqueMask returns a mask that keeps every pixel.
func NewOpaqueMask(width, height int) (*Mask, error) {
	m, err := NewMask(width, height)
	if err != nil {
		return nil, err
	}
	for i := range m.Pix {
		m.Pix[i] = 255
	}
	return m, nil
}

// MaskFromGray copies a grayscale image into a Mask.
func MaskFromGray(gray *image.Gray) (*Mask, error) {
	bounds := gray.Bounds()
	m, err := NewMask(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}
	for y := 0; y < m.Height; y++ {
		srcRow := gray.Pix[(y)*gray.Stride : (y)*gray.Stride+m.Width]
		copy(m.Pix[y*m.Width:], srcRow)
	}
	return m, nil
}

// MaskFromFloats scales confidences in [0,1] to [0,255] without thresholding.
func MaskFromFloats(width, height int, values []float32) (*Mask, error) {
	if len(values) != width*height {
		return nil, fmt.Errorf("mask data length %d does not match %dx%d", len(values), width, height)
	}
	m, err := NewMask(width, height)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		m.Pix[i] = clampUnit(v)
	}
	return m, nil
}

func (m *Mask) ToGray() *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(gray.Pix, m.Pix)
	return gray
}

func (m *Mask) At(x, y int) uint8 {
	return m.Pix[y*m.Width+x]
}

// Matches reports whether the mask has the same size as b.
func (m *Mask) Matches(b *Buffer) bool {
	return m != nil && b != nil && m.Width == b.Width && m.Height == b.Height
}

// ApplyMask returns a new RGBA buffer carrying b's colour and m as alpha.
// Any alpha channel already present in b is replaced.
func ApplyMask(b *Buffer, m *Mask) (*Buffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if !m.Matches(b) {
		return nil, fmt.Errorf("mask %dx%d does not match image %dx%d", m.Width, m.Height, b.Width, b.Height)
	}

	out := &Buffer{Width: b.Width, Height: b.Height, Channels: RGBA, Pix: make([]uint8, b.Width*b.Height*RGBA)}
	for i := 0; i < b.Width*b.Height; i++ {
		src := i * b.Channels
		dst := i * RGBA
		out.Pix[dst] = b.Pix[src]
		out.Pix[dst+1] = b.Pix[src+1]
		out.Pix[dst+2] = b.Pix[src+2]
		out.Pix[dst+3] = m.Pix[i]
	}
	return out, nil
}

func clampUnit(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

// MaskFromImage converts any image of the given size to a Mask via its
// luminance.
func MaskFromImage(img image.Image, width, height int) (*Mask, error) {
	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		return nil, fmt.Errorf("mask image is %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), width, height)
	}

	if gray, ok := img.(*image.Gray); ok {
		return MaskFromGray(gray)
	}

	m, err := NewMask(width, height)
	if err != nil {
		return nil, err
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			m.Pix[y*width+x] = g.Y
		}
	}
	return m, nil
}
