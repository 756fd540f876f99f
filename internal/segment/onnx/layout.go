package onnx

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ImageLayout describes where height, width and channels live in a 4-D
// image tensor.
type ImageLayout struct {
	ChannelsLast bool
	Height       int
	Width        int
	Channels     int
}

// LayoutOf recognises NCHW ([1,C,H,W]) and NHWC ([1,H,W,C]) tensors with one
// or three channels.
func LayoutOf(shape ort.Shape) (ImageLayout, error) {
	if len(shape) != 4 {
		return ImageLayout{}, fmt.Errorf("expected 4-D image tensor, got %v", shape)
	}

	isChannels := func(d int64) bool { return d == 1 || d == 3 }

	switch {
	case isChannels(shape[1]) && !isChannels(shape[3]):
		return ImageLayout{Channels: int(shape[1]), Height: int(shape[2]), Width: int(shape[3])}, nil
	case isChannels(shape[3]):
		return ImageLayout{ChannelsLast: true, Height: int(shape[1]), Width: int(shape[2]), Channels: int(shape[3])}, nil
	default:
		return ImageLayout{}, fmt.Errorf("cannot infer channel axis of %v", shape)
	}
}

// Index returns the flat offset of (y, x, c).
func (l ImageLayout) Index(y, x, c int) int {
	if l.ChannelsLast {
		return (y*l.Width+x)*l.Channels + c
	}
	return c*l.Height*l.Width + y*l.Width + x
}
