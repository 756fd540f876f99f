// Package bridge converts between raster buffers and gocv Mats.
package bridge

import (
	"fmt"

	"backdrop-remover/internal/opencv/safe"
	"backdrop-remover/internal/raster"

	"gocv.io/x/gocv"
)

// BufferToBGR copies buf into a new 8-bit BGR Mat. Alpha is dropped.
// The caller owns the returned Mat.
func BufferToBGR(buf *raster.Buffer) (gocv.Mat, error) {
	if err := buf.Validate(); err != nil {
		return gocv.NewMat(), err
	}
	if err := safe.ValidateDimensions(buf.Height, buf.Width); err != nil {
		return gocv.NewMat(), err
	}

	bgr := make([]byte, buf.Width*buf.Height*3)
	for i, j := 0, 0; i < len(buf.Pix); i, j = i+buf.Channels, j+3 {
		bgr[j] = buf.Pix[i+2]
		bgr[j+1] = buf.Pix[i+1]
		bgr[j+2] = buf.Pix[i]
	}

	mat, err := gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC3, bgr)
	if err != nil {
		return mat, fmt.Errorf("create BGR Mat: %w", err)
	}
	return mat, nil
}

// MatToMask reads a single channel Mat into a mask. 8-bit Mats are copied
// as is, 32-bit float Mats are read as coverage in [0,1].
func MatToMask(mat *gocv.Mat) (*raster.Mask, error) {
	if err := safe.ValidateMatForOperation(mat, "MatToMask"); err != nil {
		return nil, err
	}
	if mat.Channels() != 1 {
		return nil, fmt.Errorf("mask Mat has %d channels, want 1", mat.Channels())
	}

	rows, cols := mat.Rows(), mat.Cols()
	src := *mat
	if !mat.IsContinuous() {
		src = mat.Clone()
		defer src.Close()
	}

	switch src.Type() {
	case gocv.MatTypeCV8UC1:
		data, err := src.DataPtrUint8()
		if err != nil {
			return nil, fmt.Errorf("read 8-bit mask: %w", err)
		}
		mask, err := raster.NewMask(cols, rows)
		if err != nil {
			return nil, err
		}
		copy(mask.Pix, data)
		return mask, nil
	case gocv.MatTypeCV32FC1:
		data, err := src.DataPtrFloat32()
		if err != nil {
			return nil, fmt.Errorf("read float mask: %w", err)
		}
		return raster.MaskFromFloats(cols, rows, data)
	default:
		return nil, fmt.Errorf("unsupported mask Mat type: %v", src.Type())
	}
}
