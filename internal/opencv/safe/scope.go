// Package safe keeps gocv Mat lifetimes and preconditions in one place so
// backends cannot leak native memory on early returns.
package safe

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

const maxDimension = 32768

// Scope owns every Mat tracked through it and closes them together.
type Scope struct {
	mu   sync.Mutex
	mats []*gocv.Mat
}

func NewScope() *Scope {
	return &Scope{}
}

// Track takes ownership of mat and returns a stable pointer to it, suitable
// as a gocv destination argument.
func (s *Scope) Track(mat gocv.Mat) *gocv.Mat {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned := &mat
	s.mats = append(s.mats, owned)
	return owned
}

func (s *Scope) NewMat() *gocv.Mat {
	return s.Track(gocv.NewMat())
}

func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mats)
}

// Close releases tracked Mats in reverse order. Calling it twice is harmless.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.mats) - 1; i >= 0; i-- {
		s.mats[i].Close()
	}
	s.mats = nil
}

func ValidateDimensions(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", cols, rows)
	}

	if rows > maxDimension || cols > maxDimension {
		return fmt.Errorf("dimensions %dx%d exceed maximum size", cols, rows)
	}

	return nil
}

func ValidateMatForOperation(mat *gocv.Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation: %s", operation)
	}

	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}

	if err := ValidateDimensions(mat.Rows(), mat.Cols()); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	return nil
}

// ValidateShape checks that mat matches the expected size and channel count.
func ValidateShape(mat *gocv.Mat, rows, cols, channels int, operation string) error {
	if err := ValidateMatForOperation(mat, operation); err != nil {
		return err
	}

	if mat.Rows() != rows || mat.Cols() != cols {
		return fmt.Errorf("%s produced %dx%d, want %dx%d", operation, mat.Cols(), mat.Rows(), cols, rows)
	}

	if mat.Channels() != channels {
		return fmt.Errorf("%s produced %d channels, want %d", operation, mat.Channels(), channels)
	}

	return nil
}
