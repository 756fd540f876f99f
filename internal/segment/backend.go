// Package segment defines the contract shared by the background segmentation
// backends and the typed result they return.
package segment

import (
	"context"
	"fmt"

	"backdrop-remover/internal/apperrors"
	"backdrop-remover/internal/raster"
)

// Backend names used in configuration and progress events.
const (
	NameMatting = "matting"
	NameSelfie  = "selfie"
	NameGrabCut = "grabcut"
)

// Backend turns an image into a foreground-masked RGBA image. Implementations
// must not modify the input buffer.
type Backend interface {
	Name() string
	Label() string
	Segment(ctx context.Context, img *raster.Buffer) Result
}

// Prober is implemented by backends that can tell without loading anything
// whether they are installed. A non-nil error means unavailable.
type Prober interface {
	Probe() error
}

// Failure explains why a backend produced no image.
type Failure struct {
	Kind    apperrors.Kind
	Backend string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s backend: %s: %v", f.Backend, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Result is either an RGBA image with its mask, or a Failure.
type Result struct {
	Backend string
	Image   *raster.Buffer
	Mask    *raster.Mask
	Failure *Failure
}

func (r Result) OK() bool {
	return r.Failure == nil && r.Image != nil
}

func (r Result) Unavailable() bool {
	return r.Failure != nil && r.Failure.Kind == apperrors.BackendUnavailable
}

// Succeeded builds a successful result by applying mask to src.
func Succeeded(backend string, src *raster.Buffer, mask *raster.Mask) Result {
	img, err := raster.ApplyMask(src, mask)
	if err != nil {
		return RuntimeError(backend, fmt.Errorf("apply mask: %w", err))
	}
	return Result{Backend: backend, Image: img, Mask: mask}
}

func Unavailable(backend string, err error) Result {
	return Result{Backend: backend, Failure: &Failure{Kind: apperrors.BackendUnavailable, Backend: backend, Err: err}}
}

func RuntimeError(backend string, err error) Result {
	return Result{Backend: backend, Failure: &Failure{Kind: apperrors.BackendRuntimeError, Backend: backend, Err: err}}
}

// Guard runs fn and converts a panic into a runtime-error result.
func Guard(backend string, fn func() Result) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = RuntimeError(backend, fmt.Errorf("panic: %v", r))
		}
	}()
	return fn()
}
