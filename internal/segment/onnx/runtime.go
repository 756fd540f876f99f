// Package onnx wraps the ONNX Runtime environment and single-input,
// single-output float sessions used by the neural backends.
package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"backdrop-remover/internal/logger"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ErrLibraryMissing = errors.New("onnx runtime library not found")
	ErrInitFailed     = errors.New("onnx runtime failed to initialize")
)

// IsUnavailable reports whether err means the runtime itself cannot be used,
// as opposed to a problem with one model.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrLibraryMissing) || errors.Is(err, ErrInitFailed)
}

// Runtime owns the process-wide ONNX Runtime environment.
type Runtime struct {
	libraryPath string
	logger      logger.Logger

	once    sync.Once
	initErr error
}

func NewRuntime(libraryPath string, log logger.Logger) *Runtime {
	return &Runtime{libraryPath: libraryPath, logger: log}
}

// LibraryPresent is a cheap check that never loads the library. Bare file
// names are resolved by the dynamic loader, so they are assumed present.
func (r *Runtime) LibraryPresent() bool {
	if r.libraryPath == "" {
		return false
	}
	if filepath.Base(r.libraryPath) == r.libraryPath {
		return true
	}
	_, err := os.Stat(r.libraryPath)
	return err == nil
}

// Installed checks that the library and modelPath exist without loading
// either.
func (r *Runtime) Installed(modelPath string) error {
	if !r.LibraryPresent() {
		return fmt.Errorf("%w: %q", ErrLibraryMissing, r.libraryPath)
	}
	if modelPath == "" {
		return fmt.Errorf("model path not configured")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return fmt.Errorf("model not installed: %w", err)
	}
	return nil
}

// Init loads the shared library and creates the environment once. Later calls
// return the first outcome.
func (r *Runtime) Init() error {
	r.once.Do(func() {
		if !r.LibraryPresent() {
			r.initErr = fmt.Errorf("%w: %s", ErrLibraryMissing, r.libraryPath)
			return
		}

		if ort.IsInitialized() {
			return
		}

		ort.SetSharedLibraryPath(r.libraryPath)
		if err := ort.InitializeEnvironment(); err != nil {
			r.initErr = fmt.Errorf("%w: %w", ErrInitFailed, err)
			return
		}

		r.logger.Info("OnnxRuntime", "environment initialized", map[string]interface{}{
			"library": r.libraryPath,
		})
	})
	return r.initErr
}

func (r *Runtime) Shutdown() {
	if !ort.IsInitialized() {
		return
	}
	if err := ort.DestroyEnvironment(); err != nil {
		r.logger.Error("OnnxRuntime", err, map[string]interface{}{
			"operation": "destroy_environment",
		})
		return
	}
	r.logger.Info("OnnxRuntime", "environment destroyed", nil)
}
