// Package pipeline turns an input file into a background-free output file:
// it tries segmentation backends in order, composites the result for the
// requested format and runs one job at a time off the caller's goroutine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"backdrop-remover/internal/apperrors"
	"backdrop-remover/internal/logger"
	"backdrop-remover/internal/raster"
	"backdrop-remover/internal/segment"
)

// DefaultPolicy is the backend order used when none is configured.
var DefaultPolicy = []string{segment.NameMatting, segment.NameSelfie, segment.NameGrabCut}

// Observer is told about every backend the orchestrator is about to call.
type Observer func(backend segment.Backend)

// Orchestrator tries backends in policy order until one succeeds. Backends
// that report themselves unavailable are skipped by every later call.
type Orchestrator struct {
	backends []segment.Backend
	logger   logger.Logger

	mu          sync.Mutex
	unavailable map[string]bool
}

func NewOrchestrator(backends []segment.Backend, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		backends:    backends,
		logger:      log,
		unavailable: make(map[string]bool),
	}
}

// OrderBackends arranges backends by policy. Unknown or repeated names are
// rejected; backends the policy does not mention are left out.
func OrderBackends(backends []segment.Backend, policy []string) ([]segment.Backend, error) {
	if len(policy) == 0 {
		policy = DefaultPolicy
	}

	byName := make(map[string]segment.Backend, len(backends))
	for _, b := range backends {
		byName[b.Name()] = b
	}

	ordered := make([]segment.Backend, 0, len(policy))
	seen := make(map[string]bool, len(policy))
	for _, name := range policy {
		b, ok := byName[name]
		if !ok {
			return nil, apperrors.New(apperrors.InvalidOptions, fmt.Sprintf("unknown backend %q in policy", name))
		}
		if seen[name] {
			return nil, apperrors.New(apperrors.InvalidOptions, fmt.Sprintf("backend %q listed twice in policy", name))
		}
		seen[name] = true
		ordered = append(ordered, b)
	}
	return ordered, nil
}

func (o *Orchestrator) Backends() []segment.Backend {
	return o.backends
}

// Process returns the first successful backend image and that backend's name.
func (o *Orchestrator) Process(ctx context.Context, img *raster.Buffer) (*raster.Buffer, string, error) {
	return o.ProcessObserved(ctx, img, nil)
}

func (o *Orchestrator) ProcessObserved(ctx context.Context, img *raster.Buffer, observe Observer) (*raster.Buffer, string, error) {
	if err := img.Validate(); err != nil {
		return nil, "", apperrors.Wrap(apperrors.Internal, err, "invalid input buffer")
	}

	var failures []error
	for _, backend := range o.backends {
		name := backend.Name()
		if o.isUnavailable(name) {
			continue
		}

		if prober, ok := backend.(segment.Prober); ok {
			if err := prober.Probe(); err != nil {
				o.markUnavailable(name)
				o.logger.Debug("Orchestrator", "backend not installed, skipping", map[string]interface{}{
					"backend": name,
					"reason":  err.Error(),
				})
				continue
			}
		}

		if observe != nil {
			observe(backend)
		}

		start := time.Now()
		res := backend.Segment(ctx, img)

		if res.OK() && (res.Image.Width != img.Width || res.Image.Height != img.Height) {
			res = segment.RuntimeError(name, fmt.Errorf("output is %dx%d, input is %dx%d",
				res.Image.Width, res.Image.Height, img.Width, img.Height))
		}

		switch {
		case res.OK():
			o.logger.Info("Orchestrator", "background removed", map[string]interface{}{
				"backend":  name,
				"width":    img.Width,
				"height":   img.Height,
				"duration": time.Since(start),
			})
			return res.Image, name, nil
		case res.Unavailable():
			o.markUnavailable(name)
			o.logger.Debug("Orchestrator", "backend unavailable, skipping", map[string]interface{}{
				"backend": name,
				"reason":  failureText(res.Failure),
			})
		default:
			if res.Failure == nil {
				res = segment.RuntimeError(name, errors.New("backend returned no image"))
			}
			failures = append(failures, res.Failure)
			o.logger.Warning("Orchestrator", "backend failed, falling back", map[string]interface{}{
				"backend": name,
				"error":   failureText(res.Failure),
			})
		}
	}

	return nil, "", apperrors.Wrap(apperrors.AllBackendsFailed, errors.Join(failures...),
		"no segmentation backend could process the image")
}

// Unavailable lists backends that will be skipped.
func (o *Orchestrator) Unavailable() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	names := make([]string, 0, len(o.unavailable))
	for _, b := range o.backends {
		if o.unavailable[b.Name()] {
			names = append(names, b.Name())
		}
	}
	return names
}

func (o *Orchestrator) isUnavailable(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.unavailable[name]
}

func (o *Orchestrator) markUnavailable(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unavailable[name] = true
}

func failureText(f *segment.Failure) string {
	if f == nil || f.Err == nil {
		return ""
	}
	return f.Err.Error()
}
