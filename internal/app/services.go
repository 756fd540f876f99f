package app

import (
	"fmt"

	"backdrop-remover/internal/config"
	"backdrop-remover/internal/logger"
	"backdrop-remover/internal/pipeline"
	"backdrop-remover/internal/segment"
	"backdrop-remover/internal/segment/grabcut"
	"backdrop-remover/internal/segment/matting"
	"backdrop-remover/internal/segment/onnx"
	"backdrop-remover/internal/segment/selfie"
)

// Services is the processing core shared by the GUI and headless modes.
type Services struct {
	Config       *config.Config
	Logger       logger.Logger
	Runtime      *onnx.Runtime
	Orchestrator *pipeline.Orchestrator
	Runner       *pipeline.Runner

	matting *matting.Backend
	selfie  *selfie.Backend
}

// NewLogger builds the logger described by cfg. A log file, when set, is
// rotated and mirrored to the console.
func NewLogger(cfg config.LogConfig) logger.Logger {
	level := logger.ParseLevel(cfg.Level)
	if cfg.File == "" {
		return logger.NewConsoleLogger(level)
	}

	return logger.NewFileLogger(logger.FileOptions{
		Path:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
	}, level, true)
}

// NewServices wires the backends in policy order. Missing models or runtime
// libraries are not errors here; those backends report themselves
// unavailable on first use.
func NewServices(cfg *config.Config, log logger.Logger) (*Services, error) {
	runtime := onnx.NewRuntime(cfg.Runtime.LibraryPath, log)

	mattingBackend := matting.New(runtime, cfg.Models.Matting, log)
	selfieBackend := selfie.New(runtime, cfg.Models.Selfie, log)
	grabcutBackend := grabcut.New(cfg.GrabCut.Padding, cfg.GrabCut.Iterations, log)

	backends, err := pipeline.OrderBackends(
		[]segment.Backend{mattingBackend, selfieBackend, grabcutBackend},
		cfg.Pipeline.Policy,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid backend policy: %w", err)
	}

	names := make([]string, 0, len(backends))
	for _, b := range backends {
		names = append(names, b.Name())
	}
	log.Info("Services", "backends configured", map[string]interface{}{
		"policy":          names,
		"runtime_library": cfg.Runtime.LibraryPath,
		"runtime_present": runtime.LibraryPresent(),
	})

	orchestrator := pipeline.NewOrchestrator(backends, log)

	return &Services{
		Config:       cfg,
		Logger:       log,
		Runtime:      runtime,
		Orchestrator: orchestrator,
		Runner:       pipeline.NewRunner(orchestrator, log),
		matting:      mattingBackend,
		selfie:       selfieBackend,
	}, nil
}

// DefaultOptions returns the job options configured under output.
func (s *Services) DefaultOptions() (pipeline.Options, error) {
	format, err := pipeline.ParseFormat(s.Config.Output.Format)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.Options{
		Format:  format,
		Quality: s.Config.Output.Quality,
		Backup:  s.Config.Output.Backup,
	}
	return opts, opts.Validate()
}

// Shutdown releases model sessions and the ONNX environment.
func (s *Services) Shutdown() {
	for name, closer := range map[string]interface{ Close() error }{
		segment.NameMatting: s.matting,
		segment.NameSelfie:  s.selfie,
	} {
		if err := closer.Close(); err != nil {
			s.Logger.Error("Services", err, map[string]interface{}{
				"backend": name,
			})
		}
	}

	s.Runtime.Shutdown()
	s.Logger.Info("Services", "shutdown completed", nil)
}
