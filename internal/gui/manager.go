package gui

import (
	"backdrop-remover/internal/logger"
	"backdrop-remover/internal/pipeline"

	"fyne.io/fyne/v2"
)

type Manager struct {
	controller *Controller
	view       *View
	logger     logger.Logger
	isShutdown bool
}

func NewManager(window fyne.Window, runner JobSubmitter, defaults pipeline.Options, log logger.Logger) (*Manager, error) {
	manager := &Manager{logger: log}

	manager.view = NewView(window, defaults)
	manager.controller = NewController(runner, defaults, log)
	manager.view.SetController(manager.controller)
	manager.controller.SetView(manager.view)

	log.Info("GUIManager", "initialized", map[string]interface{}{
		"window_title": window.Title(),
		"format":       string(defaults.Format),
	})

	return manager, nil
}

func (m *Manager) Show() {
	m.view.Show()
	m.logger.Info("GUIManager", "GUI displayed", nil)
}

func (m *Manager) Shutdown() {
	if m.isShutdown {
		return
	}

	m.isShutdown = true
	m.logger.Info("GUIManager", "shutdown initiated", nil)

	if m.controller != nil {
		m.controller.Shutdown()
	}

	if m.view != nil {
		m.view.Shutdown()
	}

	m.logger.Info("GUIManager", "shutdown completed", nil)
}
