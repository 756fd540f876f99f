package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"backdrop-remover/internal/gui"
	"backdrop-remover/internal/gui/widgets"
	"backdrop-remover/internal/logger"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

const (
	AppName    = "Backdrop Remover"
	AppID      = "io.github.backdrop-remover"
	AppVersion = "1.0.0"
)

type shutdownHandler interface {
	Shutdown()
}

type Application struct {
	fyneApp       fyne.App
	window        fyne.Window
	guiManager    *gui.Manager
	services      *Services
	logger        logger.Logger
	shutdownables []shutdownHandler
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	shutdown      chan struct{}
	shutdownOnce  sync.Once
	menuSetup     bool
}

func NewApplication(services *Services) (*Application, error) {
	defaults, err := services.DefaultOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid output defaults: %w", err)
	}

	app.SetMetadata(fyne.AppMetadata{
		ID:      AppID,
		Name:    AppName,
		Version: AppVersion,
		Build:   1,
	})

	fyneApp := app.NewWithID(AppID)
	fyneApp.Settings().SetTheme(gui.NewTheme())
	window := fyneApp.NewWindow(AppName)

	windowSize := calculateMinimumWindowSize()
	window.Resize(windowSize)
	window.SetFixedSize(false)
	window.CenterOnScreen()
	window.SetMaster()

	ctx, cancel := context.WithCancel(context.Background())
	log := services.Logger

	log.Info("Application", "starting application", map[string]interface{}{
		"version":       AppVersion,
		"window_width":  windowSize.Width,
		"window_height": windowSize.Height,
	})

	guiManager, err := gui.NewManager(window, services.Runner, defaults, log)
	if err != nil {
		cancel()
		return nil, err
	}

	application := &Application{
		fyneApp:    fyneApp,
		window:     window,
		guiManager: guiManager,
		services:   services,
		logger:     log,
		ctx:        ctx,
		cancel:     cancel,
		shutdown:   make(chan struct{}),
		shutdownables: []shutdownHandler{
			services,
			guiManager,
		},
	}

	application.setupSignalHandling()
	log.Info("Application", "initialization complete", nil)
	return application, nil
}

func (a *Application) setupMenu() {
	aboutAction := func() {
		fyne.Do(func() {
			a.showAbout()
		})
	}

	fileMenu := fyne.NewMenu("File")
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", aboutAction),
	)

	a.window.SetMainMenu(fyne.NewMainMenu(fileMenu, helpMenu))
	a.menuSetup = true
}

func (a *Application) showAbout() {
	metadata := a.fyneApp.Metadata()

	name := metadata.Name
	if name == "" {
		name = AppName
	}

	version := metadata.Version
	if version == "" {
		version = AppVersion
	}

	backends := "none"
	if skipped := a.services.Orchestrator.Unavailable(); len(skipped) > 0 {
		backends = fmt.Sprintf("%v", skipped)
	}

	aboutContent := container.NewVBox(
		widget.NewLabel(name),
		widget.NewLabel(fmt.Sprintf("Version: %s", version)),
		widget.NewLabel(""),
		widget.NewLabel("Runtime Info:"),
		widget.NewLabel(fmt.Sprintf("Go: %s", runtime.Version())),
		widget.NewLabel(fmt.Sprintf("Platform: %s/%s", runtime.GOOS, runtime.GOARCH)),
		widget.NewLabel(fmt.Sprintf("ONNX Runtime: %s", a.services.Config.Runtime.LibraryPath)),
		widget.NewLabel(fmt.Sprintf("Unavailable backends: %s", backends)),
	)

	dialog.ShowCustom("About", "Close", aboutContent, a.window)
}

func calculateMinimumWindowSize() fyne.Size {
	optionsHeight := float32(260)
	toolbarHeight := float32(90)

	return fyne.Size{
		Width:  float32(widgets.ImageAreaWidth*2 + 60),
		Height: float32(widgets.ImageAreaHeight) + optionsHeight + toolbarHeight + 40,
	}
}

func (a *Application) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			a.logger.Info("Application", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			a.initiateShutdown()
		case <-a.ctx.Done():
			return
		}
	}()
}

func (a *Application) Run() error {
	if !a.menuSetup {
		a.setupMenu()
	}

	a.window.SetCloseIntercept(func() {
		a.logger.Info("Application", "shutdown requested via window close", nil)
		a.initiateShutdown()
		a.window.Close()
	})

	a.guiManager.Show()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-a.shutdown
		fyne.Do(func() {
			a.fyneApp.Quit()
		})
	}()

	a.fyneApp.Run()
	a.initiateShutdown()
	a.wg.Wait()
	return nil
}

func (a *Application) initiateShutdown() {
	a.shutdownOnce.Do(a.shutdownComponents)
}

func (a *Application) shutdownComponents() {
	close(a.shutdown)

	a.logger.Info("Application", "shutdown sequence initiated", map[string]interface{}{
		"components": len(a.shutdownables),
	})

	a.cancel()

	for i := len(a.shutdownables) - 1; i >= 0; i-- {
		component := a.shutdownables[i]

		done := make(chan struct{})
		go func() {
			defer close(done)
			component.Shutdown()
		}()

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			a.logger.Warning("Application", "component shutdown timeout", map[string]interface{}{
				"component_index": i,
			})
		}
	}

	a.logger.Info("Application", "shutdown sequence completed", nil)
}
