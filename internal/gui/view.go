package gui

import (
	"image"

	"backdrop-remover/internal/gui/widgets"
	"backdrop-remover/internal/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

var inputExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tif", ".tiff"}

type View struct {
	window     fyne.Window
	controller *Controller

	toolbar       *widgets.Toolbar
	imageDisplay  *widgets.ImageDisplay
	optionsPanel  *widgets.OptionsPanel
	mainContainer *fyne.Container
}

func NewView(window fyne.Window, defaults pipeline.Options) *View {
	view := &View{
		window: window,
	}

	view.setupComponents(defaults)
	view.setupLayout()

	return view
}

func (v *View) SetController(controller *Controller) {
	v.controller = controller
	v.setupEventHandlers()
}

func (v *View) setupComponents(defaults pipeline.Options) {
	v.toolbar = widgets.NewToolbar()
	v.imageDisplay = widgets.NewImageDisplay()
	v.optionsPanel = widgets.NewOptionsPanel(defaults)
}

func (v *View) setupLayout() {
	v.mainContainer = container.NewVBox(
		v.imageDisplay.GetContainer(),
		v.optionsPanel.GetContainer(),
		v.toolbar.GetContainer(),
	)
}

func (v *View) setupEventHandlers() {
	if v.controller == nil {
		return
	}

	v.optionsPanel.SetBrowseInputHandler(v.controller.SelectInput)
	v.optionsPanel.SetBrowseOutputHandler(v.controller.SelectOutputFolder)
	v.optionsPanel.SetFormatChangeHandler(v.controller.ChangeFormat)
	v.toolbar.SetProcessHandler(v.controller.Process)
	v.toolbar.SetClearHandler(v.controller.Clear)
}

func (v *View) Options() pipeline.Options {
	return v.optionsPanel.Options()
}

func (v *View) InputPath() string {
	return v.optionsPanel.InputPath()
}

func (v *View) OutputPath() string {
	return v.optionsPanel.OutputPath()
}

func (v *View) SetInputPath(path string) {
	v.optionsPanel.SetInputPath(path)
}

func (v *View) SetOutputPath(path string) {
	v.optionsPanel.SetOutputPath(path)
}

func (v *View) SetSourceImage(img image.Image) {
	v.imageDisplay.SetSourceImage(img)
}

func (v *View) SetSourceHint(text string) {
	v.imageDisplay.SetSourceHint(text)
}

func (v *View) SetResultImage(img image.Image) {
	v.imageDisplay.SetResultImage(img)
}

func (v *View) SetStatus(status string) {
	v.toolbar.SetStatus(status)
}

func (v *View) SetProgress(fraction float64) {
	v.toolbar.SetProgress(fraction)
}

func (v *View) SetBusy() {
	v.toolbar.SetBusy()
}

func (v *View) HideProgress() {
	v.toolbar.HideProgress()
}

// SetRunning locks or unlocks every control that could start another job.
func (v *View) SetRunning(running bool) {
	v.toolbar.SetRunning(running)
	v.optionsPanel.SetEnabled(!running)
}

// Reset clears the form back to defaults.
func (v *View) Reset(defaults pipeline.Options) {
	v.optionsPanel.Reset(defaults)
	v.imageDisplay.Clear()
	v.toolbar.HideProgress()
	v.toolbar.SetStatus("Ready")
}

func (v *View) ShowError(title string, err error) {
	dialog.ShowError(err, v.window)
}

func (v *View) ShowInformation(title, message string) {
	dialog.ShowInformation(title, message, v.window)
}

func (v *View) ShowFileDialog(callback func(fyne.URIReadCloser, error)) {
	open := dialog.NewFileOpen(callback, v.window)
	open.SetFilter(storage.NewExtensionFileFilter(inputExtensions))
	open.Show()
}

// ShowFolderDialog picks the output directory. A save dialog is not used
// because it creates (and truncates) the chosen file before the job runs.
func (v *View) ShowFolderDialog(callback func(fyne.ListableURI, error)) {
	dialog.ShowFolderOpen(callback, v.window)
}

func (v *View) Show() {
	v.window.SetContent(v.mainContainer)
	v.window.Show()
}

func (v *View) Shutdown() {
	v.toolbar.HideProgress()
}
