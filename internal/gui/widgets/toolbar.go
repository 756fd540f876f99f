package widgets

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

type Toolbar struct {
	container     *fyne.Container
	processButton *widget.Button
	clearButton   *widget.Button
	statusLabel   *widget.Label
	progressBar   *widget.ProgressBar
	activityBar   *widget.ProgressBarInfinite
	progressStack *fyne.Container

	processHandler func()
	clearHandler   func()
}

func NewToolbar() *Toolbar {
	toolbar := &Toolbar{}
	toolbar.createComponents()
	toolbar.buildLayout()
	return toolbar
}

func (t *Toolbar) createComponents() {
	t.processButton = widget.NewButton("Remove background", t.onProcessClicked)
	t.processButton.Importance = widget.HighImportance

	t.clearButton = widget.NewButton("Clear", t.onClearClicked)

	t.statusLabel = widget.NewLabel("Ready")
	t.statusLabel.Truncation = fyne.TextTruncateEllipsis

	t.progressBar = widget.NewProgressBar()
	t.activityBar = widget.NewProgressBarInfinite()
	t.activityBar.Stop()
	t.activityBar.Hide()
	t.progressBar.Hide()
	t.progressStack = container.NewStack(t.progressBar, t.activityBar)
}

func (t *Toolbar) buildLayout() {
	background := canvas.NewRectangle(color.RGBA{R: 245, G: 248, B: 253, A: 255})
	border := canvas.NewRectangle(color.Transparent)
	border.StrokeWidth = 1.0
	border.StrokeColor = color.RGBA{R: 176, G: 196, B: 222, A: 255}

	buttons := container.NewHBox(t.processButton, t.clearButton)
	content := container.NewVBox(
		container.NewBorder(nil, nil, buttons, nil, t.statusLabel),
		t.progressStack,
	)

	t.container = container.NewStack(
		border,
		container.NewPadded(
			container.NewStack(background, container.NewPadded(content)),
		),
	)
}

func (t *Toolbar) onProcessClicked() {
	if t.processHandler != nil {
		t.processHandler()
	}
}

func (t *Toolbar) onClearClicked() {
	if t.clearHandler != nil {
		t.clearHandler()
	}
}

func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}

func (t *Toolbar) SetProcessHandler(handler func()) {
	t.processHandler = handler
}

func (t *Toolbar) SetClearHandler(handler func()) {
	t.clearHandler = handler
}

func (t *Toolbar) SetStatus(status string) {
	t.statusLabel.SetText(status)
}

func (t *Toolbar) Status() string {
	return t.statusLabel.Text
}

// SetProgress shows a determinate bar at fraction (0..1).
func (t *Toolbar) SetProgress(fraction float64) {
	t.activityBar.Stop()
	t.activityBar.Hide()
	t.progressBar.SetValue(fraction)
	t.progressBar.Show()
}

// SetBusy shows the indeterminate bar.
func (t *Toolbar) SetBusy() {
	t.progressBar.Hide()
	t.activityBar.Show()
	t.activityBar.Start()
}

func (t *Toolbar) HideProgress() {
	t.activityBar.Stop()
	t.activityBar.Hide()
	t.progressBar.Hide()
}

func (t *Toolbar) SetRunning(running bool) {
	if running {
		t.processButton.Disable()
		t.clearButton.Disable()
	} else {
		t.processButton.Enable()
		t.clearButton.Enable()
	}
}
