package widgets

import (
	"fmt"

	"backdrop-remover/internal/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

var formatLabels = map[pipeline.Format]string{
	pipeline.FormatTransparentPNG: "PNG (transparent)",
	pipeline.FormatPNGWhite:       "PNG (white background)",
	pipeline.FormatPNGBlack:       "PNG (black background)",
	pipeline.FormatJPEG:           "JPEG",
}

// FormatLabel is the name shown for f in the format selector.
func FormatLabel(f pipeline.Format) string {
	if label, ok := formatLabels[f]; ok {
		return label
	}
	return string(f)
}

func formatFromLabel(label string) pipeline.Format {
	for f, l := range formatLabels {
		if l == label {
			return f
		}
	}
	return pipeline.FormatTransparentPNG
}

// OptionsPanel holds the input/output paths and the processing options.
type OptionsPanel struct {
	container *fyne.Container

	inputEntry   *widget.Entry
	inputButton  *widget.Button
	outputEntry  *widget.Entry
	outputButton *widget.Button

	formatSelect  *widget.Select
	qualitySlider *widget.Slider
	qualityLabel  *widget.Label
	backupCheck   *widget.Check

	browseInputHandler  func()
	browseOutputHandler func()
	formatChangeHandler func(pipeline.Format)
}

func NewOptionsPanel(defaults pipeline.Options) *OptionsPanel {
	panel := &OptionsPanel{}
	panel.createWidgets()
	panel.buildLayout()
	panel.Reset(defaults)
	return panel
}

func (op *OptionsPanel) createWidgets() {
	op.inputEntry = widget.NewEntry()
	op.inputEntry.SetPlaceHolder("Select the input image")
	op.inputEntry.Disable()
	op.inputButton = widget.NewButton("Browse...", func() {
		if op.browseInputHandler != nil {
			op.browseInputHandler()
		}
	})

	op.outputEntry = widget.NewEntry()
	op.outputEntry.SetPlaceHolder("Output file path")
	op.outputButton = widget.NewButton("Browse...", func() {
		if op.browseOutputHandler != nil {
			op.browseOutputHandler()
		}
	})

	labels := make([]string, 0, len(pipeline.Formats))
	for _, f := range pipeline.Formats {
		labels = append(labels, FormatLabel(f))
	}
	op.formatSelect = widget.NewSelect(labels, op.onFormatChanged)

	op.qualitySlider = widget.NewSlider(1, 100)
	op.qualitySlider.Step = 1
	op.qualityLabel = widget.NewLabel("")
	op.qualitySlider.OnChanged = func(value float64) {
		op.qualityLabel.SetText(fmt.Sprintf("%d%%", int(value)))
	}

	op.backupCheck = widget.NewCheck("Back up an existing output file", nil)
}

func (op *OptionsPanel) buildLayout() {
	inputRow := container.NewBorder(nil, nil, widget.NewLabel("Input:"), op.inputButton, op.inputEntry)
	outputRow := container.NewBorder(nil, nil, widget.NewLabel("Output:"), op.outputButton, op.outputEntry)
	qualityRow := container.NewBorder(nil, nil, widget.NewLabel("Quality:"), op.qualityLabel, op.qualitySlider)
	formatRow := container.NewHBox(widget.NewLabel("Format:"), op.formatSelect)

	op.container = container.NewVBox(
		widget.NewCard("", "Files", container.NewVBox(inputRow, outputRow)),
		widget.NewCard("", "Options", container.NewVBox(formatRow, qualityRow, op.backupCheck)),
	)
}

func (op *OptionsPanel) onFormatChanged(label string) {
	format := formatFromLabel(label)
	if format == pipeline.FormatJPEG {
		op.qualitySlider.Enable()
	} else {
		op.qualitySlider.Disable()
	}

	if op.formatChangeHandler != nil {
		op.formatChangeHandler(format)
	}
}

func (op *OptionsPanel) GetContainer() *fyne.Container {
	return op.container
}

func (op *OptionsPanel) SetBrowseInputHandler(handler func()) {
	op.browseInputHandler = handler
}

func (op *OptionsPanel) SetBrowseOutputHandler(handler func()) {
	op.browseOutputHandler = handler
}

func (op *OptionsPanel) SetFormatChangeHandler(handler func(pipeline.Format)) {
	op.formatChangeHandler = handler
}

// Options reads the current selection. Quality is sent for every format and
// only used by JPEG.
func (op *OptionsPanel) Options() pipeline.Options {
	return pipeline.Options{
		Format:  formatFromLabel(op.formatSelect.Selected),
		Quality: int(op.qualitySlider.Value),
		Backup:  op.backupCheck.Checked,
	}
}

func (op *OptionsPanel) InputPath() string {
	return op.inputEntry.Text
}

func (op *OptionsPanel) SetInputPath(path string) {
	op.inputEntry.SetText(path)
}

func (op *OptionsPanel) OutputPath() string {
	return op.outputEntry.Text
}

func (op *OptionsPanel) SetOutputPath(path string) {
	op.outputEntry.SetText(path)
}

func (op *OptionsPanel) SetFormat(format pipeline.Format) {
	op.formatSelect.SetSelected(FormatLabel(format))
}

// Reset clears both paths and restores the given options.
func (op *OptionsPanel) Reset(defaults pipeline.Options) {
	op.inputEntry.SetText("")
	op.outputEntry.SetText("")
	op.qualitySlider.SetValue(float64(defaults.Quality))
	op.backupCheck.SetChecked(defaults.Backup)
	op.SetFormat(defaults.Format)
}

// SetEnabled locks the form while a job runs.
func (op *OptionsPanel) SetEnabled(enabled bool) {
	for _, w := range []fyne.Disableable{op.inputButton, op.outputButton, op.outputEntry, op.formatSelect, op.backupCheck} {
		if enabled {
			w.Enable()
		} else {
			w.Disable()
		}
	}

	if enabled && formatFromLabel(op.formatSelect.Selected) == pipeline.FormatJPEG {
		op.qualitySlider.Enable()
	} else {
		op.qualitySlider.Disable()
	}
}
