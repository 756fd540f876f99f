package widgets

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	ImageAreaWidth  = 420
	ImageAreaHeight = 260
)

// ImageDisplay shows the source image next to the saved result.
type ImageDisplay struct {
	container   fyne.CanvasObject
	sourceImage *canvas.Image
	resultImage *canvas.Image
	sourceHint  *widget.Label
	resultHint  *widget.Label
	splitView   *container.Split
}

func NewImageDisplay() *ImageDisplay {
	display := &ImageDisplay{}
	display.createComponents()
	display.setupLayout()
	return display
}

func newPreview() *canvas.Image {
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScaleSmooth
	img.SetMinSize(fyne.NewSize(ImageAreaWidth, ImageAreaHeight))
	return img
}

func (id *ImageDisplay) createComponents() {
	id.sourceImage = newPreview()
	id.resultImage = newPreview()
	id.sourceHint = widget.NewLabelWithStyle("No image selected", fyne.TextAlignCenter, fyne.TextStyle{Italic: true})
	id.resultHint = widget.NewLabelWithStyle("Result appears here", fyne.TextAlignCenter, fyne.TextStyle{Italic: true})
}

func (id *ImageDisplay) setupLayout() {
	sourceContainer := container.NewBorder(
		widget.NewRichTextFromMarkdown("**Source**"),
		nil, nil, nil,
		container.NewStack(id.sourceHint, id.sourceImage),
	)

	resultContainer := container.NewBorder(
		widget.NewRichTextFromMarkdown("**Result**"),
		nil, nil, nil,
		container.NewStack(id.resultHint, id.resultImage),
	)

	id.splitView = container.NewHSplit(sourceContainer, resultContainer)
	id.splitView.SetOffset(0.5)
	id.container = id.splitView
}

func (id *ImageDisplay) GetContainer() fyne.CanvasObject {
	return id.container
}

func (id *ImageDisplay) SetSourceImage(img image.Image) {
	setPreview(id.sourceImage, id.sourceHint, img)
}

func (id *ImageDisplay) SetResultImage(img image.Image) {
	setPreview(id.resultImage, id.resultHint, img)
}

func (id *ImageDisplay) SetSourceHint(text string) {
	id.sourceHint.SetText(text)
}

func (id *ImageDisplay) Clear() {
	id.SetSourceImage(nil)
	id.SetResultImage(nil)
	id.sourceHint.SetText("No image selected")
}

func setPreview(target *canvas.Image, hint *widget.Label, img image.Image) {
	target.Image = img
	if img == nil {
		hint.Show()
	} else {
		hint.Hide()
	}
	target.Refresh()
}
