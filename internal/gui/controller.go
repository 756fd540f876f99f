package gui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"backdrop-remover/internal/imageio"
	"backdrop-remover/internal/logger"
	"backdrop-remover/internal/pipeline"

	"fyne.io/fyne/v2"
)

// JobSubmitter starts background-removal jobs.
type JobSubmitter interface {
	Submit(inputPath, outputPath string, opts pipeline.Options) (*pipeline.Job, error)
}

type Controller struct {
	view     *View
	runner   JobSubmitter
	defaults pipeline.Options
	logger   logger.Logger

	mu      sync.RWMutex
	current *pipeline.Job
}

func NewController(runner JobSubmitter, defaults pipeline.Options, log logger.Logger) *Controller {
	return &Controller{
		runner:   runner,
		defaults: defaults,
		logger:   log,
	}
}

func (c *Controller) SetView(view *View) {
	c.view = view
}

func (c *Controller) SelectInput() {
	c.view.ShowFileDialog(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			c.handleError("File selection error", err)
			return
		}
		if reader == nil {
			return
		}

		path := reader.URI().Path()
		reader.Close()

		c.view.SetInputPath(path)
		c.view.SetOutputPath(withExtension(imageio.SuggestOutputPath(path), c.view.Options().Format))
		c.view.SetResultImage(nil)
		c.view.SetSourceHint("Loading preview...")
		c.updateStatus("Image selected")

		go c.loadSourcePreview(path)
	})
}

func (c *Controller) loadSourcePreview(path string) {
	start := time.Now()
	buf, format, err := imageio.Decode(path)

	fyne.Do(func() {
		if err != nil {
			c.view.SetSourceImage(nil)
			c.view.SetSourceHint("Preview unavailable")
			c.logger.Warning("Controller", "preview failed", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			return
		}

		c.view.SetSourceImage(buf.ToImage())
		c.logger.Info("Controller", "preview loaded", map[string]interface{}{
			"width":     buf.Width,
			"height":    buf.Height,
			"format":    format,
			"load_time": time.Since(start),
		})
	})
}

// SelectOutputFolder keeps the current output file name and moves it into the
// chosen folder.
func (c *Controller) SelectOutputFolder() {
	c.view.ShowFolderDialog(func(folder fyne.ListableURI, err error) {
		if err != nil {
			c.handleError("Folder selection error", err)
			return
		}
		if folder == nil {
			return
		}

		name := filepath.Base(c.view.OutputPath())
		if name == "." || name == string(filepath.Separator) || name == "" {
			name = "output" + c.view.Options().Format.Extension()
		}
		c.view.SetOutputPath(filepath.Join(folder.Path(), name))
	})
}

// ChangeFormat keeps the output extension in line with the chosen format.
func (c *Controller) ChangeFormat(format pipeline.Format) {
	if c.view == nil {
		return
	}
	if out := c.view.OutputPath(); out != "" {
		c.view.SetOutputPath(withExtension(out, format))
	}
}

func (c *Controller) Process() {
	input := strings.TrimSpace(c.view.InputPath())
	output := strings.TrimSpace(c.view.OutputPath())

	if input == "" || output == "" {
		c.handleError("Missing paths", errors.New("select both an input image and an output file"))
		return
	}
	if _, err := os.Stat(input); err != nil {
		c.handleError("Missing input", fmt.Errorf("the input image does not exist: %s", input))
		return
	}

	job, err := c.runner.Submit(input, output, c.view.Options())
	if errors.Is(err, pipeline.ErrBusy) {
		c.view.ShowInformation("Busy", "An image is already being processed.")
		return
	}
	if err != nil {
		c.handleError("Processing error", err)
		return
	}

	c.mu.Lock()
	c.current = job
	c.mu.Unlock()

	c.view.SetRunning(true)
	c.view.SetResultImage(nil)

	go c.watch(job)
}

func (c *Controller) watch(job *pipeline.Job) {
	for event := range job.Events() {
		fyne.Do(func() {
			c.applyEvent(job, event)
		})
	}
}

func (c *Controller) applyEvent(job *pipeline.Job, event pipeline.Event) {
	c.view.SetStatus(StatusText(event))

	switch e := event.(type) {
	case pipeline.Progress:
		if e.Indeterminate {
			c.view.SetBusy()
		} else {
			c.view.SetProgress(float64(e.Percent) / 100)
		}
	case pipeline.Succeeded:
		c.finishJob(job)
		c.view.SetProgress(1)
		c.logger.Info("Controller", "job succeeded", map[string]interface{}{
			"job":     job.ID,
			"backend": e.Backend,
			"output":  e.OutputPath,
		})
		c.view.ShowInformation("Done", "The image was processed successfully.\n\nSaved to:\n"+e.OutputPath)
		go c.loadResultPreview(e.OutputPath)
	case pipeline.Failed:
		c.finishJob(job)
		c.view.HideProgress()
		c.handleError("Processing error", errors.New(e.Message))
	}
}

func (c *Controller) finishJob(job *pipeline.Job) {
	c.mu.Lock()
	if c.current == job {
		c.current = nil
	}
	c.mu.Unlock()
	c.view.SetRunning(false)
}

func (c *Controller) loadResultPreview(path string) {
	buf, _, err := imageio.Decode(path)
	if err != nil {
		c.logger.Warning("Controller", "result preview failed", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return
	}

	fyne.Do(func() {
		c.view.SetResultImage(buf.ToImage())
	})
}

// Clear resets the form. It is ignored while a job runs.
func (c *Controller) Clear() {
	if c.isProcessing() {
		return
	}
	c.view.Reset(c.defaults)
}

func (c *Controller) updateStatus(status string) {
	c.view.SetStatus(status)
}

func (c *Controller) handleError(title string, err error) {
	c.logger.Error("Controller", err, map[string]interface{}{
		"title": title,
	})

	c.view.SetStatus("Error: " + err.Error())
	c.view.ShowError(title, err)
}

func (c *Controller) isProcessing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current != nil
}

func (c *Controller) Shutdown() {
	c.mu.RLock()
	job := c.current
	c.mu.RUnlock()

	fields := map[string]interface{}{}
	if job != nil {
		// Jobs cannot be cancelled; the output is written atomically so
		// quitting mid-job leaves no partial file.
		fields["abandoned_job"] = job.ID
	}
	c.logger.Info("Controller", "shutdown completed", fields)
}

// StatusText is the one-line status shown for an event.
func StatusText(event pipeline.Event) string {
	switch e := event.(type) {
	case pipeline.Progress:
		switch {
		case e.Stage == pipeline.StageLoading:
			return "Loading image..."
		case e.Stage == pipeline.StageProcessing && e.Detail != "":
			return "Removing background (" + e.Detail + ")..."
		case e.Stage == pipeline.StageProcessing:
			return "Removing background..."
		case e.Stage == pipeline.StageSaving:
			return "Saving image..."
		default:
			return e.String()
		}
	case pipeline.Succeeded:
		return "Image processed successfully"
	case pipeline.Failed:
		return "Error: " + e.Message
	default:
		return ""
	}
}

func withExtension(path string, format pipeline.Format) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + format.Extension()
}
