package app

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"backdrop-remover/internal/apperrors"
	"backdrop-remover/internal/imageio"
	"backdrop-remover/internal/pipeline"
)

// DefaultOutputPath is <stem>_sf next to input, with the format's extension.
func DefaultOutputPath(input string, format pipeline.Format) string {
	suggested := imageio.SuggestOutputPath(input)
	return strings.TrimSuffix(suggested, filepath.Ext(suggested)) + format.Extension()
}

// RunHeadless processes one file without a window, printing each event to
// out. It returns an *apperrors.Error when the job fails.
func RunHeadless(svc *Services, input, output string, opts pipeline.Options, out io.Writer) error {
	job, err := svc.Runner.Submit(input, output, opts)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, err, "submit job")
	}

	for event := range job.Events() {
		fmt.Fprintln(out, event.String())
	}

	switch terminal := job.Wait().(type) {
	case pipeline.Succeeded:
		if terminal.BackupPath != "" {
			fmt.Fprintf(out, "previous output kept as %s\n", terminal.BackupPath)
		}
		return nil
	case pipeline.Failed:
		return apperrors.New(terminal.Kind, terminal.Message)
	default:
		return apperrors.New(apperrors.Internal, "job ended without a result")
	}
}
