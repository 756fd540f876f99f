package pipeline

import (
	"fmt"

	"backdrop-remover/internal/apperrors"
)

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

type Stage string

const (
	StageLoading    Stage = "loading"
	StageProcessing Stage = "processing"
	StageSaving     Stage = "saving"
)

// Event is one message on a job's stream: Progress, Succeeded or Failed.
type Event interface {
	String() string
	terminal() bool
}

type Progress struct {
	Stage         Stage
	Detail        string
	Percent       int
	Indeterminate bool
}

func (p Progress) String() string {
	switch {
	case p.Detail != "":
		return fmt.Sprintf("%s: %s", p.Stage, p.Detail)
	case p.Indeterminate:
		return string(p.Stage) + "..."
	default:
		return fmt.Sprintf("%s %d%%", p.Stage, p.Percent)
	}
}

func (Progress) terminal() bool { return false }

type Succeeded struct {
	OutputPath string
	Backend    string
	BackupPath string
}

func (s Succeeded) String() string {
	return fmt.Sprintf("saved %s (%s)", s.OutputPath, s.Backend)
}

func (Succeeded) terminal() bool { return true }

type Failed struct {
	Kind    apperrors.Kind
	Message string
}

func (f Failed) String() string {
	return fmt.Sprintf("failed (%s): %s", f.Kind, f.Message)
}

func (Failed) terminal() bool { return true }

// IsTerminal reports whether e ends a job's stream.
func IsTerminal(e Event) bool {
	return e != nil && e.terminal()
}
