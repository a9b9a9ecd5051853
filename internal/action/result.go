package action

import (
	"time"

	"github.com/google/uuid"
)

type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// StepResult is what every action reports back to its caller.
type StepResult struct {
	ActionID   uuid.UUID         `json:"action_id"`
	Action     string            `json:"action"`
	Status     StepStatus        `json:"status"`
	Error      string            `json:"error,omitempty"`
	Files      map[string]string `json:"files,omitempty"`
	Data       map[string]any    `json:"data,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

func newStepResult(action string) StepResult {
	return StepResult{
		ActionID:  uuid.New(),
		Action:    action,
		StartedAt: time.Now(),
	}
}

func (r *StepResult) succeed() {
	r.Status = StepSucceeded
	r.FinishedAt = time.Now()
}

func (r *StepResult) fail(err error) {
	r.Status = StepFailed
	r.Error = err.Error()
	r.FinishedAt = time.Now()
}

func (r *StepResult) setFile(label, path string) {
	if r.Files == nil {
		r.Files = make(map[string]string)
	}
	r.Files[label] = path
}

func (r *StepResult) setData(key string, value any) {
	if r.Data == nil {
		r.Data = make(map[string]any)
	}
	r.Data[key] = value
}

// EventSink is told about every finished action.
type EventSink interface {
	ActionFinished(result StepResult)
}

type EventSinkFunc func(result StepResult)

func (f EventSinkFunc) ActionFinished(result StepResult) { f(result) }
