package pipeline

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Stage identifies where a classification run currently is.
type Stage string

// Run stages in execution order. Reranking and Validating only appear when
// the run's configuration enables them.
const (
	StageIdle       Stage = "idle"
	StageRetrieving Stage = "retrieving"
	StageReranking  Stage = "reranking"
	StageValidating Stage = "validating"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

var stages = []Stage{
	StageIdle,
	StageRetrieving,
	StageReranking,
	StageValidating,
	StageDone,
	StageFailed,
}

// ErrInvalidStage indicates a stage value outside the known set.
var ErrInvalidStage = errors.New("invalid pipeline stage")

// Stages returns the list of valid run stages.
func Stages() []Stage {
	return stages
}

// Terminal reports whether the stage ends a run.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// ParseStage validates a string as a known run stage.
// Returns ErrInvalidStage if the value is not recognized.
func ParseStage(s string) (Stage, error) {
	v := Stage(s)
	if !slices.Contains(stages, v) {
		return "", ErrInvalidStage
	}
	return v, nil
}

// Event records a stage transition on a run.
type Event struct {
	RunID uuid.UUID `json:"run_id"`
	Stage Stage     `json:"stage"`
	At    time.Time `json:"at"`
}

// Observer receives stage transitions as they happen. Implementations must
// return quickly; the pipeline publishes synchronously between stages.
type Observer interface {
	StageChanged(ctx context.Context, event Event)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) StageChanged(context.Context, Event) {}
