package pipeline

import (
	"strings"

	"sematube/internal/services"
	"sematube/internal/transcription"
)

// Task selects what the pipeline produces.
type Task string

// Tasks.
const (
	// TaskTranscribe captions speech in its spoken language.
	TaskTranscribe Task = "transcribe"
	// TaskTranslate captions speech translated to English by the speech model.
	TaskTranslate Task = "translate"
	// TaskSema transcribes, then translates captions through the translation
	// service into a chosen target language.
	TaskSema Task = "sema"
	// TaskBurn burns caller-supplied captions without running the speech model.
	TaskBurn Task = "burn"
)

// Tasks lists every task in display order.
func Tasks() []Task {
	return []Task{TaskTranscribe, TaskTranslate, TaskSema, TaskBurn}
}

// ParseTask resolves a task name. Empty input selects TaskTranscribe.
func ParseTask(value string) (Task, error) {
	switch Task(strings.ToLower(strings.TrimSpace(value))) {
	case "", TaskTranscribe:
		return TaskTranscribe, nil
	case TaskTranslate:
		return TaskTranslate, nil
	case TaskSema:
		return TaskSema, nil
	case TaskBurn:
		return TaskBurn, nil
	}
	return "", services.Wrap(services.ErrInvalidArgument, "pipeline", "parse task",
		"unknown task "+value+" (want transcribe, translate, sema or burn)", nil)
}

func (t Task) usesSpeechModel() bool { return t != TaskBurn }

func (t Task) mode() transcription.Mode {
	if t == TaskTranslate {
		return transcription.ModeTranslateToEnglish
	}
	return transcription.ModeRecognize
}

// State is the lifecycle position of a run.
type State string

// States, in transition order.
const (
	StateIdle         State = "Idle"
	StateFetching     State = "Fetching"
	StateTranscribing State = "Transcribing"
	StateCaptioning   State = "Captioning"
	StateMuxing       State = "Muxing"
	StateDone         State = "Done"
	StateFailed       State = "Failed"
)

var stateOrder = map[State]int{
	StateIdle:         0,
	StateFetching:     1,
	StateTranscribing: 2,
	StateCaptioning:   3,
	StateMuxing:       4,
	StateDone:         5,
}

// canTransition reports whether from -> to is a legal linear step.
func canTransition(from, to State) bool {
	if from == StateDone || from == StateFailed {
		return false
	}
	if to == StateFailed {
		return true
	}
	return stateOrder[to] == stateOrder[from]+1
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// Stage names a pipeline step.
type Stage string

// Stages.
const (
	StageFetch      Stage = "fetch"
	StageTranscribe Stage = "transcribe"
	StageCaption    Stage = "caption"
	StageMux        Stage = "mux"
)

// Stages lists every stage in execution order.
func Stages() []Stage {
	return []Stage{StageFetch, StageTranscribe, StageCaption, StageMux}
}

func (s Stage) state() State {
	switch s {
	case StageFetch:
		return StateFetching
	case StageTranscribe:
		return StateTranscribing
	case StageCaption:
		return StateCaptioning
	case StageMux:
		return StateMuxing
	}
	return StateIdle
}
