package main

import (
	"bytes"
	"strings"
	"testing"

	"sematube/internal/pipeline"
)

func TestStageProgressTracksStages(t *testing.T) {
	var buf bytes.Buffer
	p := newStageProgress(&buf, true)
	p.observe(pipeline.Event{State: pipeline.StateFetching, Stage: pipeline.StageFetch})
	p.observe(pipeline.Event{State: pipeline.StateTranscribing, Stage: pipeline.StageTranscribe})
	if !strings.Contains(buf.String(), "transcribe") {
		t.Fatalf("expected stage description in output, got %q", buf.String())
	}
	p.observe(pipeline.Event{State: pipeline.StateMuxing, Stage: pipeline.StageMux, Skipped: true})
	if !strings.Contains(buf.String(), "mux (skipped)") {
		t.Fatalf("expected skipped mux in output, got %q", buf.String())
	}
	p.observe(pipeline.Event{State: pipeline.StateDone})
}

func TestStageProgressDisabled(t *testing.T) {
	p := newStageProgress(nil, false)
	p.observe(pipeline.Event{State: pipeline.StateFetching, Stage: pipeline.StageFetch})
	p.observe(pipeline.Event{State: pipeline.StateFailed})
}
