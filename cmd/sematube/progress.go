package main

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"sematube/internal/pipeline"
)

// stageProgress renders pipeline transitions as a bar with one step per
// stage. A disabled progress ignores every event.
type stageProgress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newStageProgress(w io.Writer, enabled bool) *stageProgress {
	if !enabled {
		return &stageProgress{}
	}
	return &stageProgress{bar: progressbar.NewOptions(
		len(pipeline.Stages()),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("starting"),
		progressbar.OptionShowBytes(false),
		progressbar.OptionClearOnFinish(),
	)}
}

func (p *stageProgress) observe(ev pipeline.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	switch ev.State {
	case pipeline.StateDone:
		_ = p.bar.Finish()
	case pipeline.StateFailed:
		_ = p.bar.Exit()
	default:
		for i, stage := range pipeline.Stages() {
			if stage != ev.Stage {
				continue
			}
			desc := string(stage)
			if ev.Skipped {
				desc += " (skipped)"
			}
			p.bar.Describe(desc)
			_ = p.bar.Set(i)
		}
	}
}
