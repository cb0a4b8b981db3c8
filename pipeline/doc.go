// Package pipeline provides a single-value, linear pipeline type. A Pipeline runs
// stages in order (optionally with its own Source for standalone use); each stage's
// output is the next stage's input, and the first error stops the run. There are
// no retries: a failed run is terminal and is re-invoked from outside if needed.
//
// Optional pre/post hooks (Observer) let you log, measure or record a run:
// BeforePipeline, BeforeStage/AfterStage (input, output, duration) and
// AfterPipeline (result or error). Pass RunOptions{Observer: myObserver} to
// RunWithInput. When an observer is attached every run gets an ID (a new UUID
// unless RunOptions.RunID is set), and stages can read it with RunID(ctx).
//
// Name the stages with Pipeline.StageNames so observers can report them via
// StageName(ctx):
//
//	p := &pipeline.Pipeline{
//	    Name:       "train",
//	    Stages:     []pipeline.Stage{resolve, load, fit},
//	    StageNames: []string{"resolve", "load", "fit"},
//	}
//	out, err := p.RunWithInput(ctx, state, &pipeline.RunOptions{Observer: obs})
//
// Combine observers with MultiObserver.
package pipeline
